package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inesp/standup-report/internal/models"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Attach notes to report items",
	Long: `Notes are shown next to their item in the report. A note belongs to
either the done or the next list, so the same item can carry one of each.`,
}

var noteSetCmd = &cobra.Command{
	Use:   "set <pr|issue|meeting> <id> <done|next> <text...>",
	Short: "Set the note for an item",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteSetRun(cmd, args[0], args[1], args[2], strings.Join(args[3:], " "))
	},
}

var noteUnsetCmd = &cobra.Command{
	Use:   "unset <pr|issue|meeting> <id> <done|next>",
	Short: "Remove the note for an item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteSetRun(cmd, args[0], args[1], args[2], "")
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteListRun(cmd)
	},
}

var noteClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every note",
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteClearRun(cmd)
	},
}

func init() {
	noteCmd.AddCommand(noteSetCmd)
	noteCmd.AddCommand(noteUnsetCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteClearCmd)
	rootCmd.AddCommand(noteCmd)
}

// noteSetRun stores text for the item; empty text removes the note.
func noteSetRun(cmd *cobra.Command, typeArg, id, categoryArg, text string) error {
	itemType, err := parseItemType(typeArg)
	if err != nil {
		return err
	}
	category, ok := models.ParseNoteCategory(categoryArg)
	if !ok {
		return fmt.Errorf("unknown note category %q (use: done, next)", categoryArg)
	}
	note := models.Note{Type: itemType, ID: strings.TrimSpace(id), Category: category, Text: strings.TrimSpace(text)}

	if dryRun {
		if note.Text == "" {
			ui.DryRunMsg("Would remove %s note for %s %s", category, itemType, note.ID)
		} else {
			ui.DryRunMsg("Would set %s note for %s %s: %s", category, itemType, note.ID, note.Text)
		}
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.SetNote(cmd.Context(), note); err != nil {
		return err
	}
	if note.Text == "" {
		ui.Success("Removed %s note for %s %s", category, itemType, note.ID)
	} else {
		ui.Success("Saved %s note for %s %s", category, itemType, note.ID)
	}
	return nil
}

func noteListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	notes, err := s.ListNotes(cmd.Context())
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		ui.Info("No notes")
		return nil
	}

	table := ui.Table([]string{"TYPE", "ID", "LIST", "NOTE"})
	for _, n := range notes {
		_ = table.Append([]string{string(n.Type), n.ID, string(n.Category), n.Text})
	}
	return table.Render()
}

func noteClearRun(cmd *cobra.Command) error {
	if dryRun {
		ui.DryRunMsg("Would delete all notes")
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	n, err := s.DeleteAllNotes(cmd.Context())
	if err != nil {
		return err
	}
	ui.Success("Deleted %d notes", n)
	return nil
}
