package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inesp/standup-report/internal/models"
)

var ignoreTitle string

var ignoreCmd = &cobra.Command{
	Use:   "ignore <pr|issue|meeting> <id>",
	Short: "Leave an item out of future reports",
	Long: `Add an item to the ignore-list. Ignored items never show up in the
done or next lists, even when they are open or recently active.

PR ids look like owner/repo/pull/123, issue ids are Linear issue ids
and meeting ids are calendar event ids.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ignoreRun(cmd, args[0], args[1], ignoreTitle)
	},
}

var unignoreCmd = &cobra.Command{
	Use:   "unignore <pr|issue|meeting> <id>",
	Short: "Remove an item from the ignore-list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return unignoreRun(cmd, args[0], args[1])
	},
}

var ignoredCmd = &cobra.Command{
	Use:   "ignored",
	Short: "List ignored items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ignoredRun(cmd)
	},
}

func init() {
	ignoreCmd.Flags().StringVar(&ignoreTitle, "title", "", "Title shown in the ignore-list")
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(unignoreCmd)
	rootCmd.AddCommand(ignoredCmd)
}

func parseItemType(s string) (models.ItemType, error) {
	t, ok := models.ParseItemType(s)
	if !ok {
		return "", fmt.Errorf("unknown item type %q (use: pr, issue, meeting)", s)
	}
	return t, nil
}

func ignoreRun(cmd *cobra.Command, typeArg, id, title string) error {
	itemType, err := parseItemType(typeArg)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if title == "" {
		title = id
	}

	if dryRun {
		ui.DryRunMsg("Would ignore %s %s", itemType, id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.AddIgnoredItem(cmd.Context(), models.IgnoredItem{Type: itemType, ID: id, Title: title}); err != nil {
		return err
	}
	ui.Success("Ignored %s %s", itemType, id)
	return nil
}

func unignoreRun(cmd *cobra.Command, typeArg, id string) error {
	itemType, err := parseItemType(typeArg)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would unignore %s %s", itemType, id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.RemoveIgnoredItem(cmd.Context(), models.ItemKey{Type: itemType, ID: strings.TrimSpace(id)}); err != nil {
		return err
	}
	ui.Success("Unignored %s %s", itemType, id)
	return nil
}

func ignoredRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	items, err := s.ListIgnoredItems(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		ui.Info("No ignored items")
		return nil
	}

	table := ui.Table([]string{"TYPE", "ID", "TITLE", "IGNORED"})
	for _, it := range items {
		_ = table.Append([]string{
			string(it.Type),
			it.ID,
			it.Title,
			it.IgnoredAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}
