package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inesp/standup-report/internal/llm"
	"github.com/inesp/standup-report/internal/output"
	"github.com/inesp/standup-report/internal/report"
)

var (
	reportHours     int
	reportFormat    string
	reportSummarize bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a standup report",
	Long: `Build a standup report from GitHub, Linear and Google Calendar.

Ignored items are left out and notes are shown next to their items.
Sources that fail are reported as warnings and the rest of the report
is still printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hours := reportHours
		if !cmd.Flags().Changed("hours") {
			hours = viper.GetInt("report.hours")
		}
		return reportRun(cmd.Context(), hours, reportFormat, reportSummarize)
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportHours, "hours", 24, "Report window in hours (default from report.hours)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "Output format: "+strings.Join(reportFormats(), ", "))
	reportCmd.Flags().BoolVar(&reportSummarize, "summarize", false, "Add an LLM summary (needs an Anthropic API key)")
	rootCmd.AddCommand(reportCmd)
}

type reportRenderer func(w io.Writer, rep *report.Report, summary *llm.Summary) error

var renderers = map[string]reportRenderer{
	"table":    renderTable,
	"json":     renderJSON,
	"markdown": renderMarkdown,
	"slack":    renderSlack,
	"csv":      renderCSV,
}

func reportFormats() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func reportRun(ctx context.Context, hours int, format string, summarize bool) error {
	render, ok := renderers[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (use: %s)", format, strings.Join(reportFormats(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var llmClient *llm.Client
	if summarize {
		if llmClient = newLLMClient(); llmClient == nil {
			return fmt.Errorf("--summarize needs anthropic.api_key or ANTHROPIC_API_KEY")
		}
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	builder, err := newReportBuilder(ctx, cfg, s)
	if err != nil {
		return err
	}

	rep, err := builder.Build(ctx, hours)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	for _, e := range rep.Errors {
		ui.Warning("%s unavailable: %s", e.Source, e.Message)
	}

	var summary *llm.Summary
	if llmClient != nil {
		summary, err = llmClient.SummarizeReport(ctx, rep)
		if err != nil {
			ui.Warning("Summary failed: %v", err)
		}
	}

	return render(ui.Out, rep, summary)
}

func renderTable(w io.Writer, rep *report.Report, summary *llm.Summary) error {
	out := &output.UI{Out: w, ErrOut: w}

	fmt.Fprintln(w, output.Cyan(rep.Title))
	fmt.Fprintln(w, rep.Subtitle)

	sections := []struct {
		title   string
		entries []report.Entry
	}{
		{"Done", rep.Done},
		{"Next", rep.Next},
	}
	for _, sec := range sections {
		out.Section(sec.title)
		if len(sec.entries) == 0 {
			fmt.Fprintln(w, "  (nothing)")
			continue
		}
		table := out.Table([]string{"STATUS", "ITEM", "TITLE", "WHEN", "NOTE"})
		for _, e := range sec.entries {
			_ = table.Append([]string{
				output.StatusColor(e.Status),
				e.Context,
				e.Title,
				e.Ago,
				e.Note,
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	out.Section("Meetings")
	if len(rep.Meetings) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		table := out.Table([]string{"START", "TITLE", "CALENDAR", "ATTENDEES"})
		for _, m := range rep.Meetings {
			_ = table.Append([]string{
				meetingTime(m.StartTime),
				m.Title,
				m.Calendar.Title,
				fmt.Sprintf("%d", len(m.Attendees)),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if summary != nil {
		out.Section("Summary")
		fmt.Fprintf(w, "  Done: %s\n", summary.Done)
		fmt.Fprintf(w, "  Next: %s\n", summary.Next)
		for _, b := range summary.Blockers {
			fmt.Fprintf(w, "  Blocker: %s\n", output.Red(b))
		}
	}
	return nil
}

type jsonReport struct {
	*report.Report
	Summary *llm.Summary `json:"summary,omitempty"`
}

func renderJSON(w io.Writer, rep *report.Report, summary *llm.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Report: rep, Summary: summary})
}

func renderMarkdown(w io.Writer, rep *report.Report, summary *llm.Summary) error {
	fmt.Fprintf(w, "# %s\n\n_%s_\n", rep.Title, rep.Subtitle)

	writeList := func(title string, entries []report.Entry) {
		fmt.Fprintf(w, "\n## %s\n\n", title)
		if len(entries) == 0 {
			fmt.Fprintln(w, "_nothing_")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "- [%s](%s) `%s` %s", e.Title, e.URL, e.Context, e.Status)
			if e.Ago != "" {
				fmt.Fprintf(w, ", %s", e.Ago)
			}
			fmt.Fprintln(w)
			if e.Note != "" {
				fmt.Fprintf(w, "  > %s\n", e.Note)
			}
		}
	}
	writeList("Done", rep.Done)
	writeList("Next", rep.Next)

	fmt.Fprint(w, "\n## Meetings\n\n")
	if len(rep.Meetings) == 0 {
		fmt.Fprintln(w, "_none_")
	}
	for _, m := range rep.Meetings {
		if m.URL != "" {
			fmt.Fprintf(w, "- %s [%s](%s)\n", meetingTime(m.StartTime), m.Title, m.URL)
		} else {
			fmt.Fprintf(w, "- %s %s\n", meetingTime(m.StartTime), m.Title)
		}
	}

	if summary != nil {
		fmt.Fprintf(w, "\n## Summary\n\n**Done:** %s\n\n**Next:** %s\n", summary.Done, summary.Next)
		for _, b := range summary.Blockers {
			fmt.Fprintf(w, "- Blocker: %s\n", b)
		}
	}
	return nil
}

// slackEscaper escapes the characters Slack treats as control sequences.
var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func slackLink(url, title string) string {
	if url == "" {
		return slackEscaper.Replace(title)
	}
	return fmt.Sprintf("<%s|%s>", url, slackEscaper.Replace(title))
}

func renderSlack(w io.Writer, rep *report.Report, summary *llm.Summary) error {
	fmt.Fprintf(w, "*%s*\n_%s_\n", rep.Title, slackEscaper.Replace(rep.Subtitle))

	writeList := func(title string, entries []report.Entry) {
		fmt.Fprintf(w, "\n*%s*\n", title)
		if len(entries) == 0 {
			fmt.Fprintln(w, "• nothing")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "• %s (%s) %s\n", slackLink(e.URL, e.Title), slackEscaper.Replace(e.Context), e.Status)
			if e.Note != "" {
				fmt.Fprintf(w, "    _%s_\n", slackEscaper.Replace(e.Note))
			}
		}
	}
	writeList("Done", rep.Done)
	writeList("Next", rep.Next)

	if len(rep.Meetings) > 0 {
		fmt.Fprint(w, "\n*Meetings*\n")
		for _, m := range rep.Meetings {
			fmt.Fprintf(w, "• %s %s\n", meetingTime(m.StartTime), slackLink(m.URL, m.Title))
		}
	}

	if summary != nil {
		fmt.Fprintf(w, "\n*Summary*\n%s\n%s\n", slackEscaper.Replace(summary.Done), slackEscaper.Replace(summary.Next))
	}
	return nil
}

func renderCSV(w io.Writer, rep *report.Report, _ *llm.Summary) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Section", "Type", "ID", "Title", "URL", "Status", "At", "Note"})
	for _, sec := range []struct {
		name    string
		entries []report.Entry
	}{{"done", rep.Done}, {"next", rep.Next}} {
		for _, e := range sec.entries {
			at := ""
			if !e.At.IsZero() {
				at = e.At.Format(time.RFC3339)
			}
			_ = cw.Write([]string{sec.name, string(e.Type), e.ID, e.Title, e.URL, e.Status, at, e.Note})
		}
	}
	for _, m := range rep.Meetings {
		_ = cw.Write([]string{"meeting", "Meeting", m.RemoteID, m.Title, m.URL, "", m.StartTime.Format(time.RFC3339), ""})
	}
	cw.Flush()
	return cw.Error()
}

func meetingTime(t time.Time) string {
	return t.Local().Format("Mon 15:04")
}
