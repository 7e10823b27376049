package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inesp/standup-report/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an assistant read your standup report and manage the
ignore-list and notes. Configure it with:

  {
    "mcpServers": {
      "standup": { "command": "standup", "args": ["mcp"] }
    }
  }

Available tools: standup_report, standup_ignore, standup_unignore,
standup_list_ignored, standup_set_note, standup_list_notes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newMCPServer(cmd)
		if err != nil {
			return err
		}
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer wires the store and, when configured, the report sources.
// Stdout belongs to the protocol, so problems go to stderr only.
func newMCPServer(cmd *cobra.Command) (*mcp.Server, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	hours := viper.GetInt("report.hours")
	var reports mcp.ReportBuilder
	cfg, err := loadConfig()
	if err != nil {
		ui.Warning("standup_report disabled: %v", err)
	} else {
		hours = cfg.ReportHours
		builder, err := newReportBuilder(cmd.Context(), cfg, s)
		if err != nil {
			return nil, err
		}
		reports = builder
	}

	return mcp.NewServer(s, reports, hours, buildVersion), nil
}
