package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inesp/standup-report/internal/models"
	"github.com/inesp/standup-report/internal/report"
	"github.com/inesp/standup-report/internal/store"
)

// ReportBuilder builds a report for the last hours.
type ReportBuilder interface {
	Build(ctx context.Context, hours int) (*report.Report, error)
}

// Server exposes the report and the override store as MCP tools.
type Server struct {
	store        store.Store
	reports      ReportBuilder
	defaultHours int
	version      string
}

// NewServer creates the MCP server wrapper. reports may be nil when the
// sources are not configured; the report tool then returns an error result.
func NewServer(s store.Store, reports ReportBuilder, defaultHours int, version string) *Server {
	if defaultHours <= 0 {
		defaultHours = 24
	}
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, reports: reports, defaultHours: defaultHours, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("standup", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reportTool())
	srv.AddTool(s.ignoreTool())
	srv.AddTool(s.unignoreTool())
	srv.AddTool(s.listIgnoredTool())
	srv.AddTool(s.setNoteTool())
	srv.AddTool(s.listNotesTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseType(request mcp.CallToolRequest) (models.ItemType, error) {
	raw, err := request.RequireString("type")
	if err != nil {
		return "", err
	}
	t, ok := models.ParseItemType(raw)
	if !ok {
		return "", fmt.Errorf("invalid type %q (use pr, issue or meeting)", raw)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// standup_report
func (s *Server) reportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_report",
		mcp.WithDescription("Build the standup report: what I did (merged/updated PRs, issue activity) and what is next (open PRs, in-progress issues), plus meetings. Returns JSON."),
		mcp.WithNumber("hours", mcp.Description("Report window in hours (default from config, usually 24)")),
	)
	return tool, s.handleReport
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.reports == nil {
		return mcp.NewToolResultError("report sources are not configured; run `standup check`"), nil
	}
	hours := request.GetInt("hours", s.defaultHours)
	if hours <= 0 {
		return mcp.NewToolResultError("hours must be positive"), nil
	}

	rep, err := s.reports.Build(ctx, hours)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build report: %v", err)), nil
	}
	return jsonResult(rep)
}

// standup_ignore
func (s *Server) ignoreTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_ignore",
		mcp.WithDescription("Hide an item from future reports. PR ids look like owner/repo/pull/123, issue ids are idents like ENG-42, meeting ids are calendar event ids."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("pr", "issue", "meeting")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Item title, shown in the ignore-list")),
	)
	return tool, s.handleIgnore
}

func (s *Server) handleIgnore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := parseType(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.store.AddIgnoredItem(ctx, models.IgnoredItem{Type: itemType, ID: id, Title: title}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to ignore item: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ignored %s %s", itemType, id)), nil
}

// standup_unignore
func (s *Server) unignoreTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_unignore",
		mcp.WithDescription("Show a previously ignored item in reports again. Unignoring an item that is not ignored does nothing."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("pr", "issue", "meeting")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	)
	return tool, s.handleUnignore
}

func (s *Server) handleUnignore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := parseType(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.store.RemoveIgnoredItem(ctx, models.ItemKey{Type: itemType, ID: id}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to unignore item: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Unignored %s %s", itemType, id)), nil
}

// standup_list_ignored
func (s *Server) listIgnoredTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_list_ignored",
		mcp.WithDescription("List ignored items, most recently ignored first. Returns a JSON array."),
	)
	return tool, s.handleListIgnored
}

func (s *Server) handleListIgnored(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.store.ListIgnoredItems(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list ignored items: %v", err)), nil
	}
	if items == nil {
		items = []models.IgnoredItem{}
	}
	return jsonResult(items)
}

// standup_set_note
func (s *Server) setNoteTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_set_note",
		mcp.WithDescription("Attach a note to an item in the done or next list. An empty note removes it."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("pr", "issue", "meeting")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Which list the note belongs to"), mcp.Enum("done", "next")),
		mcp.WithString("note", mcp.Description("Note text; empty removes the note")),
	)
	return tool, s.handleSetNote
}

func (s *Server) handleSetNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := parseType(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawCategory, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, ok := models.ParseNoteCategory(rawCategory)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid category %q (use done or next)", rawCategory)), nil
	}

	note := models.Note{Type: itemType, ID: id, Category: category, Text: request.GetString("note", "")}
	if err := s.store.SetNote(ctx, note); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set note: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved %s note for %s %s", category, itemType, id)), nil
}

// standup_list_notes
func (s *Server) listNotesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("standup_list_notes",
		mcp.WithDescription("List all notes. Returns a JSON array."),
	)
	return tool, s.handleListNotes
}

func (s *Server) handleListNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return jsonResult(notes)
}
