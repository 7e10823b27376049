package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/errs"
	"github.com/inesp/standup-report/internal/llm"
	"github.com/inesp/standup-report/internal/models"
	"github.com/inesp/standup-report/internal/report"
)

// testCmd returns a command carrying a background context, as cobra does.
func testCmd() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func outString() string {
	return ui.Out.(*bytes.Buffer).String()
}

func sampleReport() *report.Report {
	start := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	return &report.Report{
		BuildID:  "01HXYZ",
		Title:    report.Title,
		Subtitle: "What I did in the last 1d (since: 2024-05-05 10:00:00 UTC)",
		Hours:    24,
		Done: []report.Entry{{
			Type:    models.ItemTypePR,
			ID:      "acme/app/pull/1",
			Title:   "Fix <login> & logout",
			URL:     "https://github.com/acme/app/pull/1",
			Context: "acme/app",
			Status:  "MERGED APPROVED",
			Ago:     "3h ago",
			Note:    "shipped to prod",
		}},
		Next: []report.Entry{{
			Type:    models.ItemTypeIssue,
			ID:      "issue-42",
			Title:   "Add billing page",
			URL:     "https://linear.app/acme/issue/ENG-42",
			Context: "ENG-42",
			Status:  "STARTED",
		}},
		Meetings: []models.Meeting{{
			Title:     "Sprint planning",
			URL:       "https://calendar.google.com/event?eid=1",
			RemoteID:  "evt-1",
			StartTime: start,
			Calendar:  models.Calendar{Title: "Work"},
			Attendees: []string{"a@example.com", "b@example.com"},
		}},
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTable(&buf, sampleReport(), &llm.Summary{Done: "Fixed login", Next: "Billing", Blockers: []string{"waiting on review"}}))

	out := buf.String()
	assert.Contains(t, out, "Standup Report")
	assert.Contains(t, out, "What I did in the last 1d")
	assert.Contains(t, out, "acme/app")
	assert.Contains(t, out, "shipped to prod")
	assert.Contains(t, out, "ENG-42")
	assert.Contains(t, out, "Sprint planning")
	assert.Contains(t, out, "waiting on review")
}

func TestRenderTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTable(&buf, &report.Report{Title: report.Title}, nil))
	assert.Contains(t, buf.String(), "(nothing)")
	assert.Contains(t, buf.String(), "(none)")
	assert.NotContains(t, buf.String(), "Summary")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderJSON(&buf, sampleReport(), &llm.Summary{Done: "d", Next: "n"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Standup Report", got["title"])
	assert.Len(t, got["done_activity"], 1)
	assert.Len(t, got["next_activity"], 1)
	assert.Equal(t, "d", got["summary"].(map[string]any)["done"])
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderMarkdown(&buf, sampleReport(), nil))

	out := buf.String()
	assert.Contains(t, out, "# Standup Report")
	assert.Contains(t, out, "- [Fix <login> & logout](https://github.com/acme/app/pull/1) `acme/app` MERGED APPROVED, 3h ago")
	assert.Contains(t, out, "  > shipped to prod")
	assert.Contains(t, out, "[Sprint planning](https://calendar.google.com/event?eid=1)")
}

func TestRenderSlack_EscapesTitles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderSlack(&buf, sampleReport(), nil))

	out := buf.String()
	assert.Contains(t, out, "*Standup Report*")
	assert.Contains(t, out, "<https://github.com/acme/app/pull/1|Fix &lt;login&gt; &amp; logout>")
	assert.Contains(t, out, "<https://linear.app/acme/issue/ENG-42|Add billing page> (ENG-42) STARTED")
	assert.Contains(t, out, "_shipped to prod_")
}

func TestSlackLink_NoURL(t *testing.T) {
	assert.Equal(t, "a &amp; b", slackLink("", "a & b"))
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderCSV(&buf, sampleReport(), nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Section,Type,ID,Title,URL,Status,At,Note", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "done,PR,acme/app/pull/1,"))
	assert.True(t, strings.HasPrefix(lines[2], "next,Issue,issue-42,"))
	assert.True(t, strings.HasPrefix(lines[3], "meeting,Meeting,evt-1,Sprint planning"))
}

func TestReportRun_UnknownFormat(t *testing.T) {
	testEnv(t)

	err := reportRun(context.Background(), 24, "yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestReportRun_MissingConfig(t *testing.T) {
	testEnv(t)

	err := reportRun(context.Background(), 24, "table", false)
	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"github.login", "github.username", "github.token"}, cfgErr.Missing)
}

func TestReportRun_SummarizeWithoutKey(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	viper.Set("github.login", "octo")
	viper.Set("github.username", "octocat")
	viper.Set("github.token", "ghp_test")

	err := reportRun(context.Background(), 24, "table", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--summarize")
}

const searchPage = `{"data":{"search":{"issueCount":1,"pageInfo":{"hasNextPage":false,"endCursor":null},"nodes":[
 {"number":%d,"title":"%s","url":"https://github.com/acme/app/pull/%d","state":"%s",
  "createdAt":"%s","mergedAt":null,"updatedAt":"%s",
  "reviewDecision":null,"author":{"login":"octocat"},"repository":{"nameWithOwner":"acme/app"},
  "closingIssuesReferences":{"nodes":[]}}]}}}`

func TestReportRun_EndToEnd(t *testing.T) {
	testEnv(t)

	recent := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if strings.Contains(body.Variables["searchQuery"], "updated:>") {
			fmt.Fprintf(w, searchPage, 1, "Fix login", 1, "MERGED", recent, recent)
			return
		}
		fmt.Fprintf(w, searchPage, 2, "Add billing", 2, "OPEN", recent, recent)
	}))
	defer srv.Close()

	viper.Set("github.login", "octo")
	viper.Set("github.username", "octocat")
	viper.Set("github.token", "ghp_test")
	viper.Set("github.graphql_url", srv.URL+"/graphql")
	viper.Set("github.rest_url", srv.URL+"/api")

	s, err := getStore()
	require.NoError(t, err)
	require.NoError(t, s.SetNote(context.Background(), models.Note{
		Type: models.ItemTypePR, ID: "acme/app/pull/2", Category: models.NoteCategoryNext, Text: "needs review",
	}))

	require.NoError(t, reportRun(context.Background(), 24, "markdown", false))

	out := outString()
	assert.Contains(t, out, "## Done")
	assert.Contains(t, out, "[Fix login](https://github.com/acme/app/pull/1)")
	assert.Contains(t, out, "[Add billing](https://github.com/acme/app/pull/2)")
	assert.Contains(t, out, "  > needs review")
}

func TestReportRun_CorruptCalendarTokenDegrades(t *testing.T) {
	dir := testEnv(t)

	recent := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, searchPage, 1, "Fix login", 1, "MERGED", recent, recent)
	}))
	defer srv.Close()

	viper.Set("github.login", "octo")
	viper.Set("github.username", "octocat")
	viper.Set("github.token", "ghp_test")
	viper.Set("github.graphql_url", srv.URL+"/graphql")
	viper.Set("github.rest_url", srv.URL+"/api")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google_token.json"), []byte("{not json"), 0o600))

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.True(t, cfg.Google.Configured())
	s, err := getStore()
	require.NoError(t, err)

	builder, err := newReportBuilder(context.Background(), cfg, s)
	require.NoError(t, err)
	require.NotNil(t, builder)

	rep, err := builder.Build(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "google calendar", rep.Errors[0].Source)
	assert.Contains(t, rep.Errors[0].Message, "load calendar token")

	require.NoError(t, reportRun(context.Background(), 24, "markdown", false))
	assert.Contains(t, outString(), "[Fix login](https://github.com/acme/app/pull/1)")
	assert.Contains(t, ui.ErrOut.(*bytes.Buffer).String(), "google calendar unavailable")
}
