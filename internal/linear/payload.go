package linear

import (
	"log/slog"
	"time"

	"github.com/inesp/standup-report/internal/models"
)

type rawAttachment struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updatedAt"`
}

type rawIssue struct {
	ID          string  `json:"id"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	CreatedAt   string  `json:"createdAt"`
	StartedAt   *string `json:"startedAt"`
	CompletedAt *string `json:"completedAt"`
	CanceledAt  *string `json:"canceledAt"`
	State       struct {
		Type string `json:"type"`
	} `json:"state"`
	Attachments struct {
		Nodes []rawAttachment `json:"nodes"`
	} `json:"attachments"`
}

func (r rawIssue) toIssue() models.Issue {
	issue := models.Issue{
		ID:    r.ID,
		Ident: r.Identifier,
		Title: r.Title,
		URL:   r.URL,
		State: models.ParseIssueState(r.State.Type),
	}
	for _, a := range r.Attachments.Nodes {
		issue.Attachments = append(issue.Attachments, models.IssueAttachment{
			URL:       a.URL,
			Title:     a.Title,
			UpdatedAt: parseTime(a.UpdatedAt),
		})
	}
	return issue
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		slog.Warn("unparseable timestamp", "value", s, "error", err)
		return time.Time{}
	}
	return t
}

func parseOptionalTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t := parseTime(*s)
	return t, !t.IsZero()
}
