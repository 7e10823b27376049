package linear

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inesp/standup-report/internal/models"
)

type openIssuesPage struct {
	OpenIssues struct {
		Nodes []rawIssue `json:"nodes"`
	} `json:"open_issues"`
}

// FetchOpenIssues returns issues assigned to the user that are not yet
// completed or canceled. Only the first page is read.
func (c *Client) FetchOpenIssues(ctx context.Context) ([]models.Issue, error) {
	resp, err := c.query(ctx, openIssuesQuery, map[string]any{"email": c.cfg.Email})
	if err != nil {
		return nil, fmt.Errorf("fetch open issues: %w", err)
	}

	var page openIssuesPage
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(page.OpenIssues.Nodes))
	for _, raw := range page.OpenIssues.Nodes {
		issue := raw.toIssue()
		slog.Debug("open issue", "ident", issue.Ident, "state", issue.State)
		issues = append(issues, issue)
	}
	return issues, nil
}
