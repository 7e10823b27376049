package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inesp/standup-report/internal/models"
)

type searchPage struct {
	Search struct {
		IssueCount int `json:"issueCount"`
		PageInfo   struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []prNode `json:"nodes"`
	} `json:"search"`
}

type prNode struct {
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	State          string  `json:"state"`
	CreatedAt      string  `json:"createdAt"`
	MergedAt       *string `json:"mergedAt"`
	UpdatedAt      string  `json:"updatedAt"`
	ReviewDecision *string `json:"reviewDecision"`
	Author         *struct {
		Login string `json:"login"`
	} `json:"author"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	ClosingIssuesReferences struct {
		Nodes []struct {
			URL string `json:"url"`
		} `json:"nodes"`
	} `json:"closingIssuesReferences"`
}

// FetchRecentPRs returns PRs the user authored that changed after since.
func (c *Client) FetchRecentPRs(ctx context.Context, since time.Time) ([]models.PullRequest, error) {
	return c.fetchByQuery(ctx, RecentPRsQuery(c.cfg.Username, since))
}

// FetchOpenPRs returns the user's open PRs.
func (c *Client) FetchOpenPRs(ctx context.Context) ([]models.PullRequest, error) {
	return c.fetchByQuery(ctx, OpenPRsQuery(c.cfg.Username))
}

// fetchByQuery pages through search results while the server reports more
// pages. The query carries no cursor, so every iteration receives the first
// page again; the loop ends as soon as a page contributes nothing new.
func (c *Client) fetchByQuery(ctx context.Context, searchQuery string) ([]models.PullRequest, error) {
	if err := ValidateSearchQuery(searchQuery); err != nil {
		return nil, err
	}

	ignored := c.cfg.IgnoredRepoSet()
	seen := make(map[string]struct{})
	var prs []models.PullRequest

	for page := 1; ; page++ {
		resp, err := c.query(ctx, prsQuery, map[string]any{"searchQuery": searchQuery})
		if err != nil {
			return nil, fmt.Errorf("search pull requests (page %d): %w", page, err)
		}

		var data searchPage
		if err := resp.Decode(&data); err != nil {
			return nil, err
		}

		added := 0
		for _, node := range data.Search.Nodes {
			pr, ok := normalizePR(node, ignored)
			if !ok {
				continue
			}
			if _, dup := seen[pr.UID()]; dup {
				continue
			}
			seen[pr.UID()] = struct{}{}
			prs = append(prs, pr)
			added++
		}

		if !data.Search.PageInfo.HasNextPage {
			break
		}
		if added == 0 {
			slog.Warn("search reports more pages but the query is not cursored; stopping",
				"query", searchQuery, "page", page, "total", data.Search.IssueCount)
			break
		}
	}

	slog.Debug("fetched pull requests", "query", searchQuery, "count", len(prs))
	return prs, nil
}

// normalizePR converts one search node. Nodes that are not pull requests
// (no number) and PRs in ignored repositories are dropped.
func normalizePR(node prNode, ignoredRepos map[string]struct{}) (models.PullRequest, bool) {
	if node.Number == 0 || node.Repository.NameWithOwner == "" {
		return models.PullRequest{}, false
	}
	if _, skip := ignoredRepos[node.Repository.NameWithOwner]; skip {
		slog.Info("ignoring PR in ignored repository", "number", node.Number, "repo", node.Repository.NameWithOwner)
		return models.PullRequest{}, false
	}

	pr := models.PullRequest{
		Number:     node.Number,
		RepoSlug:   node.Repository.NameWithOwner,
		Title:      node.Title,
		URL:        node.URL,
		CreatedAt:  parseTime(node.CreatedAt),
		State:      models.ParsePRState(node.State),
		LastChange: parseTime(node.UpdatedAt),
	}
	if node.Author != nil {
		pr.Author = node.Author.Login
	}
	if node.MergedAt != nil && *node.MergedAt != "" {
		t := parseTime(*node.MergedAt)
		pr.MergedAt = &t
	}
	if node.ReviewDecision != nil {
		pr.ReviewDecision = models.ParseReviewDecision(*node.ReviewDecision)
	}
	for _, ref := range node.ClosingIssuesReferences.Nodes {
		pr.LinkedIssues = append(pr.LinkedIssues, ref.URL)
	}
	return pr, true
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
