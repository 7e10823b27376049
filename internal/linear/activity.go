package linear

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/inesp/standup-report/internal/models"
)

type activityPage struct {
	CreatedIssues struct {
		Nodes []rawIssue `json:"nodes"`
	} `json:"created_issues"`
	StateChangedIssues struct {
		Nodes []rawIssue `json:"nodes"`
	} `json:"state_changed_issues"`
	CommentedIssues struct {
		Nodes []struct {
			UpdatedAt string    `json:"updatedAt"`
			Issue     *rawIssue `json:"issue"`
		} `json:"nodes"`
	} `json:"commented_issues"`
}

// FetchActivity returns one activity per issue the user touched since the
// given time, most important first. Only the first page is read.
func (c *Client) FetchActivity(ctx context.Context, since time.Time) ([]models.IssueActivity, error) {
	resp, err := c.query(ctx, activityQuery, map[string]any{
		"email":   c.cfg.Email,
		"gt_date": since.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch issue activity: %w", err)
	}

	var page activityPage
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}

	return collectActivity(page, since, c.now()), nil
}

// collectActivity folds the three buckets into one entry per issue. Buckets
// are applied in order created, state changed, commented and a later bucket
// replaces whatever an earlier one recorded for the same issue.
func collectActivity(page activityPage, since, now time.Time) []models.IssueActivity {
	byID := make(map[string]models.IssueActivity)

	for _, raw := range page.CreatedIssues.Nodes {
		byID[raw.ID] = models.IssueActivity{
			Issue:        raw.toIssue(),
			ActivityType: models.ActivityCreated,
			ActivityAt:   parseTime(raw.CreatedAt),
		}
	}

	for _, raw := range page.StateChangedIssues.Nodes {
		activity, at := inferActivity(raw, since, now)
		byID[raw.ID] = models.IssueActivity{
			Issue:        raw.toIssue(),
			ActivityType: activity,
			ActivityAt:   at,
		}
	}

	for _, comment := range page.CommentedIssues.Nodes {
		if comment.Issue == nil {
			continue
		}
		raw := *comment.Issue
		byID[raw.ID] = models.IssueActivity{
			Issue:        raw.toIssue(),
			ActivityType: models.ActivityCommented,
			ActivityAt:   parseTime(comment.UpdatedAt),
		}
	}

	out := make([]models.IssueActivity, 0, len(byID))
	for _, a := range byID {
		slog.Debug("issue activity", "ident", a.Ident, "activity", a.ActivityType, "at", a.ActivityAt)
		out = append(out, a)
	}
	sortActivity(out)
	return out
}

// sortActivity orders by title and identifier, then stably by importance,
// most important first.
func sortActivity(items []models.IssueActivity) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].Ident < items[j].Ident
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].ActivityType > items[j].ActivityType })
}

// inferActivity decides what happened to an issue that changed state. Of the
// completed, canceled and started timestamps inside the window, the latest
// one wins; equal timestamps go to the more important activity. With no
// candidate the result is (Unknown, now).
func inferActivity(raw rawIssue, since, now time.Time) (models.ActivityType, time.Time) {
	candidates := []struct {
		at       *string
		activity models.ActivityType
	}{
		{raw.CompletedAt, models.ActivityCompleted},
		{raw.CanceledAt, models.ActivityCanceled},
		{raw.StartedAt, models.ActivityWorkedOn},
	}

	best := models.ActivityUnknown
	var bestAt time.Time
	for _, c := range candidates {
		at, ok := parseOptionalTime(c.at)
		if !ok || at.Before(since) {
			continue
		}
		if best == models.ActivityUnknown || at.After(bestAt) || (at.Equal(bestAt) && c.activity > best) {
			best, bestAt = c.activity, at
		}
	}

	if best == models.ActivityUnknown {
		slog.Error("could not identify any activity on issue", "id", raw.ID, "ident", raw.Identifier,
			"started_at", deref(raw.StartedAt), "completed_at", deref(raw.CompletedAt), "canceled_at", deref(raw.CanceledAt))
		return models.ActivityUnknown, now
	}
	return best, bestAt
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
