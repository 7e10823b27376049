package models

import (
	"fmt"
	"time"
)

// PRState is the lifecycle state reported by the code-hosting API.
// The empty value means the upstream state was not recognized.
type PRState string

const (
	PRStateOpen   PRState = "OPEN"
	PRStateClosed PRState = "CLOSED"
	PRStateMerged PRState = "MERGED"
)

// ParsePRState matches s case-sensitively. Unknown values map to "".
func ParsePRState(s string) PRState {
	switch PRState(s) {
	case PRStateOpen, PRStateClosed, PRStateMerged:
		return PRState(s)
	}
	return ""
}

// ReviewDecision is the aggregated review outcome of a pull request.
type ReviewDecision string

const (
	ReviewApproved         ReviewDecision = "APPROVED"
	ReviewChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	ReviewRequired         ReviewDecision = "REVIEW_REQUIRED"
)

// ParseReviewDecision matches s case-sensitively. Unknown values map to "".
func ParseReviewDecision(s string) ReviewDecision {
	switch ReviewDecision(s) {
	case ReviewApproved, ReviewChangesRequested, ReviewRequired:
		return ReviewDecision(s)
	}
	return ""
}

// PullRequest is a pull request authored by the configured user.
type PullRequest struct {
	Number         int            `json:"number"`
	RepoSlug       string         `json:"repo_slug"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Author         string         `json:"author"`
	CreatedAt      time.Time      `json:"created_at"`
	MergedAt       *time.Time     `json:"merged_at,omitempty"`
	State          PRState        `json:"state,omitempty"`
	LastChange     time.Time      `json:"last_change"`
	ReviewDecision ReviewDecision `json:"review_decision,omitempty"`
	LinkedIssues   []string       `json:"linked_issues,omitempty"`
}

// UID is the stable identifier used for ignoring and annotating the PR.
func (pr PullRequest) UID() string {
	return fmt.Sprintf("%s/pull/%d", pr.RepoSlug, pr.Number)
}

// IsMerged reports whether the upstream state is MERGED.
func (pr PullRequest) IsMerged() bool {
	return pr.State == PRStateMerged
}

func (pr PullRequest) ItemKey() ItemKey {
	return ItemKey{Type: ItemTypePR, ID: pr.UID()}
}

func (pr PullRequest) ItemTitle() string {
	return pr.Title
}
