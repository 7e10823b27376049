package models

import (
	"strings"
	"time"
)

// IssueState is the workflow state of a tracker issue. The numeric order is
// used for "at or past started" thresholding, never for recency.
type IssueState int

const (
	IssueStateUnknown IssueState = iota
	IssueStateUnstarted
	IssueStateStarted
	IssueStateCanceled
	IssueStateCompleted
)

var issueStateNames = map[IssueState]string{
	IssueStateUnknown:   "UNKNOWN",
	IssueStateUnstarted: "UNSTARTED",
	IssueStateStarted:   "STARTED",
	IssueStateCanceled:  "CANCELED",
	IssueStateCompleted: "COMPLETED",
}

func (s IssueState) String() string {
	if name, ok := issueStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s IssueState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseIssueState maps a tracker workflow state type to an IssueState.
// triage and backlog count as not yet started. Unknown input yields
// IssueStateUnknown.
func ParseIssueState(s string) IssueState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "triage", "backlog", "unstarted":
		return IssueStateUnstarted
	case "started":
		return IssueStateStarted
	case "canceled", "cancelled":
		return IssueStateCanceled
	case "completed":
		return IssueStateCompleted
	}
	return IssueStateUnknown
}

// ActivityType classifies what happened to an issue. Higher means more
// important; only the most important activity per issue is shown.
type ActivityType int

const (
	ActivityUnknown ActivityType = iota
	ActivityCommented
	ActivityCreated
	ActivityCanceled
	ActivityWorkedOn
	ActivityCompleted
)

var activityNames = map[ActivityType]string{
	ActivityUnknown:   "UNKNOWN",
	ActivityCommented: "COMMENTED",
	ActivityCreated:   "CREATED",
	ActivityCanceled:  "CANCELED",
	ActivityWorkedOn:  "WORKED_ON",
	ActivityCompleted: "COMPLETED",
}

func (a ActivityType) String() string {
	if name, ok := activityNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

func (a ActivityType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// IssueAttachment is a pull request linked to a tracker issue.
type IssueAttachment struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortTitle returns the part of the title before the first colon.
func (a IssueAttachment) ShortTitle() string {
	title, _, _ := strings.Cut(a.Title, ":")
	return strings.TrimSpace(title)
}

// Issue is a tracker issue assigned to the configured user.
type Issue struct {
	ID          string            `json:"id"`
	Ident       string            `json:"ident"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	State       IssueState        `json:"state"`
	Attachments []IssueAttachment `json:"attachments,omitempty"`
}

// AttachmentURLs returns the set of linked pull request URLs.
func (i Issue) AttachmentURLs() map[string]struct{} {
	urls := make(map[string]struct{}, len(i.Attachments))
	for _, a := range i.Attachments {
		urls[a.URL] = struct{}{}
	}
	return urls
}

// HasAttachmentIn reports whether any linked PR URL is present in urls.
func (i Issue) HasAttachmentIn(urls map[string]struct{}) bool {
	for _, a := range i.Attachments {
		if _, ok := urls[a.URL]; ok {
			return true
		}
	}
	return false
}

func (i Issue) ItemKey() ItemKey {
	return ItemKey{Type: ItemTypeIssue, ID: i.Ident}
}

func (i Issue) ItemTitle() string {
	return i.Title
}

// IssueActivity is an issue together with the single most relevant thing
// that happened to it within the report window.
type IssueActivity struct {
	Issue
	ActivityType ActivityType `json:"activity_type"`
	ActivityAt   time.Time    `json:"activity_at"`
}
