package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inesp/standup-report/internal/models"
)

const Title = "Standup Report"

// PRSource provides the user's pull requests.
type PRSource interface {
	FetchRecentPRs(ctx context.Context, since time.Time) ([]models.PullRequest, error)
	FetchOpenPRs(ctx context.Context) ([]models.PullRequest, error)
}

// IssueSource provides issue-tracker activity and open issues.
type IssueSource interface {
	FetchActivity(ctx context.Context, since time.Time) ([]models.IssueActivity, error)
	FetchOpenIssues(ctx context.Context) ([]models.Issue, error)
}

// MeetingSource provides the meetings in the report window.
type MeetingSource interface {
	FetchMeetings(ctx context.Context, since time.Time) ([]models.Meeting, error)
}

// UnavailableMeetings returns a MeetingSource that always fails with err, so a
// calendar that cannot be set up still shows up in Report.Errors.
func UnavailableMeetings(err error) MeetingSource {
	return unavailableMeetings{err: err}
}

type unavailableMeetings struct{ err error }

func (u unavailableMeetings) FetchMeetings(context.Context, time.Time) ([]models.Meeting, error) {
	return nil, u.err
}

// OverrideReader is the read side of the override store.
type OverrideReader interface {
	ListIgnoredItems(ctx context.Context) ([]models.IgnoredItem, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
}

// SourceError records a source that failed and was left out of a report.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Entry is one line of the done or next list, with its note joined in.
type Entry struct {
	Type    models.ItemType     `json:"type"`
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	URL     string              `json:"url"`
	Context string              `json:"context"`
	Status  string              `json:"status"`
	At      time.Time           `json:"at"`
	Ago     string              `json:"ago"`
	Note    string              `json:"note,omitempty"`
	Item    models.Identifiable `json:"item"`
}

// Report is a fully built standup report.
type Report struct {
	BuildID  string               `json:"build_id"`
	Title    string               `json:"title"`
	Subtitle string               `json:"subtitle"`
	Since    time.Time            `json:"since"`
	Hours    int                  `json:"hours"`
	Done     []Entry              `json:"done_activity"`
	Next     []Entry              `json:"next_activity"`
	Meetings []models.Meeting     `json:"meetings"`
	Ignored  []models.IgnoredItem `json:"ignored"`
	Notes    []models.Note        `json:"notes"`
	Errors   []SourceError        `json:"errors,omitempty"`
}

// Builder fetches and reconciles reports. Issue and meeting sources are
// optional; a nil source contributes nothing.
type Builder struct {
	prs      PRSource
	issues   IssueSource
	meetings MeetingSource
	store    OverrideReader
	now      func() time.Time
}

func NewBuilder(prs PRSource, issues IssueSource, meetings MeetingSource, store OverrideReader) *Builder {
	return &Builder{prs: prs, issues: issues, meetings: meetings, store: store, now: time.Now}
}

// Build fetches every source for the last hours and reconciles the result.
// A failing source is recorded in Report.Errors and treated as empty; only
// a failing override store fails the build.
func (b *Builder) Build(ctx context.Context, hours int) (*Report, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("hours must be positive, got %d", hours)
	}

	now := b.now().UTC()
	since := now.Add(-time.Duration(hours) * time.Hour)
	buildID := ulid.Make().String()
	log := slog.With("build_id", buildID)
	log.Info("building report", "hours", hours, "since", since)

	rep := &Report{
		BuildID:  buildID,
		Title:    Title,
		Subtitle: Subtitle(hours, since),
		Since:    since,
		Hours:    hours,
	}

	ignored, err := b.store.ListIgnoredItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ignored items: %w", err)
	}
	notes, err := b.store.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	in := Input{Ignored: ignored}
	fail := func(source string, err error) {
		log.Error("source failed, continuing without it", "source", source, "error", err)
		rep.Errors = append(rep.Errors, SourceError{Source: source, Message: err.Error()})
	}

	if in.RecentPRs, err = b.prs.FetchRecentPRs(ctx, since); err != nil {
		fail("github recent pull requests", err)
	}
	if in.OpenPRs, err = b.prs.FetchOpenPRs(ctx); err != nil {
		fail("github open pull requests", err)
	}

	if b.issues != nil {
		if in.Activity, err = b.issues.FetchActivity(ctx, since); err != nil {
			fail("linear activity", err)
		}
		if in.OpenIssues, err = b.issues.FetchOpenIssues(ctx); err != nil {
			fail("linear open issues", err)
		}
	}

	if b.meetings != nil {
		if in.Meetings, err = b.meetings.FetchMeetings(ctx, since); err != nil {
			fail("google calendar", err)
		}
	}

	res := Reconcile(in)

	noteMap := make(map[models.NoteKey]string, len(notes))
	for _, n := range notes {
		noteMap[n.Key()] = n.Text
	}

	rep.Done = toEntries(res.Done, models.NoteCategoryDone, noteMap, now)
	rep.Next = toEntries(res.Next, models.NoteCategoryNext, noteMap, now)
	rep.Meetings = res.Meetings
	rep.Ignored = res.Ignored
	rep.Notes = notes

	log.Info("report built", "done", len(rep.Done), "next", len(rep.Next),
		"meetings", len(rep.Meetings), "failed_sources", len(rep.Errors))
	return rep, nil
}

func toEntries(items []models.Identifiable, category models.NoteCategory, notes map[models.NoteKey]string, now time.Time) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		key := item.ItemKey()
		e := Entry{
			Type:  key.Type,
			ID:    key.ID,
			Title: item.ItemTitle(),
			Note:  notes[models.NoteKey{Type: key.Type, ID: key.ID, Category: category}],
			Item:  item,
		}

		switch v := item.(type) {
		case models.PullRequest:
			e.URL = v.URL
			e.Context = v.RepoSlug
			e.Status = string(v.State)
			if v.ReviewDecision != "" {
				e.Status += " " + string(v.ReviewDecision)
			}
			e.At = v.LastChange
		case models.IssueActivity:
			e.URL = v.URL
			e.Context = v.Ident
			e.Status = v.ActivityType.String()
			e.At = v.ActivityAt
		case models.Issue:
			e.URL = v.URL
			e.Context = v.Ident
			e.Status = v.State.String()
		}
		if !e.At.IsZero() {
			e.Ago = models.Ago(e.At, now)
		}
		entries = append(entries, e)
	}
	return entries
}
