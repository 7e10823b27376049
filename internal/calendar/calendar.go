// Package calendar lists the user's calendars and the meetings they attended
// in the report window.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/oauth2"

	"github.com/inesp/standup-report/internal/config"
	"github.com/inesp/standup-report/internal/models"
	"github.com/inesp/standup-report/internal/remote"
)

const (
	responseAccepted  = "accepted"
	responseTentative = "tentative"
)

type Client struct {
	cfg    config.Google
	remote *remote.Client
	now    func() time.Time
}

// New builds a Client whose requests carry the token from ts.
func New(ctx context.Context, cfg config.Google, ts oauth2.TokenSource, timeout time.Duration) *Client {
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = timeout
	return &Client{cfg: cfg, remote: remote.NewClientWithHTTP(hc), now: time.Now}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.CalendarURL, "/") + "/" + path
}

type calendarList struct {
	Items []struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
	} `json:"items"`
}

// FetchCalendars lists the user's calendars minus the ignored ones.
func (c *Client) FetchCalendars(ctx context.Context) ([]models.Calendar, error) {
	resp, err := c.remote.GetREST(ctx, c.endpoint("users/me/calendarList"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	var list calendarList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}

	ignored := toSet(c.cfg.IgnoredCalendars)
	var cals []models.Calendar
	for _, item := range list.Items {
		if _, skip := ignored[item.Summary]; skip {
			slog.Debug("skipping ignored calendar", "calendar", item.Summary)
			continue
		}
		cals = append(cals, models.Calendar{Title: item.Summary, RemoteID: item.ID})
	}
	return cals, nil
}

// FetchMeetings returns meetings that started between since and now across
// all calendars, ordered by start time. Calendars are queried concurrently
// with at most cfg.Workers requests in flight; a calendar whose request
// fails contributes nothing.
func (c *Client) FetchMeetings(ctx context.Context, since time.Time) ([]models.Meeting, error) {
	cals, err := c.FetchCalendars(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	p := pool.NewWithResults[[]models.Meeting]().WithMaxGoroutines(max(c.cfg.Workers, 1))
	for _, cal := range cals {
		p.Go(func() []models.Meeting {
			meetings, err := c.fetchEvents(ctx, cal, since, now)
			if err != nil {
				slog.Error("fetching calendar events failed", "calendar", cal.Title, "error", err)
				return nil
			}
			return meetings
		})
	}

	var all []models.Meeting
	for _, batch := range p.Wait() {
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return all, nil
}

type eventList struct {
	Items []rawEvent `json:"items"`
}

type rawEvent struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	HTMLLink string `json:"htmlLink"`
	Start    struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	Attendees []struct {
		Email          string `json:"email"`
		ResponseStatus string `json:"responseStatus"`
		Self           bool   `json:"self"`
	} `json:"attendees"`
}

func (c *Client) fetchEvents(ctx context.Context, cal models.Calendar, since, now time.Time) ([]models.Meeting, error) {
	params := url.Values{}
	params.Set("timeMin", since.Format(time.RFC3339))
	params.Set("timeMax", now.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")

	resp, err := c.remote.GetREST(ctx, c.endpoint("calendars/"+url.PathEscape(cal.RemoteID)+"/events"), nil, params)
	if err != nil {
		return nil, err
	}
	var events eventList
	if err := resp.Decode(&events); err != nil {
		return nil, err
	}

	ignoredTitles := toSet(c.cfg.IgnoredMeetings)
	var meetings []models.Meeting
	for _, ev := range events.Items {
		if _, skip := ignoredTitles[ev.Summary]; skip {
			continue
		}
		m, err := toMeeting(ev, cal)
		if err != nil {
			slog.Warn("skipping event with unreadable start", "event", ev.ID, "error", err)
			continue
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func toMeeting(ev rawEvent, cal models.Calendar) (models.Meeting, error) {
	start, err := parseStart(ev.Start.DateTime, ev.Start.Date)
	if err != nil {
		return models.Meeting{}, err
	}
	m := models.Meeting{
		Title:     ev.Summary,
		Calendar:  cal,
		URL:       ev.HTMLLink,
		RemoteID:  ev.ID,
		StartTime: start,
	}
	for _, a := range ev.Attendees {
		if a.Self {
			continue
		}
		if a.ResponseStatus == responseAccepted || a.ResponseStatus == responseTentative {
			m.Attendees = append(m.Attendees, a.Email)
		}
	}
	return m, nil
}

// parseStart prefers the timed start; all-day events start at local midnight.
func parseStart(dateTime, date string) (time.Time, error) {
	if dateTime != "" {
		return time.Parse(time.RFC3339, dateTime)
	}
	if date != "" {
		return time.ParseInLocation(time.DateOnly, date, time.Local)
	}
	return time.Time{}, fmt.Errorf("event has no start")
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
