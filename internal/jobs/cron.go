// Package jobs prebuilds reports on a cron schedule for the server.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inesp/standup-report/internal/report"
)

const buildTimeout = 2 * time.Minute

type builder interface {
	Build(ctx context.Context, hours int) (*report.Report, error)
}

// Cron rebuilds the report on schedule and stores it in a report.Latest.
type Cron struct {
	c       *cron.Cron
	builder builder
	latest  *report.Latest
	hours   int
	now     func() time.Time
}

// NewCron parses a five-field spec, or a descriptor such as @daily, in loc.
func NewCron(spec string, loc *time.Location, b builder, latest *report.Latest, hours int) (*Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)))
	cr := &Cron{c: c, builder: b, latest: latest, hours: hours, now: time.Now}
	if _, err := c.AddFunc(spec, cr.Run); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running build to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

// Next is the next scheduled run.
func (cr *Cron) Next() time.Time {
	entries := cr.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run builds one report immediately.
func (cr *Cron) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	slog.Info("cron: building report", "hours", cr.hours)
	rep, err := cr.builder.Build(ctx, cr.hours)
	cr.latest.Set(rep, err, cr.now())
	if err != nil {
		slog.Error("cron: report build failed", "error", err)
		return
	}
	slog.Info("cron: report ready", "build_id", rep.BuildID, "done", len(rep.Done), "next", len(rep.Next),
		"failed_sources", len(rep.Errors))
}
