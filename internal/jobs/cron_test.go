package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/report"
)

type fakeBuilder struct {
	hours []int
	err   error
}

func (f *fakeBuilder) Build(_ context.Context, hours int) (*report.Report, error) {
	f.hours = append(f.hours, hours)
	if f.err != nil {
		return nil, f.err
	}
	return &report.Report{BuildID: "b1", Hours: hours}, nil
}

func TestNewCron_InvalidSpec(t *testing.T) {
	_, err := NewCron("every morning", time.UTC, &fakeBuilder{}, &report.Latest{}, 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report schedule")
}

func TestNewCron_SecondsFieldRejected(t *testing.T) {
	_, err := NewCron("0 0 9 * * 1-5", time.UTC, &fakeBuilder{}, &report.Latest{}, 24)
	require.Error(t, err)
}

func TestCron_Next(t *testing.T) {
	cr, err := NewCron("30 9 * * 1-5", time.UTC, &fakeBuilder{}, &report.Latest{}, 24)
	require.NoError(t, err)
	cr.Start()
	defer cr.Stop()

	next := cr.Next()
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())
}

func TestCron_RunStoresReport(t *testing.T) {
	b := &fakeBuilder{}
	latest := &report.Latest{}
	cr, err := NewCron("@daily", time.UTC, b, latest, 72)
	require.NoError(t, err)
	at := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	cr.now = func() time.Time { return at }

	cr.Run()

	assert.Equal(t, []int{72}, b.hours)
	rep, builtAt, err := latest.Get()
	require.NoError(t, err)
	assert.Equal(t, "b1", rep.BuildID)
	assert.Equal(t, at, builtAt)
}

func TestCron_RunRecordsFailure(t *testing.T) {
	latest := &report.Latest{}
	cr, err := NewCron("@daily", time.UTC, &fakeBuilder{err: errors.New("store locked")}, latest, 24)
	require.NoError(t, err)

	cr.Run()

	rep, _, err := latest.Get()
	assert.Nil(t, rep)
	assert.EqualError(t, err, "store locked")
}
