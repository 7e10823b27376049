package report

import (
	"sync"
	"time"
)

// Latest holds the most recent report built in the background.
type Latest struct {
	mu      sync.RWMutex
	rep     *Report
	builtAt time.Time
	err     error
}

// Set records the outcome of a background build. A failed build keeps the
// previous report.
func (l *Latest) Set(rep *Report, err error, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
	if err == nil {
		l.rep = rep
		l.builtAt = at
	}
}

// Get returns the last good report, when it was built, and the error of the
// most recent attempt.
func (l *Latest) Get() (*Report, time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rep, l.builtAt, l.err
}
