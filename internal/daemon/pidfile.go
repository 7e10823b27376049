// Package daemon tracks the background report server through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ServerPIDName is the PID file of `standup serve start`, kept next to the config.
const ServerPIDName = "standup-serve.pid"

// ServerLogName receives the background server's stdout and stderr.
const ServerLogName = "standup-serve.log"

// AlreadyRunningError is returned by Claim when a live process owns the file.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("server already running (pid %d)", e.PID)
}

// PIDFile manages a PID file for daemon process tracking.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// ForServer returns the server PID file inside dir.
func ForServer(dir string) *PIDFile {
	return NewPIDFile(filepath.Join(dir, ServerPIDName))
}

// Write writes the current process's PID to the file.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID writes the given PID to the file.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Claim records pid unless a live process already owns the file. A file
// left behind by a dead process is replaced.
func (p *PIDFile) Claim(pid int) error {
	if running, ok := p.IsRunning(); ok {
		return &AlreadyRunningError{PID: running}
	}
	return p.WritePID(pid)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// RemoveStale deletes the file when its process is gone. It reports whether
// a stale file was removed.
func (p *PIDFile) RemoveStale() bool {
	if _, err := os.Stat(p.Path); err != nil {
		return false
	}
	if _, ok := p.IsRunning(); ok {
		return false
	}
	return !errors.Is(p.Remove(), os.ErrNotExist)
}
