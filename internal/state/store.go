// Package state records the history of preview runs in a local SQLite
// database, so past runs can be listed and inspected after the console
// output is gone.
package state

import (
	"context"
	"time"
)

// RunStatus is the overall outcome of a run.
type RunStatus string

// Run statuses.
const (
	// RunStatusCompleted means every statement succeeded and the preview
	// was written.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusPartial means the preview was written but some statements
	// failed.
	RunStatusPartial RunStatus = "partial"
	// RunStatusFailed means the preview could not be written.
	RunStatusFailed RunStatus = "failed"
)

// Run is one recorded preview run.
type Run struct {
	ID          string
	TargetType  string
	TargetURI   string
	PreviewPath string
	Status      RunStatus
	Total       int
	Succeeded   int
	Failed      int
	Rows        int
	StartedAt   time.Time
	Duration    time.Duration
	Error       string
}

// StatementRun is the outcome of one statement within a run.
type StatementRun struct {
	Index     int
	Statement string
	Succeeded bool
	Rows      int
	Error     string
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, run *Run, stmts []StatementRun) error
}

// Store records runs and reads them back.
type Store interface {
	Recorder

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// GetRun returns a run and its statements in execution order. The ID
	// may be abbreviated to any unique prefix.
	GetRun(ctx context.Context, id string) (*Run, []StatementRun, error)

	Close() error
}
