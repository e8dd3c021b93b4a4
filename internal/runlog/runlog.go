// Package runlog records batch run outcomes so operators can see what ran,
// when, and with what result. Two backends exist: postgres for the shared
// staging database and sqlite for local or single-node use.
package runlog

import (
	"context"
	"time"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Entry represents one batch run.
type Entry struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Log provides read/write access to the batch run log.
type Log interface {
	// Start records the beginning of a batch run and returns its id.
	Start(ctx context.Context, source string) (string, error)
	// Complete marks a run as successfully completed with summary metadata.
	Complete(ctx context.Context, runID string, metadata map[string]any) error
	// Fail marks a run as failed with an error message.
	Fail(ctx context.Context, runID string, errMsg string) error
	// List returns all runs ordered by most recent first.
	List(ctx context.Context) ([]Entry, error)
	// Close releases the backing store.
	Close() error
}
