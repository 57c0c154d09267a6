// Package storage defines the run history interface and its SQLite implementation.
package storage

import (
	"context"

	"xdigest/internal/model"
)

// Storage is the interface for run history persistence.
type Storage interface {
	RecordRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	LastRun(ctx context.Context, outcome model.Outcome) (*model.Run, error)

	Close() error
}
