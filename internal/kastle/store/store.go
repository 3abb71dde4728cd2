package store

import (
	"context"
	"errors"
	"time"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

var ErrNotFound = errors.New("run not found")

// RunRecord is the archived outcome of one batch.  Only counts and skip
// reasons are kept; sessions are never persisted.
type RunRecord struct {
	ID               string
	CreatedAt        time.Time
	OutputName       string
	FilesTotal       int
	FilesSkipped     int
	SessionCount     int
	DiscrepancyCount int
	Skipped          []types.SkippedFile
}

// RunStore is an append-only archive of processed batches.
type RunStore interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, error)
	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
