package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

// RunStore keeps archived runs in memory.  It is intended for tests, the CLI
// and dev environments.
type RunStore struct {
	mu   sync.RWMutex
	runs []store.RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{}
}

func (s *RunStore) RecordRun(_ context.Context, rec store.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec = clone(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, rec)
	return nil
}

func (s *RunStore) GetRun(_ context.Context, id string) (store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.runs {
		if r.ID == id {
			return clone(r), nil
		}
	}
	return store.RunRecord{}, store.ErrNotFound
}

func (s *RunStore) ListRuns(_ context.Context, limit int) ([]store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.RunRecord, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, clone(s.runs[i]))
	}
	slices.SortStableFunc(out, func(a, b store.RunRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RunStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.runs[:0]
	var deleted int64
	for _, r := range s.runs {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.runs = kept
	return deleted, nil
}

func clone(r store.RunRecord) store.RunRecord {
	r.Skipped = append([]types.SkippedFile(nil), r.Skipped...)
	return r
}
