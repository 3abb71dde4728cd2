package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/jvanhook93/Kastle-script/internal/db"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

type RunStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRunStore(db *sql.DB, writer *dbpkg.Worker) *RunStore {
	return &RunStore{db: db, writer: writer}
}

func (s *RunStore) RecordRun(ctx context.Context, rec store.RunRecord) error {
	if rec.ID == "" {
		return errors.New("RecordRun: empty run id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs(
  run_id, created_at_ms, output_name, files_total, files_skipped,
  session_count, discrepancy_count
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, rec.ID, createdMs, rec.OutputName, rec.FilesTotal, rec.FilesSkipped,
			rec.SessionCount, rec.DiscrepancyCount); err != nil {
			return fmt.Errorf("RecordRun insert run: %w", err)
		}

		for i, sk := range rec.Skipped {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO run_skipped_files(run_id, position, filename, reason)
VALUES (?, ?, ?, ?);
`, rec.ID, i, sk.Filename, sk.Reason); err != nil {
				return fmt.Errorf("RecordRun insert skipped file %q: %w", sk.Filename, err)
			}
		}
		return nil
	})
}

func (s *RunStore) GetRun(ctx context.Context, id string) (store.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT run_id, created_at_ms, output_name, files_total, files_skipped,
       session_count, discrepancy_count
FROM runs WHERE run_id = ?;
`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.RunRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.RunRecord{}, fmt.Errorf("GetRun: %w", err)
	}

	skipped, err := s.skippedFor(ctx, []string{rec.ID})
	if err != nil {
		return store.RunRecord{}, err
	}
	rec.Skipped = skipped[rec.ID]
	return rec, nil
}

// ListRuns returns runs newest first.  limit <= 0 means no limit.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, created_at_ms, output_name, files_total, files_skipped,
       session_count, discrepancy_count
FROM runs
ORDER BY created_at_ms DESC, run_id
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}

	var (
		out []store.RunRecord
		ids []string
	)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("ListRuns scan: %w", err)
		}
		out = append(out, rec)
		ids = append(ids, rec.ID)
	}
	// Close before the next query: the pool holds a single connection.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("ListRuns close: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRuns rows: %w", err)
	}

	skipped, err := s.skippedFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Skipped = skipped[out[i].ID]
	}
	return out, nil
}

// PruneOlderThan deletes runs created before cutoff; their skipped-file rows
// go with them via ON DELETE CASCADE.
func (s *RunStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at_ms < ?;`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

func (s *RunStore) skippedFor(ctx context.Context, ids []string) (map[string][]types.SkippedFile, error) {
	out := make(map[string][]types.SkippedFile, len(ids))
	for _, id := range ids {
		rows, err := s.db.QueryContext(ctx, `
SELECT filename, reason FROM run_skipped_files
WHERE run_id = ?
ORDER BY position;
`, id)
		if err != nil {
			return nil, fmt.Errorf("load skipped files for %s: %w", id, err)
		}
		for rows.Next() {
			var sk types.SkippedFile
			if err := rows.Scan(&sk.Filename, &sk.Reason); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan skipped file: %w", err)
			}
			out[id] = append(out[id], sk)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.RunRecord, error) {
	var (
		rec       store.RunRecord
		createdMs int64
	)
	if err := sc.Scan(
		&rec.ID, &createdMs, &rec.OutputName, &rec.FilesTotal, &rec.FilesSkipped,
		&rec.SessionCount, &rec.DiscrepancyCount,
	); err != nil {
		return store.RunRecord{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, nil
}
