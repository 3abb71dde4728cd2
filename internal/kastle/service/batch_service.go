// Package service orchestrates batches: normalize and reconcile each file,
// merge, aggregate, and archive the run.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jvanhook93/Kastle-script/internal/kastle/ingest"
	"github.com/jvanhook93/Kastle-script/internal/kastle/reconcile"
	"github.com/jvanhook93/Kastle-script/internal/kastle/report"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
	"github.com/jvanhook93/Kastle-script/internal/metrics"
)

var (
	ErrNoFiles    = errors.New("no files uploaded")
	ErrBatchEmpty = errors.New("no valid data processed")
)

// BatchEmptyError is returned when every file in a batch was skipped.
type BatchEmptyError struct {
	Skipped []types.SkippedFile
}

func (e *BatchEmptyError) Error() string {
	return fmt.Sprintf("%s (%d file(s) skipped)", ErrBatchEmpty, len(e.Skipped))
}

func (e *BatchEmptyError) Unwrap() error { return ErrBatchEmpty }

var tracer = otel.Tracer("kastle.service")

type BatchConfig struct {
	// MaxParallelFiles bounds concurrent per-file workers.  Defaults to 4.
	MaxParallelFiles int
}

type BatchService struct {
	norm        *ingest.Normalizer
	runs        store.RunStore
	metrics     *metrics.Metrics
	logger      *zap.Logger
	maxParallel int
	now         func() time.Time
}

// NewBatchService wires a batch processor.  runs and m may be nil; a nil
// runs store disables archiving.
func NewBatchService(norm *ingest.Normalizer, runs store.RunStore, m *metrics.Metrics, logger *zap.Logger, cfg BatchConfig) *BatchService {
	if norm == nil {
		norm = ingest.NewNormalizer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxParallel := cfg.MaxParallelFiles
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &BatchService{
		norm:        norm,
		runs:        runs,
		metrics:     m,
		logger:      logger,
		maxParallel: maxParallel,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Process reconciles every file independently, then merges the results in
// upload order.  A file that cannot be used is reported in Skipped; the
// batch fails only when no file produced sessions or ctx is done.
func (s *BatchService) Process(ctx context.Context, outputName string, files []types.FileInput) (*types.BatchReport, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "kastle.BatchService.Process",
		trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	results := make([]types.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processFile(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch canceled")
		s.metrics.ObserveBatch("error", time.Since(start), 0, nil)
		return nil, fmt.Errorf("process batch: %w", err)
	}

	rep := &types.BatchReport{
		RunID:      uuid.NewString(),
		CreatedAt:  s.now(),
		OutputName: report.OutputName(outputName),
		Files:      results,
		Skipped:    []types.SkippedFile{},
		Sessions:   []types.Session{},
	}
	for _, r := range results {
		if r.Err != nil {
			rep.Skipped = append(rep.Skipped, types.SkippedFile{Filename: r.Filename, Reason: r.SkipReason})
			continue
		}
		rep.Sessions = append(rep.Sessions, r.Sessions...)
	}

	if len(rep.Sessions) == 0 {
		span.SetStatus(codes.Error, "batch empty")
		s.metrics.ObserveBatch("empty", time.Since(start), 0, nil)
		s.logger.Warn("batch produced no sessions",
			zap.Int("files", len(files)),
			zap.Int("skipped", len(rep.Skipped)))
		return nil, &BatchEmptyError{Skipped: rep.Skipped}
	}

	rep.Discrepancies = reconcile.Discrepancies(rep.Sessions)
	rep.DailySummaries = reconcile.DailyTotals(rep.Sessions)
	rep.People = reconcile.PersonTotals(rep.DailySummaries)

	s.archive(ctx, rep)

	issues := make(map[string]int)
	for _, d := range rep.Discrepancies {
		issues[d.Issue]++
	}
	elapsed := time.Since(start)
	s.metrics.ObserveBatch("ok", elapsed, len(rep.Sessions), issues)

	span.SetAttributes(
		attribute.String("run_id", rep.RunID),
		attribute.Int("sessions", len(rep.Sessions)),
		attribute.Int("discrepancies", len(rep.Discrepancies)),
		attribute.Int("skipped", len(rep.Skipped)),
	)
	s.logger.Info("batch processed",
		zap.String("run_id", rep.RunID),
		zap.Int("files", len(files)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Int("sessions", len(rep.Sessions)),
		zap.Int("discrepancies", len(rep.Discrepancies)),
		zap.Duration("elapsed", elapsed))

	return rep, nil
}

func (s *BatchService) processFile(ctx context.Context, f types.FileInput) types.FileResult {
	_, span := tracer.Start(ctx, "kastle.BatchService.processFile",
		trace.WithAttributes(attribute.String("filename", f.Name)))
	defer span.End()

	out := types.FileResult{Filename: f.Name}

	res, err := s.norm.Normalize(f.Name, f.Data)
	if err == nil {
		out.Events = len(res.Events)
		out.DroppedRows = res.DroppedRows
		out.Sessions, err = reconcile.Reconcile(res.Events)
	}
	if err != nil {
		out.Err = err
		out.SkipReason = skipReason(err)
		out.Sessions = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, "file skipped")
		s.metrics.FileSkipped()
		s.logger.Info("file skipped",
			zap.String("filename", f.Name),
			zap.String("reason", out.SkipReason))
		return out
	}

	s.metrics.FileProcessed(res.DroppedRows)
	if res.DroppedRows > 0 {
		s.logger.Debug("rows dropped for unparseable timestamp",
			zap.String("filename", f.Name),
			zap.Int("dropped", res.DroppedRows))
	}
	span.SetAttributes(
		attribute.Int("events", out.Events),
		attribute.Int("sessions", len(out.Sessions)))
	return out
}

func skipReason(err error) string {
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}

// archive records the run.  A failed write is logged and does not fail
// the batch.
func (s *BatchService) archive(ctx context.Context, rep *types.BatchReport) {
	if s.runs == nil {
		return
	}
	rec := store.RunRecord{
		ID:               rep.RunID,
		CreatedAt:        rep.CreatedAt,
		OutputName:       rep.OutputName,
		FilesTotal:       len(rep.Files),
		FilesSkipped:     len(rep.Skipped),
		SessionCount:     len(rep.Sessions),
		DiscrepancyCount: len(rep.Discrepancies),
		Skipped:          rep.Skipped,
	}
	if err := s.runs.RecordRun(ctx, rec); err != nil {
		s.logger.Error("archive run", zap.String("run_id", rep.RunID), zap.Error(err))
	}
}

// Runs lists archived runs, newest first.
func (s *BatchService) Runs(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if s.runs == nil {
		return []store.RunRecord{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}
