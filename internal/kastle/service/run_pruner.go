package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
)

// RunPruner periodically deletes archived runs older than a configurable
// retention period.  It runs as a background goroutine and is safe to stop
// via its context or the Stop method.
//
// A retention of 0 disables pruning entirely.
type RunPruner struct {
	store     store.RunStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

// PrunerConfig holds the parameters for NewRunPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of run history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewRunPruner creates a pruner but does not start it.
func NewRunPruner(s store.RunStore, cfg PrunerConfig, logger *zap.Logger) *RunPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is canceled or Stop is called.  Calls after the first are no-ops.
func (p *RunPruner) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.retention <= 0 {
			p.logger.Info("run pruner disabled", zap.Int("retention_days", 0))
			close(p.done)
			return
		}

		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)

		p.logger.Info("run pruner started",
			zap.Int("retention_days", int(p.retention.Hours()/24)),
			zap.Duration("interval", p.interval))
	})
}

// Stop signals the pruner to exit and waits for it.  Stop before Start is
// a no-op.
func (p *RunPruner) Stop() {
	started := true
	p.startOnce.Do(func() {
		started = false
		close(p.done)
	})
	if started && p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *RunPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *RunPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("run prune", zap.Error(err))
		}
		return
	}
	if deleted > 0 {
		p.logger.Info("runs pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
