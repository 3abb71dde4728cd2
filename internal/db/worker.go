package db

import (
	"context"
	"database/sql"
	"sync"
)

// TxFn runs inside a write transaction owned by the Worker.
type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker serializes all writes onto one goroutine so SQLite sees a single
// writer.  Reads may use the *sql.DB directly.
type Worker struct {
	db        *sql.DB
	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains queued jobs and stops the worker.  Do must not be called after
// Close.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.jobs) })
	<-w.done
}

// Do runs fn in a transaction and returns its error or the commit error.
// If ctx ends first Do returns ctx.Err(); a job already dequeued still runs
// to completion.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)

	select {
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
