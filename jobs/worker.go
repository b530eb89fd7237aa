// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultBatchSize   = 50
	defaultLease       = 10 * time.Minute
	defaultMaxAttempts = 3
)

// Handler runs one job. A returned error marks the job failed.
type Handler func(ctx context.Context, job Job) error

// Worker polls the job table and runs due jobs through registered handlers.
type Worker struct {
	db       *sql.DB
	handlers map[string]Handler
	interval    time.Duration
	batch       int
	lease       time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewWorker(conn *sql.DB, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		db:          conn,
		handlers:    map[string]Handler{},
		interval:    interval,
		batch:       defaultBatchSize,
		lease:       defaultLease,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// SetClock replaces the worker's time source.
func (w *Worker) SetClock(now func() time.Time) {
	w.now = now
}

// SetLease sets how long a claimed job may stay running before it is
// considered abandoned.
func (w *Worker) SetLease(lease time.Duration) {
	if lease > 0 {
		w.lease = lease
	}
}

// Register binds a handler to a job kind.
func (w *Worker) Register(kind string, h Handler) {
	w.handlers[kind] = h
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("job worker pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunDue executes every pending job whose run time has passed and returns how
// many jobs it ran. Abandoned running jobs are released first.
func (w *Worker) RunDue(ctx context.Context) (int, error) {
	now := w.now()
	requeued, failed, err := recoverStale(ctx, w.db, now.Add(-w.lease), now, w.maxAttempts)
	if err != nil {
		return 0, err
	}
	if requeued > 0 || failed > 0 {
		slog.Warn("released abandoned jobs", "requeued", requeued, "failed", failed)
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(assembly_id, ''), payload, dedupe_key, run_at, status, attempts, last_error
		FROM job
		WHERE status = $1 AND run_at <= $2
		ORDER BY run_at
		LIMIT $3
	`, StatusPending, now.UTC(), w.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to query due jobs: %w", err)
	}

	var due []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		due = append(due, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read due jobs: %w", err)
	}

	ran := 0
	for _, job := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		ok, err := claim(ctx, w.db, job.ID, w.now())
		if err != nil {
			return ran, err
		}
		if !ok {
			continue
		}
		job.Status = StatusRunning
		job.Attempts++

		runErr := w.execute(ctx, job)
		if runErr != nil {
			slog.Error("job failed", "job_id", job.ID, "kind", job.Kind, "assembly_id", job.AssemblyID, "error", runErr)
		}
		if err := finish(ctx, w.db, job.ID, runErr, w.now()); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (w *Worker) execute(ctx context.Context, job Job) (err error) {
	h, ok := w.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("no handler registered for %q", job.Kind)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(ctx, job)
}
