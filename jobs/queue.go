// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/db"
)

// Job status constants
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job kinds
const (
	KindReminder         = "assembly_reminder"
	KindVoteConfirmation = "vote_confirmation"
)

type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	AssemblyID string          `json:"assembly_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	DedupeKey  string          `json:"dedupe_key"`
	RunAt      time.Time       `json:"run_at"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(j.Payload, v)
}

// Enqueue inserts a pending job. When a pending or running job with the same
// dedupe key already exists nothing is inserted and false is returned.
// Passing a *sql.Tx makes the enqueue part of the caller's transaction.
func Enqueue(ctx context.Context, q db.Querier, kind, assemblyID, dedupeKey string, runAt time.Time, payload any) (bool, error) {
	raw := []byte("{}")
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return false, fmt.Errorf("failed to encode job payload: %w", err)
		}
	}

	var asmID *string
	if assemblyID != "" {
		asmID = &assemblyID
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO job (id, kind, assembly_id, payload, dedupe_key, run_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`, auth.NewID(), kind, asmID, string(raw), dedupeKey, runAt.UTC(), StatusPending, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s job: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s job: %w", kind, err)
	}
	return n == 1, nil
}

// List returns the jobs recorded for an assembly, oldest run time first.
func List(ctx context.Context, q db.Querier, assemblyID string) ([]Job, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, COALESCE(assembly_id, ''), payload, dedupe_key, run_at, status, attempts, last_error
		FROM job
		WHERE assembly_id = $1
		ORDER BY run_at, kind
	`, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (Job, error) {
	var job Job
	var payload string
	if err := s.Scan(&job.ID, &job.Kind, &job.AssemblyID, &payload, &job.DedupeKey,
		&job.RunAt, &job.Status, &job.Attempts, &job.LastError); err != nil {
		return Job{}, fmt.Errorf("failed to scan job: %w", err)
	}
	job.Payload = json.RawMessage(payload)
	return job, nil
}

// claim moves a pending job to running and stamps the claim time. It returns
// false when another worker got there first.
func claim(ctx context.Context, conn *sql.DB, id string, now time.Time) (bool, error) {
	res, err := conn.ExecContext(ctx, `
		UPDATE job SET status = $1, attempts = attempts + 1, claimed_at = $2
		WHERE id = $3 AND status = $4
	`, StatusRunning, now.UTC(), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return n == 1, nil
}

// recoverStale releases running jobs whose claim is older than the lease, as
// left behind by a worker that died mid-run. Jobs with attempts to spare go
// back to pending; the rest are marked failed. Rows without a claim time are
// treated as stale.
func recoverStale(ctx context.Context, conn *sql.DB, cutoff, now time.Time, maxAttempts int) (requeued, failed int, err error) {
	res, err := conn.ExecContext(ctx, `
		UPDATE job SET status = $1, last_error = $2, finished_at = $3
		WHERE status = $4 AND (claimed_at IS NULL OR claimed_at < $5) AND attempts >= $6
	`, StatusFailed, "lease expired after final attempt", now.UTC(), StatusRunning, cutoff.UTC(), maxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}
	failed = int(n)

	res, err = conn.ExecContext(ctx, `
		UPDATE job SET status = $1, claimed_at = NULL, last_error = $2
		WHERE status = $3 AND (claimed_at IS NULL OR claimed_at < $4)
	`, StatusPending, "lease expired", StatusRunning, cutoff.UTC())
	if err != nil {
		return 0, failed, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, failed, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	return int(n), failed, nil
}

func finish(ctx context.Context, conn *sql.DB, id string, runErr error, now time.Time) error {
	status, lastError := StatusDone, ""
	if runErr != nil {
		status, lastError = StatusFailed, runErr.Error()
	}
	_, err := conn.ExecContext(ctx, `
		UPDATE job SET status = $1, last_error = $2, finished_at = $3
		WHERE id = $4
	`, status, lastError, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	return nil
}
