// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/hoa-assembly/jobs"
	"github.com/danielhkuo/hoa-assembly/testutil"
)

type payload struct {
	Note string `json:"note"`
}

func TestEnqueue_DedupeWhileActive(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	runAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ok, err := jobs.Enqueue(ctx, conn, "test", "", "key-1", runAt, payload{Note: "first"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected first enqueue to insert")
	}

	ok, err = jobs.Enqueue(ctx, conn, "test", "", "key-1", runAt, payload{Note: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected duplicate dedupe key to be ignored while pending")
	}

	ok, err = jobs.Enqueue(ctx, conn, "test", "", "key-2", runAt, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected a different key to insert")
	}
}

func TestWorker_RunDue(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := jobs.Enqueue(ctx, conn, "test", "", "due", now.Add(-time.Minute), payload{Note: "due"}); err != nil {
		t.Fatal(err)
	}
	if _, err := jobs.Enqueue(ctx, conn, "test", "", "later", now.Add(time.Hour), payload{Note: "later"}); err != nil {
		t.Fatal(err)
	}

	var seen []string
	w := jobs.NewWorker(conn, time.Second)
	w.SetClock(func() time.Time { return now })
	w.Register("test", func(ctx context.Context, job jobs.Job) error {
		var p payload
		if err := job.Decode(&p); err != nil {
			return err
		}
		seen = append(seen, p.Note)
		return nil
	})

	ran, err := w.RunDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ran != 1 || len(seen) != 1 || seen[0] != "due" {
		t.Fatalf("expected only the due job to run, ran=%d seen=%v", ran, seen)
	}

	// Nothing left until the clock moves.
	ran, err = w.RunDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ran != 0 {
		t.Errorf("expected no jobs on second pass, ran %d", ran)
	}

	w.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
	if ran, err = w.RunDue(ctx); err != nil || ran != 1 {
		t.Fatalf("expected later job to run, ran=%d err=%v", ran, err)
	}

	// A finished job frees its dedupe key.
	ok, err := jobs.Enqueue(ctx, conn, "test", "", "due", now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected dedupe key to be reusable after the job finished")
	}
}

func TestWorker_RecordsFailures(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, kind := range []string{"broken", "panics", "unregistered"} {
		if _, err := jobs.Enqueue(ctx, conn, kind, "", kind, now, nil); err != nil {
			t.Fatal(err)
		}
	}

	w := jobs.NewWorker(conn, time.Second)
	w.SetClock(func() time.Time { return now })
	w.Register("broken", func(ctx context.Context, job jobs.Job) error {
		return errors.New("smtp down")
	})
	w.Register("panics", func(ctx context.Context, job jobs.Job) error {
		panic("boom")
	})

	ran, err := w.RunDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ran != 3 {
		t.Fatalf("expected 3 jobs to run, got %d", ran)
	}

	rows, err := conn.Query(`SELECT kind, status, attempts, last_error FROM job ORDER BY kind`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, status, lastError string
		var attempts int
		if err := rows.Scan(&kind, &status, &attempts, &lastError); err != nil {
			t.Fatal(err)
		}
		if status != jobs.StatusFailed {
			t.Errorf("%s: expected failed, got %s", kind, status)
		}
		if attempts != 1 {
			t.Errorf("%s: expected 1 attempt, got %d", kind, attempts)
		}
		if lastError == "" {
			t.Errorf("%s: expected last_error to be recorded", kind)
		}
	}
}

func TestList(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()

	// job.assembly_id has no foreign key, so any id works here.
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, err := jobs.Enqueue(ctx, conn, "b", "asm-1", "k2", base.Add(time.Hour), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := jobs.Enqueue(ctx, conn, "a", "asm-1", "k1", base, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := jobs.Enqueue(ctx, conn, "c", "asm-2", "k3", base, nil); err != nil {
		t.Fatal(err)
	}

	list, err := jobs.List(ctx, conn, "asm-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if list[0].Kind != "a" || list[1].Kind != "b" {
		t.Errorf("expected jobs ordered by run time, got %s, %s", list[0].Kind, list[1].Kind)
	}
	if list[0].Status != jobs.StatusPending {
		t.Errorf("expected pending, got %s", list[0].Status)
	}
}

func TestWorker_ReleasesAbandonedJobs(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	for _, key := range []string{"crashed", "unclaimed", "busy", "exhausted"} {
		if _, err := jobs.Enqueue(ctx, conn, "test", "asm-1", key, now.Add(-time.Hour), payload{Note: key}); err != nil {
			t.Fatal(err)
		}
	}

	// Simulate workers that died after claiming.
	stale := now.Add(-time.Hour).UTC()
	fresh := now.Add(-time.Minute).UTC()
	updates := []struct {
		key       string
		claimedAt any
		attempts  int
	}{
		{"crashed", stale, 1},
		{"unclaimed", nil, 0},
		{"busy", fresh, 1},
		{"exhausted", stale, 3},
	}
	for _, u := range updates {
		if _, err := conn.Exec(`UPDATE job SET status = $1, claimed_at = $2, attempts = $3 WHERE dedupe_key = $4`,
			jobs.StatusRunning, u.claimedAt, u.attempts, u.key); err != nil {
			t.Fatal(err)
		}
	}

	// The sweep cannot re-enqueue while the row is still active.
	ok, err := jobs.Enqueue(ctx, conn, "test", "asm-1", "crashed", now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected running job to hold its dedupe key")
	}

	var seen []string
	w := jobs.NewWorker(conn, time.Second)
	w.SetClock(func() time.Time { return now })
	w.SetLease(10 * time.Minute)
	w.Register("test", func(ctx context.Context, job jobs.Job) error {
		var p payload
		if err := job.Decode(&p); err != nil {
			return err
		}
		seen = append(seen, p.Note)
		return nil
	})

	ran, err := w.RunDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ran != 2 {
		t.Fatalf("expected the 2 abandoned jobs to run again, ran %d (%v)", ran, seen)
	}

	list, err := jobs.List(ctx, conn, "asm-1")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"crashed":   jobs.StatusDone,
		"unclaimed": jobs.StatusDone,
		"busy":      jobs.StatusRunning,
		"exhausted": jobs.StatusFailed,
	}
	for _, job := range list {
		if job.Status != want[job.DedupeKey] {
			t.Errorf("%s: expected %s, got %s", job.DedupeKey, want[job.DedupeKey], job.Status)
		}
	}

	// A released key can be enqueued again.
	ok, err = jobs.Enqueue(ctx, conn, "test", "asm-1", "crashed", now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected dedupe key to be free once the abandoned job finished")
	}
}
