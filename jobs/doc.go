// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package jobs is a small persisted job queue.

Jobs live in the job table. Enqueue takes a db.Querier so a job can commit
together with the change that caused it:

	_, err := jobs.Enqueue(ctx, tx, jobs.KindReminder, assemblyID, key, runAt, payload)

The dedupe key is unique among pending and running jobs, so enqueueing the
same key twice while the first job is outstanding is a no-op. Once a job is
done or failed its key can be used again.

A Worker polls for due jobs, claims each one with a conditional update and
records the outcome (status, attempts, last_error) on the row.
*/
package jobs
