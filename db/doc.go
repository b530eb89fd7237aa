// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens database connections and creates the schema.

# Drivers

Open picks the driver from the configured type:

  - sqlite: modernc.org/sqlite (pure Go, single connection)
  - postgres: github.com/lib/pq
  - pgx: github.com/jackc/pgx/v5/stdlib

	conn, dialect, err := db.Open("sqlite", "file:hoa.db")

All queries use $N placeholders, which every driver accepts. Dialect
supplies the few fragments that differ (row locks). IsUniqueViolation
recognizes duplicate-key errors from each driver.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - account, building, apartment, project: Directory data owned elsewhere
  - assembly: Lifecycle, quorum snapshot, reminder flags, minutes
  - agenda_item: Ordered items, optionally linked to a vote
  - assembly_attendee: One row per apartment with its mills snapshot
  - assembly_vote: One ballot per attendee per item
  - vote, vote_submission: Standalone votes mirrored from ballots
  - job: Deferred work with an active-only dedupe key
  - reminder_batch: Per-run delivery counts

# Relationships

	building 1──* apartment
	building 1──* assembly
	assembly 1──* agenda_item
	assembly 1──* assembly_attendee
	agenda_item 1──* assembly_vote
	agenda_item 0..1──1 vote (linked_vote_id)
	vote 1──* vote_submission
	assembly 1──* reminder_batch
*/
package db
