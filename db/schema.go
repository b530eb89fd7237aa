// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The statements below stay within the SQL understood by both PostgreSQL and
// SQLite. Timestamps are always written in UTC.
const schema = `
-- Accounts, buildings and apartments (owned by neighbouring modules)
CREATE TABLE IF NOT EXISTS account (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    full_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'resident'
);

CREATE TABLE IF NOT EXISTS building (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    total_mills BIGINT NOT NULL DEFAULT 1000
);

CREATE TABLE IF NOT EXISTS apartment (
    id TEXT PRIMARY KEY,
    building_id TEXT NOT NULL REFERENCES building(id) ON DELETE CASCADE,
    number TEXT NOT NULL,
    mills BIGINT NOT NULL DEFAULT 0,
    owner_user_id TEXT REFERENCES account(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_apartment_building_id ON apartment(building_id);

CREATE TABLE IF NOT EXISTS project (
    id TEXT PRIMARY KEY,
    building_id TEXT NOT NULL REFERENCES building(id) ON DELETE CASCADE,
    title TEXT NOT NULL
);

-- Assemblies
CREATE TABLE IF NOT EXISTS assembly (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    building_id TEXT NOT NULL REFERENCES building(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scheduled_at TIMESTAMP NOT NULL,
    estimated_duration_min INTEGER NOT NULL DEFAULT 120,
    location TEXT NOT NULL DEFAULT '',
    meeting_link TEXT NOT NULL DEFAULT '',
    is_online BOOLEAN NOT NULL DEFAULT FALSE,
    total_building_mills BIGINT NOT NULL DEFAULT 1000,
    required_quorum_percentage NUMERIC(5,2) NOT NULL DEFAULT 50,
    achieved_quorum_mills BIGINT NOT NULL DEFAULT 0,
    quorum_achieved BOOLEAN NOT NULL DEFAULT FALSE,
    quorum_achieved_at TIMESTAMP,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'scheduled', 'convened', 'in_progress', 'completed', 'cancelled', 'adjourned')),
    pre_voting_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    pre_voting_start TIMESTAMP,
    pre_voting_end TIMESTAMP,
    invitation_sent BOOLEAN NOT NULL DEFAULT FALSE,
    invitation_sent_at TIMESTAMP,
    actual_start_time TIMESTAMP,
    actual_end_time TIMESTAMP,
    minutes_text TEXT NOT NULL DEFAULT '',
    minutes_approved BOOLEAN NOT NULL DEFAULT FALSE,
    minutes_approved_at TIMESTAMP,
    email_initial_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_initial_sent_at TIMESTAMP,
    email_7days_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_7days_sent_at TIMESTAMP,
    email_3days_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_3days_sent_at TIMESTAMP,
    email_1day_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_1day_sent_at TIMESTAMP,
    email_sameday_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_sameday_sent_at TIMESTAMP,
    continued_from_id TEXT REFERENCES assembly(id) ON DELETE SET NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (achieved_quorum_mills <= total_building_mills)
);

CREATE INDEX IF NOT EXISTS idx_assembly_building_id ON assembly(building_id);
CREATE INDEX IF NOT EXISTS idx_assembly_status ON assembly(status);

-- Shared votes (cross-module)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    building_id TEXT NOT NULL REFERENCES building(id) ON DELETE CASCADE,
    project_id TEXT REFERENCES project(id) ON DELETE SET NULL,
    agenda_item_id TEXT,
    title TEXT NOT NULL,
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL,
    min_participation NUMERIC(5,2) NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_vote_project_id ON vote(project_id);

CREATE TABLE IF NOT EXISTS vote_submission (
    id TEXT PRIMARY KEY,
    vote_id TEXT NOT NULL REFERENCES vote(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    choice TEXT NOT NULL CHECK (choice IN ('YES', 'NO', 'BLANK')),
    source TEXT NOT NULL DEFAULT 'live',
    submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (vote_id, user_id)
);

-- Agenda items
CREATE TABLE IF NOT EXISTS agenda_item (
    id TEXT PRIMARY KEY,
    assembly_id TEXT NOT NULL REFERENCES assembly(id) ON DELETE CASCADE,
    item_order INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    item_type TEXT NOT NULL CHECK (item_type IN ('informational', 'discussion', 'voting', 'approval')),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed', 'deferred', 'cancelled')),
    voting_type TEXT NOT NULL DEFAULT 'simple_majority',
    allows_pre_voting BOOLEAN NOT NULL DEFAULT FALSE,
    linked_vote_id TEXT UNIQUE REFERENCES vote(id) ON DELETE SET NULL,
    project_id TEXT REFERENCES project(id) ON DELETE SET NULL,
    estimated_duration_min INTEGER NOT NULL DEFAULT 0,
    actual_duration_min INTEGER,
    started_at TIMESTAMP,
    ended_at TIMESTAMP,
    decision TEXT NOT NULL DEFAULT '',
    decision_type TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (assembly_id, item_order)
);

-- Attendees: one voting entity per apartment
CREATE TABLE IF NOT EXISTS assembly_attendee (
    id TEXT PRIMARY KEY,
    assembly_id TEXT NOT NULL REFERENCES assembly(id) ON DELETE CASCADE,
    apartment_id TEXT NOT NULL,
    apartment_number TEXT NOT NULL DEFAULT '',
    user_id TEXT,
    mills BIGINT NOT NULL,
    rsvp_status TEXT NOT NULL DEFAULT 'pending',
    rsvp_notes TEXT NOT NULL DEFAULT '',
    rsvp_at TIMESTAMP,
    is_present BOOLEAN NOT NULL DEFAULT FALSE,
    checked_in_at TIMESTAMP,
    checked_out_at TIMESTAMP,
    attendance_type TEXT NOT NULL DEFAULT '',
    proxy_apartment_id TEXT,
    has_pre_voted BOOLEAN NOT NULL DEFAULT FALSE,
    pre_voted_at TIMESTAMP,
    UNIQUE (assembly_id, apartment_id)
);

CREATE INDEX IF NOT EXISTS idx_attendee_user_id ON assembly_attendee(user_id);

-- Ballots
CREATE TABLE IF NOT EXISTS assembly_vote (
    id TEXT PRIMARY KEY,
    assembly_id TEXT NOT NULL REFERENCES assembly(id) ON DELETE CASCADE,
    agenda_item_id TEXT NOT NULL REFERENCES agenda_item(id) ON DELETE CASCADE,
    attendee_id TEXT NOT NULL REFERENCES assembly_attendee(id) ON DELETE CASCADE,
    vote TEXT NOT NULL CHECK (vote IN ('approve', 'reject', 'abstain')),
    mills BIGINT NOT NULL,
    vote_source TEXT NOT NULL CHECK (vote_source IN ('pre_vote', 'live', 'proxy')),
    voted_by TEXT,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (agenda_item_id, attendee_id)
);

CREATE INDEX IF NOT EXISTS idx_assembly_vote_attendee ON assembly_vote(attendee_id);

-- Deferred jobs
CREATE TABLE IF NOT EXISTS job (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    assembly_id TEXT,
    payload TEXT NOT NULL DEFAULT '{}',
    dedupe_key TEXT NOT NULL,
    run_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'running', 'done', 'failed')),
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    claimed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_job_active_dedupe ON job(dedupe_key) WHERE status IN ('pending', 'running');
CREATE INDEX IF NOT EXISTS idx_job_status_run_at ON job(status, run_at);

-- Reminder delivery statistics
CREATE TABLE IF NOT EXISTS reminder_batch (
    id TEXT PRIMARY KEY,
    assembly_id TEXT NOT NULL REFERENCES assembly(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    sent INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reminder_batch_assembly ON reminder_batch(assembly_id);
`
