// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the HOA assembly API server.

The server runs homeowners' association general assemblies: scheduling,
attendee registration, quorum by ownership mills, agenda items with
mills-weighted ballots, email vote links, reminder emails and minutes.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:hoa.db TOKEN_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --token-secret dev

A .env file in the working directory is loaded first; real environment
variables win over it.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - TOKEN_SECRET (--token-secret): HMAC secret for actor and vote-link tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres (lib/pq) or pgx (default: sqlite)
  - BASE_URL (--base-url): Public URL used in email vote links
  - ASSEMBLY_TIMEZONE (--tz): Zone for reminder send times (default: UTC)
  - SWEEP_INTERVAL, WORKER_INTERVAL: Background loop periods
  - RESEND_API_KEY, EMAIL_FROM, SMTP_*: Email delivery

# Architecture

  - assembly: Assembly lifecycle, attendees, quorum, agenda, ballots, minutes
  - votesync: Mirroring ballots to and from the standalone vote records
  - reminders: Reminder scheduling sweep and batch dispatch
  - jobs: Persisted job queue and worker
  - notify: Email rendering and delivery (Resend, SMTP or log)
  - realtime: In-process event hub for server-sent events
  - handlers, router, middleware: HTTP surface
  - auth: Actor and vote-link tokens
  - db: Connection, dialects and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
