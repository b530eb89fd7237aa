// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first (if present); variables
already set in the process environment are never overwritten by it.

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type: sqlite, postgres (lib/pq) or pgx
	-base-url         Public URL used when building email links
	-tz               IANA timezone for reminder times
	-sweep-interval   Reminder sweep interval (default 1h)
	-worker-interval  Job queue poll interval (default 30s)
	-token-secret     Token signing secret

# Environment Variables

Flags fall back to environment variables:

	PORT              → -p
	DATABASE_URL      → -d
	DATABASE_TYPE     → -t
	BASE_URL          → -base-url
	ASSEMBLY_TIMEZONE → -tz
	SWEEP_INTERVAL    → -sweep-interval
	WORKER_INTERVAL   → -worker-interval
	TOKEN_SECRET      → -token-secret

Email delivery is configured through the environment only:

	EMAIL_FROM, RESEND_API_KEY,
	SMTP_ENABLED, SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if DATABASE_URL or TOKEN_SECRET is missing, the
database type is unknown, the timezone cannot be loaded, or a duration does
not parse.
*/
package cliparse
