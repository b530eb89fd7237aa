// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package assembly implements owners' assemblies of a building.

A Service owns the assembly lifecycle

	draft -> scheduled -> convened -> in_progress -> completed | adjourned
	         (any non-terminal status)             -> cancelled

the attendee roster with its quorum, the agenda and the ballot ledger.

Every mutation runs in one transaction holding the assembly row lock
(SELECT ... FOR UPDATE on PostgreSQL, the single connection on SQLite), so
quorum and tallies never observe a half-applied change.

Quorum is weighted by mills. An attendee counts when present, when they
pre-voted or when they hold any ballot in the assembly. Once achieved,
quorum_achieved stays set for the rest of the meeting.

Ballots snapshot the attendee's mills when first cast. Staff may override a
ballot during the session; its mills are kept and the change is noted.

Errors are sentinel values (ErrNotFound, ErrDuplicateVote, ...). Kind maps a
wrapped error back to its name for API responses.
*/
package assembly
