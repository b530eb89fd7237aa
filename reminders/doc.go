// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reminders schedules and sends assembly reminder emails.

An assembly gets up to five reminders, each sent at most once and tracked by
a per-kind flag on the assembly row:

	initial   09:00 the day after convening
	7days     09:00 seven days before the meeting
	3days     09:00 three days before the meeting
	1day      09:00 the day before the meeting
	sameday   09:00 on the meeting day

Convening an assembly enqueues the series as jobs on the persisted queue
(package jobs). An hourly sweep re-derives which reminders are due and
enqueues any that went missing. Both paths use one dedupe key per kind, so a
kind never has two pending jobs.

When a job fires, the Dispatcher re-checks the flag and the assembly status,
then emails every attendee except those without an address and those who
already voted on every pre-votable item. The flag is set after the batch, in
the same transaction as the batch statistics, unless every send failed.
*/
package reminders
