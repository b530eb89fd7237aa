// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the HOA assembly API.

# Handler Types

Each handler is a thin struct over the assembly service:

  - AssemblyHandler: Assembly lifecycle, quorum, attendee sync, minutes
  - AgendaHandler: Agenda items and their start/end/defer transitions
  - AttendeeHandler: Roster, check-in, check-out, RSVP
  - VotingHandler: Ballots, including the public email vote link
  - ResultsHandler: Per-item tallies and ballot listings
  - ReminderHandler: Reminder scheduling and batch history
  - EventsHandler: Server-sent event stream per assembly

Handlers are created via constructor functions:

	assemblyHandler := handlers.NewAssemblyHandler(svc)

# Authentication

Every route except POST /email-votes expects the actor placed in the
request context by middleware.RequireActor. Permission checks live in the
assembly service; handlers only translate errors.

# Errors

Service errors map to status codes through StatusFor:

	ErrNotFound                  → 404
	ErrValidation, ErrInvalidState → 400
	ErrNotPermitted, ErrVotingNotOpen → 403
	ErrDuplicateVote, ErrInvalidStateTransition → 409

Anything else is logged and answered with 500.
*/
package handlers
