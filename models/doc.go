// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

Rows persisted by the assembly core:

  - Assembly: one HOA meeting for one building, with quorum, pre-voting
    window, minutes, and per-kind reminder flags
  - AgendaItem: ordered topic of an assembly, optionally voted on
  - Attendee: one voting entity per apartment, weighted by mills
  - AssemblyVote: one ballot per (agenda item, attendee)

Rows owned by neighbouring modules and read by the core:

  - Building, Apartment, Account
  - SharedVote, VoteSubmission: the cross-module vote used for project approvals

# Result Types

  - QuorumStatus: present vs. required mills
  - VoteResults: per-choice counts and mills, split by vote source
  - ReminderBatch: sent/skipped/failed counts of one reminder dispatch

# Constants

Assembly status values:

	StatusDraft      = "draft"
	StatusScheduled  = "scheduled"
	StatusConvened   = "convened"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusAdjourned  = "adjourned"

Ballot choices: approve, reject, abstain. Ballot sources: pre_vote, live, proxy.

Reminder kinds, in firing order:

	ReminderInitial, Reminder7Days, Reminder3Days, Reminder1Day, ReminderSameDay
*/
package models
