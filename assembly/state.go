// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"time"

	"github.com/danielhkuo/hoa-assembly/models"
)

// transitions lists the legal target states of every non-terminal state.
var transitions = map[string][]string{
	models.StatusDraft:      {models.StatusScheduled, models.StatusCancelled},
	models.StatusScheduled:  {models.StatusConvened, models.StatusInProgress, models.StatusCancelled},
	models.StatusConvened:   {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusAdjourned, models.StatusCancelled},
}

// CanTransition reports whether an assembly may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled || status == models.StatusAdjourned
}

// dateOf truncates t to midnight of its calendar day in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DefaultPreVotingWindow is the window applied at creation when pre-voting is
// enabled without explicit dates: from seven days before the meeting until
// the day before it.
func DefaultPreVotingWindow(scheduledAt time.Time, loc *time.Location) (start, end time.Time) {
	day := dateOf(scheduledAt, loc)
	return day.AddDate(0, 0, -7), day.AddDate(0, 0, -1)
}

// PreVotingWindow returns the calendar dates bounding pre-voting, each
// defaulting to the scheduled date when unset.
func PreVotingWindow(a models.Assembly, loc *time.Location) (start, end time.Time) {
	start = dateOf(a.ScheduledAt, loc)
	end = start
	if a.PreVotingStart != nil {
		start = dateOf(*a.PreVotingStart, loc)
	}
	if a.PreVotingEnd != nil {
		end = dateOf(*a.PreVotingEnd, loc)
	}
	return start, end
}

// IsPreVotingActive reports whether ballots cast at now count as pre-votes:
// pre-voting is enabled, today lies within the window (inclusive) and the
// assembly is scheduled or convened.
func IsPreVotingActive(a models.Assembly, now time.Time, loc *time.Location) bool {
	if !a.PreVotingEnabled {
		return false
	}
	if a.Status != models.StatusScheduled && a.Status != models.StatusConvened {
		return false
	}
	today := dateOf(now, loc)
	start, end := PreVotingWindow(a, loc)
	return !today.Before(start) && !today.After(end)
}

// VotingOpen reports whether any ballot may be cast right now.
func VotingOpen(a models.Assembly, now time.Time, loc *time.Location) bool {
	return a.Status == models.StatusInProgress || IsPreVotingActive(a, now, loc)
}
