// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reminders

import (
	"time"

	"github.com/danielhkuo/hoa-assembly/models"
)

// FireHour is the local hour at which every reminder goes out.
const FireHour = 9

// Fire is one scheduled reminder.
type Fire struct {
	Kind models.ReminderKind
	At   time.Time
}

func day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func at9(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), FireHour, 0, 0, 0, d.Location())
}

// targetDay is the calendar day a reminder kind belongs to.
func targetDay(kind models.ReminderKind, convenedAt, scheduledAt time.Time, loc *time.Location) time.Time {
	meeting := day(scheduledAt, loc)
	switch kind {
	case models.ReminderInitial:
		return day(convenedAt, loc).AddDate(0, 0, 1)
	case models.Reminder7Days:
		return meeting.AddDate(0, 0, -7)
	case models.Reminder3Days:
		return meeting.AddDate(0, 0, -3)
	case models.Reminder1Day:
		return meeting.AddDate(0, 0, -1)
	default:
		return meeting
	}
}

// Series computes the reminders of an assembly convened at convenedAt for a
// meeting at scheduledAt, in firing order.
//
// The initial reminder goes out the day after convening unless that is
// already the meeting day. The 7-day, 3-day and 1-day reminders are kept only
// when their day falls after tomorrow and no later than the meeting. The
// same-day reminder is always kept.
func Series(convenedAt, scheduledAt time.Time, loc *time.Location) []Fire {
	if loc == nil {
		loc = time.UTC
	}
	meeting := day(scheduledAt, loc)
	tomorrow := day(convenedAt, loc).AddDate(0, 0, 1)

	var out []Fire
	for _, kind := range models.ReminderKinds {
		target := targetDay(kind, convenedAt, scheduledAt, loc)
		switch kind {
		case models.ReminderSameDay:
		case models.ReminderInitial:
			if !target.Before(meeting) {
				continue
			}
		default:
			if !target.After(tomorrow) || target.After(meeting) {
				continue
			}
		}
		out = append(out, Fire{Kind: kind, At: at9(target)})
	}
	return out
}

// Due returns the reminder kinds that should have gone out by now and have
// not, according to the assembly's flags. A kind is due from 09:00 on its day
// until the end of that day; the initial reminder stays due until the
// meeting day.
func Due(a models.Assembly, now time.Time, loc *time.Location) []models.ReminderKind {
	if loc == nil {
		loc = time.UTC
	}
	convened := a.CreatedAt
	if a.InvitationSentAt != nil {
		convened = *a.InvitationSentAt
	}
	today := day(now, loc)
	meeting := day(a.ScheduledAt, loc)

	var due []models.ReminderKind
	for _, f := range Series(convened, a.ScheduledAt, loc) {
		if a.ReminderSent(f.Kind) || now.Before(f.At) {
			continue
		}
		if f.Kind == models.ReminderInitial {
			if today.Before(meeting) {
				due = append(due, f.Kind)
			}
			continue
		}
		if today.Equal(day(f.At, loc)) {
			due = append(due, f.Kind)
		}
	}
	return due
}
