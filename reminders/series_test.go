// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reminders

import (
	"reflect"
	"testing"
	"time"

	"github.com/danielhkuo/hoa-assembly/models"
)

func date(month time.Month, d, hour int) time.Time {
	return time.Date(2026, month, d, hour, 0, 0, 0, time.UTC)
}

func kinds(fires []Fire) []models.ReminderKind {
	out := make([]models.ReminderKind, len(fires))
	for i, f := range fires {
		out[i] = f.Kind
	}
	return out
}

func TestSeries_TenDaysNotice(t *testing.T) {
	fires := Series(date(3, 1, 10), date(3, 11, 18), time.UTC)

	want := []Fire{
		{models.ReminderInitial, date(3, 2, FireHour)},
		{models.Reminder7Days, date(3, 4, FireHour)},
		{models.Reminder3Days, date(3, 8, FireHour)},
		{models.Reminder1Day, date(3, 10, FireHour)},
		{models.ReminderSameDay, date(3, 11, FireHour)},
	}
	if !reflect.DeepEqual(fires, want) {
		t.Errorf("Series() = %v, want %v", fires, want)
	}
}

func TestSeries_ShortNotice(t *testing.T) {
	tests := []struct {
		name      string
		convened  time.Time
		scheduled time.Time
		want      []models.ReminderKind
	}{
		{
			name:      "five days",
			convened:  date(3, 6, 10),
			scheduled: date(3, 11, 18),
			want:      []models.ReminderKind{models.ReminderInitial, models.Reminder3Days, models.Reminder1Day, models.ReminderSameDay},
		},
		{
			name:      "two days",
			convened:  date(3, 9, 10),
			scheduled: date(3, 11, 18),
			want:      []models.ReminderKind{models.ReminderInitial, models.ReminderSameDay},
		},
		{
			name:      "day before",
			convened:  date(3, 10, 10),
			scheduled: date(3, 11, 18),
			want:      []models.ReminderKind{models.ReminderSameDay},
		},
		{
			name:      "same day",
			convened:  date(3, 11, 7),
			scheduled: date(3, 11, 18),
			want:      []models.ReminderKind{models.ReminderSameDay},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(Series(tt.convened, tt.scheduled, time.UTC))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Series() kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeries_LocalFireHour(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		t.Skip("timezone data unavailable")
	}
	fires := Series(date(3, 1, 10), date(3, 11, 16), athens)
	last := fires[len(fires)-1]
	if last.Kind != models.ReminderSameDay {
		t.Fatalf("expected same-day last, got %s", last.Kind)
	}
	// 09:00 in Athens is 07:00 UTC in March.
	if got := last.At.UTC(); !got.Equal(date(3, 11, 7)) {
		t.Errorf("expected 07:00 UTC, got %s", got)
	}
}

func TestDue(t *testing.T) {
	invited := date(3, 1, 10)
	base := models.Assembly{
		ScheduledAt:      date(3, 11, 18),
		Status:           models.StatusConvened,
		InvitationSent:   true,
		InvitationSentAt: &invited,
		CreatedAt:        date(2, 20, 12),
	}
	sentInitial := base
	sentInitial.Reminders = map[models.ReminderKind]models.ReminderFlag{
		models.ReminderInitial: {Sent: true},
	}

	tests := []struct {
		name string
		a    models.Assembly
		now  time.Time
		want []models.ReminderKind
	}{
		{"before first fire", base, date(3, 2, 8), nil},
		{"initial due", base, date(3, 2, 9), []models.ReminderKind{models.ReminderInitial}},
		{"initial still due later", base, date(3, 3, 12), []models.ReminderKind{models.ReminderInitial}},
		{"seven day reminder on its day", base, date(3, 4, 10), []models.ReminderKind{models.ReminderInitial, models.Reminder7Days}},
		{"flag suppresses", sentInitial, date(3, 4, 10), []models.ReminderKind{models.Reminder7Days}},
		{"missed day is not resent", sentInitial, date(3, 5, 10), nil},
		{"same day", sentInitial, date(3, 11, 9), []models.ReminderKind{models.ReminderSameDay}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Due(tt.a, tt.now, time.UTC)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedupeKey(t *testing.T) {
	if got := DedupeKey("asm-1", models.Reminder3Days); got != "reminder:asm-1:3days" {
		t.Errorf("DedupeKey() = %q", got)
	}
}
