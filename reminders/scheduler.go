// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reminders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/jobs"
	"github.com/danielhkuo/hoa-assembly/models"
)

// Payload is carried by every reminder job.
type Payload struct {
	Kind models.ReminderKind `json:"kind"`
}

// DedupeKey identifies the single active job of one reminder kind.
func DedupeKey(assemblyID string, kind models.ReminderKind) string {
	return "reminder:" + assemblyID + ":" + string(kind)
}

// Scheduler enqueues reminder jobs. Enqueueing is idempotent: a kind whose
// flag is set is never enqueued, and a kind with a pending job is not
// enqueued twice.
type Scheduler struct {
	db     *sql.DB
	store  *assembly.Store
	loc    *time.Location
	now    func() time.Time
	policy auth.Policy
}

func NewScheduler(conn *sql.DB, dialect db.Dialect, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		db:     conn,
		store:  assembly.NewStore(dialect),
		loc:    loc,
		now:    time.Now,
		policy: auth.RolePolicy{},
	}
}

// SetClock replaces the scheduler's time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// ScheduleSeries enqueues the reminder series of a. It runs on q so that
// convening and scheduling commit together.
func (s *Scheduler) ScheduleSeries(ctx context.Context, q db.Querier, a models.Assembly) (int, error) {
	convened := s.now()
	if a.InvitationSentAt != nil {
		convened = *a.InvitationSentAt
	}

	enqueued := 0
	for _, f := range Series(convened, a.ScheduledAt, s.loc) {
		if a.ReminderSent(f.Kind) {
			continue
		}
		ok, err := jobs.Enqueue(ctx, q, jobs.KindReminder, a.ID, DedupeKey(a.ID, f.Kind), f.At, Payload{Kind: f.Kind})
		if err != nil {
			return enqueued, err
		}
		if ok {
			enqueued++
		}
	}
	return enqueued, nil
}

// ScheduleSeriesByID schedules the series of a stored assembly on behalf of
// actor. The assembly must have been convened. Calling it again changes
// nothing.
func (s *Scheduler) ScheduleSeriesByID(ctx context.Context, actor auth.Actor, assemblyID string) (int, error) {
	a, err := s.store.GetAssembly(ctx, s.db, assemblyID, false)
	if err != nil {
		return 0, err
	}
	if actor.TenantID == "" || actor.TenantID != a.TenantID {
		return 0, fmt.Errorf("assembly %s: %w", assemblyID, assembly.ErrNotFound)
	}
	if !s.policy.CanManageAssembly(actor) {
		return 0, fmt.Errorf("%w: %s may not schedule reminders", assembly.ErrNotPermitted, actor.Role)
	}
	if a.IsTerminal() || a.Status == models.StatusDraft {
		return 0, fmt.Errorf("%w: assembly is %s", assembly.ErrInvalidStateTransition, a.Status)
	}
	if !a.InvitationSent {
		return 0, fmt.Errorf("%w: invitation not sent", assembly.ErrInvalidStateTransition)
	}
	return s.ScheduleSeries(ctx, s.db, a)
}

// SweepDueReminders enqueues every due reminder that has not gone out, for
// all invited assemblies. Running it twice in a row enqueues nothing the
// second time.
func (s *Scheduler) SweepDueReminders(ctx context.Context) (int, error) {
	list, err := s.store.ListInvited(ctx, s.db)
	if err != nil {
		return 0, err
	}

	now := s.now()
	enqueued := 0
	var errs []error
	for _, a := range list {
		for _, kind := range Due(a, now, s.loc) {
			ok, err := jobs.Enqueue(ctx, s.db, jobs.KindReminder, a.ID, DedupeKey(a.ID, kind), now, Payload{Kind: kind})
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				enqueued++
				slog.Info("sweep enqueued missing reminder", "assembly_id", a.ID, "kind", kind)
			}
		}
	}
	return enqueued, errors.Join(errs...)
}

// Run sweeps every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := s.SweepDueReminders(ctx); err != nil {
			slog.Error("reminder sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("reminder sweep finished", "enqueued", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
