// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/models"
)

// attendeeChange loads an attendee under its assembly's lock, checks the
// actor may act for it and runs fn. fn mutates the attendee; it is then
// saved and quorum recomputed.
func (s *Service) attendeeChange(ctx context.Context, actor auth.Actor, attendeeID string, fn func(a models.Assembly, att *models.Attendee) error) (models.Attendee, error) {
	att, err := s.store.GetAttendee(ctx, s.db, attendeeID)
	if err != nil {
		return models.Attendee{}, err
	}

	_, err = s.withAssembly(ctx, att.AssemblyID, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, false); err != nil {
			return err
		}
		if !s.policy.CanManageAssembly(actor) && !ownsAttendee(actor, att) {
			return fmt.Errorf("%w: attendee belongs to another owner", ErrNotPermitted)
		}
		if a.IsTerminal() {
			return fmt.Errorf("%w: assembly is %s", ErrInvalidStateTransition, a.Status)
		}

		// reload inside the transaction
		current, err := s.store.GetAttendee(ctx, tx, attendeeID)
		if err != nil {
			return err
		}
		if err := fn(*a, &current); err != nil {
			return err
		}
		if err := s.store.saveAttendee(ctx, tx, current); err != nil {
			return err
		}
		if _, err := s.recomputeQuorum(ctx, tx, a); err != nil {
			return err
		}
		att = current
		return nil
	})
	if err != nil {
		return models.Attendee{}, err
	}
	return att, nil
}

func ownsAttendee(actor auth.Actor, att models.Attendee) bool {
	return att.UserID != nil && actor.UserID != "" && *att.UserID == actor.UserID
}

// CheckIn marks an attendee present. Repeating it only updates the
// attendance type; the original check-in time is kept.
func (s *Service) CheckIn(ctx context.Context, actor auth.Actor, attendeeID string, req models.CheckInRequest) (models.Attendee, error) {
	attendance := req.AttendanceType
	switch attendance {
	case "":
		attendance = models.AttendanceInPerson
	case models.AttendanceInPerson, models.AttendanceOnline, models.AttendanceProxy, models.AttendancePreVoteOnly:
	default:
		return models.Attendee{}, fmt.Errorf("%w: unknown attendance type %q", ErrValidation, req.AttendanceType)
	}
	if attendance == models.AttendanceProxy && (req.ProxyApartmentID == nil || *req.ProxyApartmentID == "") {
		return models.Attendee{}, fmt.Errorf("%w: proxy attendance needs proxy_apartment_id", ErrValidation)
	}

	now := s.Now()
	return s.attendeeChange(ctx, actor, attendeeID, func(_ models.Assembly, att *models.Attendee) error {
		if !att.IsPresent || att.CheckedInAt == nil {
			att.CheckedInAt = &now
		}
		att.IsPresent = true
		att.CheckedOutAt = nil
		att.AttendanceType = attendance
		att.ProxyApartmentID = nil
		if attendance == models.AttendanceProxy {
			att.ProxyApartmentID = req.ProxyApartmentID
		}
		return nil
	})
}

// CheckOut marks an attendee absent. Quorum already achieved is not lost.
func (s *Service) CheckOut(ctx context.Context, actor auth.Actor, attendeeID string) (models.Attendee, error) {
	now := s.Now()
	return s.attendeeChange(ctx, actor, attendeeID, func(_ models.Assembly, att *models.Attendee) error {
		if att.IsPresent {
			att.CheckedOutAt = &now
		}
		att.IsPresent = false
		return nil
	})
}

// RSVP records an owner's attendance intention.
func (s *Service) RSVP(ctx context.Context, actor auth.Actor, attendeeID string, req models.RSVPRequest) (models.Attendee, error) {
	switch req.Status {
	case models.RSVPPending, models.RSVPAttending, models.RSVPNotAttending, models.RSVPMaybe:
	default:
		return models.Attendee{}, fmt.Errorf("%w: unknown rsvp status %q", ErrValidation, req.Status)
	}
	now := s.Now()
	return s.attendeeChange(ctx, actor, attendeeID, func(_ models.Assembly, att *models.Attendee) error {
		att.RSVPStatus = req.Status
		att.RSVPNotes = req.Notes
		att.RSVPAt = &now
		return nil
	})
}

// ListAttendees returns the roster of an assembly.
func (s *Service) ListAttendees(ctx context.Context, actor auth.Actor, assemblyID string) ([]models.Attendee, error) {
	a, err := s.store.GetAssembly(ctx, s.db, assemblyID, false)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return nil, err
	}
	list, err := s.store.ListAttendees(ctx, s.db, assemblyID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Attendee{}
	}
	return list, nil
}
