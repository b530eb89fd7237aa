// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/jobs"
	"github.com/danielhkuo/hoa-assembly/models"
)

// errInsertRace marks a ballot insert that lost to a concurrent insert for
// the same attendee and item.
var errInsertRace = errors.New("concurrent ballot insert")

// VoteConfirmation is the payload of a vote confirmation job.
type VoteConfirmation struct {
	BallotID string `json:"ballot_id"`
}

type castOutcome struct {
	ballot     models.AssemblyVote
	assembly   models.Assembly
	overridden bool
}

// CastVote records an attendee's ballot on a voting agenda item.
//
// While the assembly is in progress ballots are live; inside the pre-voting
// window they are pre-votes. A second ballot from the same attendee is
// rejected, except that staff may override it during the session: the choice
// changes, the source becomes live and the original mills are kept.
func (s *Service) CastVote(ctx context.Context, actor auth.Actor, assemblyID string, req models.CastVoteRequest) (models.AssemblyVote, error) {
	switch req.Choice {
	case models.ChoiceApprove, models.ChoiceReject, models.ChoiceAbstain:
	default:
		return models.AssemblyVote{}, fmt.Errorf("%w: vote must be approve, reject or abstain", ErrValidation)
	}
	if req.AttendeeID == "" || req.AgendaItemID == "" {
		return models.AssemblyVote{}, fmt.Errorf("%w: attendee_id and agenda_item_id are required", ErrValidation)
	}

	out, err := s.castVote(ctx, actor, assemblyID, req)
	if errors.Is(err, errInsertRace) {
		out, err = s.castVote(ctx, actor, assemblyID, req)
	}
	if errors.Is(err, errInsertRace) {
		err = ErrDuplicateVote
	}
	if err != nil {
		return models.AssemblyVote{}, err
	}

	slog.Info("ballot recorded", "assembly_id", assemblyID, "agenda_item_id", req.AgendaItemID,
		"attendee_id", req.AttendeeID, "source", out.ballot.VoteSource, "overridden", out.overridden)

	if out.ballot.VoteSource == models.SourceLive || out.overridden {
		s.broadcastTally(ctx, out.assembly, req.AgendaItemID)
	}
	if s.bridge != nil {
		if err := s.bridge.MirrorBallot(ctx, out.ballot); err != nil {
			slog.Warn("failed to mirror ballot to shared vote", "ballot_id", out.ballot.ID, "error", err)
		}
	}
	return out.ballot, nil
}

func (s *Service) castVote(ctx context.Context, actor auth.Actor, assemblyID string, req models.CastVoteRequest) (castOutcome, error) {
	now := s.Now()
	var out castOutcome
	a, err := s.withAssembly(ctx, assemblyID, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, false); err != nil {
			return err
		}
		item, err := s.store.GetAgendaItem(ctx, tx, req.AgendaItemID)
		if err != nil {
			return err
		}
		if item.AssemblyID != a.ID {
			return fmt.Errorf("agenda item %s: %w", item.ID, ErrNotFound)
		}
		if item.ItemType != models.ItemTypeVoting {
			return fmt.Errorf("%w: %s items take no ballots", ErrInvalidState, item.ItemType)
		}
		att, err := s.store.GetAttendee(ctx, tx, req.AttendeeID)
		if err != nil {
			return err
		}
		if att.AssemblyID != a.ID {
			return fmt.Errorf("attendee %s: %w", att.ID, ErrNotFound)
		}
		staff := s.policy.CanManageAssembly(actor)
		if !staff && !ownsAttendee(actor, att) {
			return fmt.Errorf("%w: cannot vote for another owner's apartment", ErrNotPermitted)
		}

		var source string
		switch {
		case a.Status == models.StatusInProgress:
			source = models.SourceLive
		case IsPreVotingActive(*a, now, s.loc):
			source = models.SourcePreVote
		default:
			return fmt.Errorf("%w: assembly is %s", ErrVotingNotOpen, a.Status)
		}

		existing, found, err := s.store.FindBallot(ctx, tx, item.ID, att.ID)
		if err != nil {
			return err
		}
		if found {
			if a.Status != models.StatusInProgress || !staff {
				return ErrDuplicateVote
			}
			prior := existing.Vote
			existing.Vote = req.Choice
			existing.VoteSource = models.SourceLive
			existing.VotedBy = optional(actor.UserID)
			if req.Notes != "" {
				existing.Notes = req.Notes
			} else {
				existing.Notes = appendNote(existing.Notes, fmt.Sprintf("changed from %s during session", prior))
			}
			existing.UpdatedAt = now
			if err := s.store.UpdateBallot(ctx, tx, existing); err != nil {
				return err
			}
			out.ballot = existing
			out.overridden = true
			return nil
		}

		ballot := models.AssemblyVote{
			ID:           auth.NewID(),
			AssemblyID:   a.ID,
			AgendaItemID: item.ID,
			AttendeeID:   att.ID,
			Vote:         req.Choice,
			Mills:        att.Mills,
			VoteSource:   source,
			Notes:        req.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if !ownsAttendee(actor, att) {
			ballot.VotedBy = optional(actor.UserID)
		}
		if err := s.store.InsertBallot(ctx, tx, ballot); err != nil {
			if errors.Is(err, ErrDuplicateVote) {
				return errInsertRace
			}
			return err
		}

		if source == models.SourcePreVote && !att.HasPreVoted {
			att.HasPreVoted = true
			att.PreVotedAt = &now
			if err := s.store.saveAttendee(ctx, tx, att); err != nil {
				return err
			}
		}
		if _, err := s.recomputeQuorum(ctx, tx, a); err != nil {
			return err
		}
		if att.UserID != nil {
			if _, err := jobs.Enqueue(ctx, tx, jobs.KindVoteConfirmation, a.ID,
				"vote_confirmation:"+ballot.ID, now, VoteConfirmation{BallotID: ballot.ID}); err != nil {
				return err
			}
		}
		out.ballot = ballot
		return nil
	})
	if err != nil {
		return castOutcome{}, err
	}
	out.assembly = a
	return out, nil
}

// CastLinkedVote casts the ballot carried by a signed email link. The vote is
// cast as the attendee's own account within the assembly's tenant.
func (s *Service) CastLinkedVote(ctx context.Context, link auth.VoteLink, choice, notes string) (models.AssemblyVote, error) {
	att, err := s.store.GetAttendee(ctx, s.db, link.AttendeeID)
	if err != nil {
		return models.AssemblyVote{}, err
	}
	if att.AssemblyID != link.AssemblyID {
		return models.AssemblyVote{}, fmt.Errorf("attendee %s: %w", att.ID, ErrNotFound)
	}
	if att.UserID == nil {
		return models.AssemblyVote{}, fmt.Errorf("%w: apartment %s has no owner account", ErrNotPermitted, att.ApartmentNumber)
	}
	a, err := s.store.GetAssembly(ctx, s.db, link.AssemblyID, false)
	if err != nil {
		return models.AssemblyVote{}, err
	}
	actor := auth.Actor{UserID: *att.UserID, Role: auth.RoleResident, TenantID: a.TenantID}
	return s.CastVote(ctx, actor, link.AssemblyID, models.CastVoteRequest{
		AttendeeID:   att.ID,
		AgendaItemID: link.AgendaItemID,
		Choice:       choice,
		Notes:        notes,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type voteUpdate struct {
	AgendaItemID string             `json:"agenda_item_id"`
	Results      models.VoteResults `json:"results"`
}

func (s *Service) broadcastTally(ctx context.Context, a models.Assembly, itemID string) {
	if s.broadcaster == nil {
		return
	}
	ballots, err := s.store.ListBallots(ctx, s.db, itemID)
	if err != nil {
		slog.Warn("failed to load tally for broadcast", "agenda_item_id", itemID, "error", err)
		return
	}
	s.broadcast(a, models.EventVoteUpdate, voteUpdate{AgendaItemID: itemID, Results: Tally(itemID, ballots)})
}

// GetVoteResults tallies an agenda item. Items mirrored into a shared vote
// first pull in submissions made there.
func (s *Service) GetVoteResults(ctx context.Context, actor auth.Actor, itemID string) (models.VoteResults, error) {
	item, err := s.store.GetAgendaItem(ctx, s.db, itemID)
	if err != nil {
		return models.VoteResults{}, err
	}
	a, err := s.store.GetAssembly(ctx, s.db, item.AssemblyID, false)
	if err != nil {
		return models.VoteResults{}, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return models.VoteResults{}, err
	}

	if item.LinkedVoteID != nil && s.bridge != nil {
		changed, err := s.bridge.SyncVoteResults(ctx, itemID)
		if err != nil {
			slog.Warn("failed to sync shared vote results", "agenda_item_id", itemID, "error", err)
		} else if changed > 0 {
			if _, err := s.RecalculateQuorum(ctx, a.ID); err != nil {
				return models.VoteResults{}, err
			}
			s.broadcastTally(ctx, a, itemID)
		}
	}

	ballots, err := s.store.ListBallots(ctx, s.db, itemID)
	if err != nil {
		return models.VoteResults{}, err
	}
	return Tally(itemID, ballots), nil
}

// ListBallots returns the ballots cast on an agenda item.
func (s *Service) ListBallots(ctx context.Context, actor auth.Actor, itemID string) ([]models.AssemblyVote, error) {
	item, err := s.store.GetAgendaItem(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetAssembly(ctx, s.db, item.AssemblyID, false)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return nil, err
	}
	list, err := s.store.ListBallots(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.AssemblyVote{}
	}
	return list, nil
}

// ImportBallot upserts a ballot that originated outside the assembly ledger,
// such as a submission on the shared vote. Unknown sources become proxy.
// Existing ballots are only
// overwritten when at is strictly newer than their last update. It reports
// whether anything changed.
func (s *Service) ImportBallot(ctx context.Context, q db.Querier, item models.AgendaItem, att models.Attendee, choice, source string, at time.Time) (bool, error) {
	switch source {
	case models.SourcePreVote, models.SourceLive, models.SourceProxy:
	default:
		source = models.SourceProxy
	}

	existing, found, err := s.store.FindBallot(ctx, q, item.ID, att.ID)
	if err != nil {
		return false, err
	}
	if found {
		if !at.After(existing.UpdatedAt) || existing.Vote == choice {
			return false, nil
		}
		prior := existing.Vote
		existing.Vote = choice
		existing.VoteSource = source
		existing.Notes = appendNote(existing.Notes, fmt.Sprintf("changed from %s via shared vote", prior))
		existing.UpdatedAt = at
		return true, s.store.UpdateBallot(ctx, q, existing)
	}

	ballot := models.AssemblyVote{
		ID:           auth.NewID(),
		AssemblyID:   item.AssemblyID,
		AgendaItemID: item.ID,
		AttendeeID:   att.ID,
		Vote:         choice,
		Mills:        att.Mills,
		VoteSource:   source,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := s.store.InsertBallot(ctx, q, ballot); err != nil {
		return false, err
	}
	return true, nil
}
