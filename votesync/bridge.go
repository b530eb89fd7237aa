// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votesync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/models"
)

// defaultVoteDays is how long a new shared vote stays open after the meeting
// when the assembly has no pre-voting end date.
const defaultVoteDays = 3

// MapChoiceToShared converts a ballot choice to the shared vote encoding.
func MapChoiceToShared(choice string) (string, error) {
	switch choice {
	case models.ChoiceApprove:
		return models.SharedChoiceYes, nil
	case models.ChoiceReject:
		return models.SharedChoiceNo, nil
	case models.ChoiceAbstain:
		return models.SharedChoiceBlank, nil
	}
	return "", fmt.Errorf("%w: unknown ballot choice %q", assembly.ErrValidation, choice)
}

// MapChoiceFromShared is the inverse of MapChoiceToShared.
func MapChoiceFromShared(choice string) (string, error) {
	switch choice {
	case models.SharedChoiceYes:
		return models.ChoiceApprove, nil
	case models.SharedChoiceNo:
		return models.ChoiceReject, nil
	case models.SharedChoiceBlank:
		return models.ChoiceAbstain, nil
	}
	return "", fmt.Errorf("%w: unknown shared vote choice %q", assembly.ErrValidation, choice)
}

// Bridge links voting agenda items to shared votes and keeps both sides'
// ballots in step.
type Bridge struct {
	db      *sql.DB
	dialect db.Dialect
	svc     *assembly.Service
	store   *assembly.Store
}

func NewBridge(conn *sql.DB, dialect db.Dialect, svc *assembly.Service) *Bridge {
	return &Bridge{
		db:      conn,
		dialect: dialect,
		svc:     svc,
		store:   svc.Store(),
	}
}

const voteColumns = `id, building_id, project_id, agenda_item_id, title, start_date, end_date,
	min_participation, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVote(s scanner) (models.SharedVote, error) {
	var v models.SharedVote
	err := s.Scan(&v.ID, &v.BuildingID, &v.ProjectID, &v.AgendaItemID, &v.Title, &v.StartDate,
		&v.EndDate, &v.MinParticipation, &v.IsActive, &v.CreatedAt)
	return v, err
}

// GetVote loads a shared vote.
func (b *Bridge) GetVote(ctx context.Context, q db.Querier, id string) (models.SharedVote, error) {
	v, err := scanVote(q.QueryRowContext(ctx, `SELECT `+voteColumns+` FROM vote WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SharedVote{}, fmt.Errorf("vote %s: %w", id, assembly.ErrNotFound)
	}
	if err != nil {
		return models.SharedVote{}, fmt.Errorf("failed to load vote: %w", err)
	}
	return v, nil
}

// EnsureLinkedVote returns the shared vote backing a voting agenda item,
// linking one first if needed. An active vote already open for the item's
// project is reused: its window only grows and its participation threshold
// only rises. Otherwise a new vote is created over the pre-voting window.
func (b *Bridge) EnsureLinkedVote(ctx context.Context, agendaItemID string) (string, error) {
	var voteID string
	err := db.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		item, err := b.store.GetAgendaItem(ctx, tx, agendaItemID)
		if err != nil {
			return err
		}
		a, err := b.store.GetAssembly(ctx, tx, item.AssemblyID, true)
		if err != nil {
			return err
		}
		item, err = b.store.GetAgendaItem(ctx, tx, agendaItemID)
		if err != nil {
			return err
		}
		if item.LinkedVoteID != nil {
			voteID = *item.LinkedVoteID
			return nil
		}
		if item.ItemType != models.ItemTypeVoting {
			return fmt.Errorf("%w: only voting items are linked to shared votes", assembly.ErrInvalidState)
		}

		start := a.ScheduledAt
		if a.PreVotingStart != nil {
			start = *a.PreVotingStart
		}
		end := a.ScheduledAt.AddDate(0, 0, defaultVoteDays)
		if a.PreVotingEnd != nil {
			end = *a.PreVotingEnd
		}

		if item.ProjectID != nil {
			v, found, err := b.reusableVote(ctx, tx, *item.ProjectID, a.BuildingID)
			if err != nil {
				return err
			}
			if found {
				if err := b.extendVote(ctx, tx, v, item.ID, start, end, a.RequiredQuorumPercentage); err != nil {
					return err
				}
				voteID = v.ID
				slog.Info("reused project vote for agenda item", "agenda_item_id", item.ID, "vote_id", v.ID)
				return b.store.SetLinkedVote(ctx, tx, item.ID, voteID)
			}
		}

		v := models.SharedVote{
			ID:               auth.NewID(),
			BuildingID:       a.BuildingID,
			ProjectID:        item.ProjectID,
			AgendaItemID:     &item.ID,
			Title:            item.Title,
			StartDate:        start,
			EndDate:          end,
			MinParticipation: a.RequiredQuorumPercentage,
			IsActive:         true,
			CreatedAt:        b.svc.Now(),
		}
		if err := b.insertVote(ctx, tx, v); err != nil {
			return err
		}
		voteID = v.ID
		slog.Info("created shared vote for agenda item", "agenda_item_id", item.ID, "vote_id", v.ID)
		return b.store.SetLinkedVote(ctx, tx, item.ID, voteID)
	})
	if err != nil {
		return "", err
	}
	return voteID, nil
}

func (b *Bridge) reusableVote(ctx context.Context, q db.Querier, projectID, buildingID string) (models.SharedVote, bool, error) {
	v, err := scanVote(q.QueryRowContext(ctx, `
		SELECT `+voteColumns+` FROM vote
		WHERE project_id = $1 AND building_id = $2 AND is_active = TRUE AND agenda_item_id IS NULL
		ORDER BY created_at
		LIMIT 1`+b.dialect.ForUpdate(), projectID, buildingID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SharedVote{}, false, nil
	}
	if err != nil {
		return models.SharedVote{}, false, fmt.Errorf("failed to look up project vote: %w", err)
	}
	return v, true, nil
}

func (b *Bridge) extendVote(ctx context.Context, q db.Querier, v models.SharedVote, itemID string, start, end time.Time, pct decimal.Decimal) error {
	if start.Before(v.StartDate) {
		v.StartDate = start
	}
	if end.After(v.EndDate) {
		v.EndDate = end
	}
	if pct.GreaterThan(v.MinParticipation) {
		v.MinParticipation = pct
	}
	_, err := q.ExecContext(ctx, `
		UPDATE vote SET start_date = $1, end_date = $2, min_participation = $3, agenda_item_id = $4
		WHERE id = $5
	`, v.StartDate.UTC(), v.EndDate.UTC(), v.MinParticipation, itemID, v.ID)
	if err != nil {
		return fmt.Errorf("failed to extend vote: %w", err)
	}
	return nil
}

func (b *Bridge) insertVote(ctx context.Context, q db.Querier, v models.SharedVote) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vote (`+voteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, v.ID, v.BuildingID, v.ProjectID, v.AgendaItemID, v.Title, v.StartDate.UTC(), v.EndDate.UTC(),
		v.MinParticipation, v.IsActive, v.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

// MirrorBallot writes the current state of a ballot to the shared vote of its
// agenda item, keyed by (vote, user). Ballots on unlinked items and ballots of
// attendees without an account are not mirrored.
func (b *Bridge) MirrorBallot(ctx context.Context, ballot models.AssemblyVote) error {
	item, err := b.store.GetAgendaItem(ctx, b.db, ballot.AgendaItemID)
	if err != nil {
		return err
	}
	if item.LinkedVoteID == nil {
		return nil
	}
	att, err := b.store.GetAttendee(ctx, b.db, ballot.AttendeeID)
	if err != nil {
		return err
	}
	if att.UserID == nil {
		slog.Debug("ballot not mirrored, attendee has no account", "ballot_id", ballot.ID)
		return nil
	}
	choice, err := MapChoiceToShared(ballot.Vote)
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO vote_submission (id, vote_id, user_id, choice, source, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vote_id, user_id) DO UPDATE
		SET choice = excluded.choice, source = excluded.source, submitted_at = excluded.submitted_at
	`, auth.NewID(), *item.LinkedVoteID, *att.UserID, choice, ballot.VoteSource, ballot.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to mirror ballot: %w", err)
	}
	return nil
}

// ListSubmissions returns the submissions of a shared vote.
func (b *Bridge) ListSubmissions(ctx context.Context, q db.Querier, voteID string) ([]models.VoteSubmission, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, vote_id, user_id, choice, source, submitted_at
		FROM vote_submission WHERE vote_id = $1
		ORDER BY submitted_at
	`, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote submissions: %w", err)
	}
	defer rows.Close()

	var out []models.VoteSubmission
	for rows.Next() {
		var sub models.VoteSubmission
		if err := rows.Scan(&sub.ID, &sub.VoteID, &sub.UserID, &sub.Choice, &sub.Source, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SyncVoteResults pulls submissions made on the shared vote back into the
// assembly ledger, last write wins. It returns how many ballots changed.
// Users holding several apartments in the assembly are skipped since one
// submission cannot say which apartment it speaks for.
func (b *Bridge) SyncVoteResults(ctx context.Context, agendaItemID string) (int, error) {
	changed := 0
	err := db.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		item, err := b.store.GetAgendaItem(ctx, tx, agendaItemID)
		if err != nil {
			return err
		}
		if item.LinkedVoteID == nil {
			return nil
		}
		a, err := b.store.GetAssembly(ctx, tx, item.AssemblyID, true)
		if err != nil {
			return err
		}
		if a.Status == models.StatusCancelled {
			return nil
		}

		attendees, err := b.store.ListAttendees(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		byUser := map[string][]models.Attendee{}
		for _, att := range attendees {
			if att.UserID != nil {
				byUser[*att.UserID] = append(byUser[*att.UserID], att)
			}
		}

		subs, err := b.ListSubmissions(ctx, tx, *item.LinkedVoteID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			owned := byUser[sub.UserID]
			if len(owned) != 1 {
				if len(owned) > 1 {
					slog.Warn("shared submission skipped, user holds several apartments",
						"vote_id", sub.VoteID, "user_id", sub.UserID)
				}
				continue
			}
			choice, err := MapChoiceFromShared(sub.Choice)
			if err != nil {
				slog.Warn("shared submission skipped", "submission_id", sub.ID, "error", err)
				continue
			}
			ok, err := b.svc.ImportBallot(ctx, tx, item, owned[0], choice, sub.Source, sub.SubmittedAt)
			if err != nil {
				return err
			}
			if ok {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		slog.Info("synced shared vote results", "agenda_item_id", agendaItemID, "changed", changed)
	}
	return changed, nil
}
