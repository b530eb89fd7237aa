// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/models"
)

// AddAgendaItem appends an item to a non-terminal assembly. Voting items are
// mirrored into the shared vote model once stored.
func (s *Service) AddAgendaItem(ctx context.Context, actor auth.Actor, assemblyID string, req models.AgendaItemRequest) (models.AgendaItem, error) {
	if err := validateAgendaItem(req); err != nil {
		return models.AgendaItem{}, err
	}
	now := s.Now()
	var item models.AgendaItem
	_, err := s.withAssembly(ctx, assemblyID, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if a.IsTerminal() {
			return fmt.Errorf("%w: assembly is %s", ErrInvalidStateTransition, a.Status)
		}
		order := req.Order
		if order <= 0 {
			last, err := s.store.maxAgendaOrder(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			order = last + 1
		}
		item = newAgendaItem(a.ID, order, req, now)
		return s.store.insertAgendaItem(ctx, tx, item)
	})
	if err != nil {
		return models.AgendaItem{}, err
	}

	if item.ItemType == models.ItemTypeVoting && s.bridge != nil {
		voteID, err := s.bridge.EnsureLinkedVote(ctx, item.ID)
		if err != nil {
			slog.Warn("failed to link shared vote", "agenda_item_id", item.ID, "error", err)
		} else {
			item.LinkedVoteID = &voteID
		}
	}
	return item, nil
}

// ListAgendaItems returns an assembly's agenda in order.
func (s *Service) ListAgendaItems(ctx context.Context, actor auth.Actor, assemblyID string) ([]models.AgendaItem, error) {
	a, err := s.store.GetAssembly(ctx, s.db, assemblyID, false)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return nil, err
	}
	items, err := s.store.ListAgendaItems(ctx, s.db, assemblyID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.AgendaItem{}
	}
	return items, nil
}

// itemChange runs fn on an agenda item while holding its assembly's lock and
// saves the result.
func (s *Service) itemChange(ctx context.Context, actor auth.Actor, itemID string, fn func(tx *sql.Tx, a models.Assembly, item *models.AgendaItem) error) (models.AgendaItem, models.Assembly, error) {
	item, err := s.store.GetAgendaItem(ctx, s.db, itemID)
	if err != nil {
		return models.AgendaItem{}, models.Assembly{}, err
	}
	a, err := s.withAssembly(ctx, item.AssemblyID, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		current, err := s.store.GetAgendaItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := fn(tx, *a, &current); err != nil {
			return err
		}
		if err := s.store.saveAgendaItem(ctx, tx, current); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		return models.AgendaItem{}, models.Assembly{}, err
	}
	return item, a, nil
}

// StartItem moves an item to in progress. Any other running item of the
// assembly is ended first.
func (s *Service) StartItem(ctx context.Context, actor auth.Actor, itemID string) (models.AgendaItem, error) {
	now := s.Now()
	item, a, err := s.itemChange(ctx, actor, itemID, func(tx *sql.Tx, a models.Assembly, item *models.AgendaItem) error {
		if a.Status != models.StatusInProgress {
			return fmt.Errorf("%w: assembly is %s", ErrInvalidState, a.Status)
		}
		if item.Status != models.ItemStatusPending && item.Status != models.ItemStatusDeferred {
			return fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
		}
		if err := s.closeRunningItems(ctx, tx, a.ID, now, models.ItemStatusCompleted, ""); err != nil {
			return err
		}
		item.Status = models.ItemStatusInProgress
		item.StartedAt = &now
		item.EndedAt = nil
		item.ActualDurationMin = nil
		return nil
	})
	if err != nil {
		return models.AgendaItem{}, err
	}
	s.broadcast(a, models.EventItemUpdate, itemUpdate{
		AgendaItemID:   item.ID,
		ItemType:       item.ItemType,
		Status:         item.Status,
		AssemblyStatus: a.Status,
	})
	return item, nil
}

// EndItem completes a running item and records its decision.
func (s *Service) EndItem(ctx context.Context, actor auth.Actor, itemID string, req models.EndItemRequest) (models.AgendaItem, error) {
	now := s.Now()
	item, a, err := s.itemChange(ctx, actor, itemID, func(_ *sql.Tx, _ models.Assembly, item *models.AgendaItem) error {
		if item.Status != models.ItemStatusInProgress {
			return fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
		}
		finishItem(item, now)
		item.Status = models.ItemStatusCompleted
		item.Decision = req.Decision
		item.DecisionType = req.DecisionType
		return nil
	})
	if err != nil {
		return models.AgendaItem{}, err
	}
	s.broadcast(a, models.EventItemUpdate, itemUpdate{
		AgendaItemID:   item.ID,
		ItemType:       item.ItemType,
		Status:         item.Status,
		AssemblyStatus: a.Status,
	})
	return item, nil
}

// DeferItem postpones an unfinished item, keeping the reason in its notes.
func (s *Service) DeferItem(ctx context.Context, actor auth.Actor, itemID string, req models.DeferItemRequest) (models.AgendaItem, error) {
	now := s.Now()
	item, a, err := s.itemChange(ctx, actor, itemID, func(_ *sql.Tx, _ models.Assembly, item *models.AgendaItem) error {
		switch item.Status {
		case models.ItemStatusCompleted, models.ItemStatusCancelled, models.ItemStatusDeferred:
			return fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
		}
		if item.Status == models.ItemStatusInProgress {
			finishItem(item, now)
		}
		item.Status = models.ItemStatusDeferred
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			item.Notes = appendNote(item.Notes, "Deferred: "+reason)
		}
		return nil
	})
	if err != nil {
		return models.AgendaItem{}, err
	}
	s.broadcast(a, models.EventItemUpdate, itemUpdate{
		AgendaItemID:   item.ID,
		ItemType:       item.ItemType,
		Status:         item.Status,
		AssemblyStatus: a.Status,
	})
	return item, nil
}

// finishItem stamps the end time and the elapsed minutes of a running item.
func finishItem(item *models.AgendaItem, now time.Time) {
	item.EndedAt = &now
	if item.StartedAt != nil {
		minutes := int(now.Sub(*item.StartedAt).Round(time.Minute) / time.Minute)
		item.ActualDurationMin = &minutes
	}
}
