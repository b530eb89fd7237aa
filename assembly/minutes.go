// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/models"
	"github.com/danielhkuo/hoa-assembly/notify"
)

// UpdateMinutes replaces the minutes text. Approved minutes are frozen.
func (s *Service) UpdateMinutes(ctx context.Context, actor auth.Actor, id, text string) (models.Assembly, error) {
	return s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if a.Status == models.StatusCancelled {
			return fmt.Errorf("%w: assembly is cancelled", ErrInvalidStateTransition)
		}
		if a.MinutesApproved {
			return fmt.Errorf("%w: minutes are already approved", ErrInvalidStateTransition)
		}
		a.MinutesText = text
		a.UpdatedAt = s.Now()
		return s.store.saveMinutes(ctx, tx, *a)
	})
}

// ApproveMinutes approves the minutes of a finished meeting, once.
func (s *Service) ApproveMinutes(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	return s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if a.Status != models.StatusCompleted && a.Status != models.StatusAdjourned {
			return fmt.Errorf("%w: minutes can only be approved after the meeting", ErrInvalidStateTransition)
		}
		if a.MinutesApproved {
			return fmt.Errorf("%w: minutes are already approved", ErrInvalidStateTransition)
		}
		if a.MinutesText == "" {
			return fmt.Errorf("%w: minutes are empty", ErrValidation)
		}
		now := s.Now()
		a.MinutesApproved = true
		a.MinutesApprovedAt = &now
		a.UpdatedAt = now
		return s.store.saveMinutes(ctx, tx, *a)
	})
}

// RenderMinutes returns the minutes as HTML.
func (s *Service) RenderMinutes(ctx context.Context, actor auth.Actor, id string) (string, error) {
	a, err := s.store.GetAssembly(ctx, s.db, id, false)
	if err != nil {
		return "", err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return "", err
	}
	return notify.MarkdownToHTML(a.MinutesText)
}
