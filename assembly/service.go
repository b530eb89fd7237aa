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

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/models"
)

// Broadcaster publishes real-time events to the subscribers of an assembly.
// Implementations must not block and must not fail the caller.
type Broadcaster interface {
	Broadcast(tenantID, assemblyID, eventType string, payload any)
}

// ReminderScheduler enqueues the reminder series of a convened assembly
// within the caller's transaction.
type ReminderScheduler interface {
	ScheduleSeries(ctx context.Context, q db.Querier, a models.Assembly) (int, error)
}

// VoteBridge mirrors voting agenda items into the shared vote model.
type VoteBridge interface {
	EnsureLinkedVote(ctx context.Context, agendaItemID string) (string, error)
	MirrorBallot(ctx context.Context, ballot models.AssemblyVote) error
	SyncVoteResults(ctx context.Context, agendaItemID string) (int, error)
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone in which calendar dates are compared.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

func WithReminderScheduler(r ReminderScheduler) Option {
	return func(s *Service) { s.reminders = r }
}

func WithVoteBridge(b VoteBridge) Option {
	return func(s *Service) { s.bridge = b }
}

func WithPolicy(p auth.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// Service implements the assembly lifecycle, attendance, quorum and the
// ballot ledger.
type Service struct {
	db          *sql.DB
	store       *Store
	now         func() time.Time
	loc         *time.Location
	broadcaster Broadcaster
	reminders   ReminderScheduler
	bridge      VoteBridge
	policy      auth.Policy
}

func NewService(conn *sql.DB, dialect db.Dialect, opts ...Option) *Service {
	s := &Service{
		db:     conn,
		store:  NewStore(dialect),
		now:    time.Now,
		loc:    time.UTC,
		policy: auth.RolePolicy{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the service's persistence layer to sibling packages.
func (s *Service) Store() *Store { return s.store }

// Location is the zone used for calendar-date comparisons.
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the service clock, truncated to the precision every supported
// database keeps.
func (s *Service) Now() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// SetVoteBridge attaches the bridge after construction; the bridge itself
// needs the service's store, so main wires it in two steps.
func (s *Service) SetVoteBridge(b VoteBridge) { s.bridge = b }

func (s *Service) broadcast(a models.Assembly, eventType string, payload any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(a.TenantID, a.ID, eventType, payload)
}

// authorize checks that the actor belongs to the assembly's tenant and, when
// manage is set, that the actor may run management operations. An actor
// without a tenant sees nothing.
func (s *Service) authorize(actor auth.Actor, a models.Assembly, manage bool) error {
	if actor.TenantID == "" || actor.TenantID != a.TenantID {
		return fmt.Errorf("assembly %s: %w", a.ID, ErrNotFound)
	}
	if manage && !s.policy.CanManageAssembly(actor) {
		return fmt.Errorf("%w: %s may not manage assemblies", ErrNotPermitted, actor.Role)
	}
	return nil
}

// Authorize loads an assembly and checks that actor may see it, or manage it
// when manage is set. Assemblies of other tenants are reported as not found.
func (s *Service) Authorize(ctx context.Context, actor auth.Actor, assemblyID string, manage bool) (models.Assembly, error) {
	a, err := s.store.GetAssembly(ctx, s.db, assemblyID, false)
	if err != nil {
		return models.Assembly{}, err
	}
	if err := s.authorize(actor, a, manage); err != nil {
		return models.Assembly{}, err
	}
	return a, nil
}

// withAssembly runs fn in a transaction holding the assembly row lock.
func (s *Service) withAssembly(ctx context.Context, id string, fn func(tx *sql.Tx, a *models.Assembly) error) (models.Assembly, error) {
	var out models.Assembly
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := s.store.GetAssembly(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(tx, &a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func validatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("%w: required quorum percentage must be between 0 and 100", ErrValidation)
	}
	return nil
}

func validateAgendaItem(req models.AgendaItemRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: agenda item title is required", ErrValidation)
	}
	switch req.ItemType {
	case models.ItemTypeInformational, models.ItemTypeDiscussion, models.ItemTypeVoting, models.ItemTypeApproval:
	default:
		return fmt.Errorf("%w: unknown agenda item type %q", ErrValidation, req.ItemType)
	}
	return nil
}

// CreateAssembly creates an assembly in draft or scheduled status, seeds the
// attendee roster from the building's apartments and creates its agenda.
func (s *Service) CreateAssembly(ctx context.Context, actor auth.Actor, req models.CreateAssemblyRequest) (models.AssemblyDetail, error) {
	if !s.policy.CanManageAssembly(actor) {
		return models.AssemblyDetail{}, fmt.Errorf("%w: %s may not create assemblies", ErrNotPermitted, actor.Role)
	}
	if strings.TrimSpace(req.Title) == "" {
		return models.AssemblyDetail{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.BuildingID == "" {
		return models.AssemblyDetail{}, fmt.Errorf("%w: building_id is required", ErrValidation)
	}
	if req.ScheduledAt.IsZero() {
		return models.AssemblyDetail{}, fmt.Errorf("%w: scheduled_at is required", ErrValidation)
	}
	status := req.Status
	switch status {
	case "":
		status = models.StatusDraft
	case models.StatusDraft, models.StatusScheduled:
	default:
		return models.AssemblyDetail{}, fmt.Errorf("%w: assemblies start as draft or scheduled, not %q", ErrValidation, status)
	}
	pct := decimal.NewFromInt(50)
	if req.RequiredQuorumPercentage != nil {
		pct = *req.RequiredQuorumPercentage
	}
	if err := validatePercentage(pct); err != nil {
		return models.AssemblyDetail{}, err
	}
	for _, item := range req.AgendaItems {
		if err := validateAgendaItem(item); err != nil {
			return models.AssemblyDetail{}, err
		}
	}

	now := s.Now()
	a := models.Assembly{
		ID:                       auth.NewID(),
		BuildingID:               req.BuildingID,
		Title:                    strings.TrimSpace(req.Title),
		Description:              req.Description,
		ScheduledAt:              req.ScheduledAt.UTC(),
		EstimatedDurationMin:     req.EstimatedDurationMin,
		Location:                 req.Location,
		MeetingLink:              req.MeetingLink,
		IsOnline:                 req.IsOnline,
		RequiredQuorumPercentage: pct,
		Status:                   status,
		PreVotingEnabled:         req.PreVotingEnabled,
		PreVotingStart:           req.PreVotingStart,
		PreVotingEnd:             req.PreVotingEnd,
		CreatedBy:                actor.UserID,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if a.EstimatedDurationMin <= 0 {
		a.EstimatedDurationMin = 120
	}
	if a.PreVotingEnabled && a.PreVotingStart == nil && a.PreVotingEnd == nil {
		start, end := DefaultPreVotingWindow(a.ScheduledAt, s.loc)
		a.PreVotingStart, a.PreVotingEnd = &start, &end
	}
	if a.PreVotingStart != nil && a.PreVotingEnd != nil && a.PreVotingEnd.Before(*a.PreVotingStart) {
		return models.AssemblyDetail{}, fmt.Errorf("%w: pre-voting window ends before it starts", ErrValidation)
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		building, err := s.store.GetBuilding(ctx, tx, a.BuildingID)
		if err != nil {
			return err
		}
		if actor.TenantID == "" || actor.TenantID != building.TenantID {
			return fmt.Errorf("building %s: %w", a.BuildingID, ErrNotFound)
		}
		a.TenantID = building.TenantID
		a.TotalBuildingMills = building.TotalMills

		if err := s.store.insertAssembly(ctx, tx, a); err != nil {
			return err
		}
		if _, _, err := s.syncRoster(ctx, tx, a); err != nil {
			return err
		}
		for i, req := range req.AgendaItems {
			order := req.Order
			if order <= 0 {
				order = i + 1
			}
			if err := s.store.insertAgendaItem(ctx, tx, newAgendaItem(a.ID, order, req, now)); err != nil {
				return err
			}
		}
		_, err = s.recomputeQuorum(ctx, tx, &a)
		return err
	})
	if err != nil {
		return models.AssemblyDetail{}, err
	}

	slog.Info("assembly created", "assembly_id", a.ID, "building_id", a.BuildingID, "status", a.Status)
	s.ensureLinkedVotes(ctx, a.ID)
	return s.detail(ctx, a.ID)
}

func newAgendaItem(assemblyID string, order int, req models.AgendaItemRequest, now time.Time) models.AgendaItem {
	votingType := req.VotingType
	if votingType == "" {
		votingType = models.VotingSimpleMajority
	}
	return models.AgendaItem{
		ID:                   auth.NewID(),
		AssemblyID:           assemblyID,
		Order:                order,
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		ItemType:             req.ItemType,
		Status:               models.ItemStatusPending,
		VotingType:           votingType,
		AllowsPreVoting:      req.AllowsPreVoting,
		ProjectID:            req.ProjectID,
		EstimatedDurationMin: req.EstimatedDurationMin,
		CreatedAt:            now,
	}
}

// ensureLinkedVotes mirrors every voting item of an assembly into the shared
// vote model. Failures are logged; the item simply stays unlinked.
func (s *Service) ensureLinkedVotes(ctx context.Context, assemblyID string) {
	if s.bridge == nil {
		return
	}
	items, err := s.store.ListAgendaItems(ctx, s.db, assemblyID)
	if err != nil {
		slog.Warn("failed to list agenda items for vote linking", "assembly_id", assemblyID, "error", err)
		return
	}
	for _, item := range items {
		if item.ItemType != models.ItemTypeVoting || item.LinkedVoteID != nil {
			continue
		}
		if _, err := s.bridge.EnsureLinkedVote(ctx, item.ID); err != nil {
			slog.Warn("failed to link shared vote", "agenda_item_id", item.ID, "error", err)
		}
	}
}

// GetAssembly returns an assembly with its agenda and roster.
func (s *Service) GetAssembly(ctx context.Context, actor auth.Actor, id string) (models.AssemblyDetail, error) {
	a, err := s.store.GetAssembly(ctx, s.db, id, false)
	if err != nil {
		return models.AssemblyDetail{}, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return models.AssemblyDetail{}, err
	}
	return s.detail(ctx, id)
}

func (s *Service) detail(ctx context.Context, id string) (models.AssemblyDetail, error) {
	a, err := s.store.GetAssembly(ctx, s.db, id, false)
	if err != nil {
		return models.AssemblyDetail{}, err
	}
	items, err := s.store.ListAgendaItems(ctx, s.db, id)
	if err != nil {
		return models.AssemblyDetail{}, err
	}
	attendees, err := s.store.ListAttendees(ctx, s.db, id)
	if err != nil {
		return models.AssemblyDetail{}, err
	}
	if items == nil {
		items = []models.AgendaItem{}
	}
	if attendees == nil {
		attendees = []models.Attendee{}
	}
	return models.AssemblyDetail{Assembly: a, AgendaItems: items, Attendees: attendees}, nil
}

// ListAssemblies returns the actor's tenant's assemblies, optionally for one building.
func (s *Service) ListAssemblies(ctx context.Context, actor auth.Actor, buildingID string) ([]models.Assembly, error) {
	list, err := s.store.ListAssemblies(ctx, s.db, actor.TenantID, buildingID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Assembly{}
	}
	return list, nil
}

// ScheduleAssembly publishes a draft.
func (s *Service) ScheduleAssembly(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	return s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		return s.store.transition(ctx, tx, a, models.StatusScheduled, s.Now())
	})
}

// SendInvitation convenes a scheduled assembly, records the invitation and
// enqueues the reminder series in the same transaction.
func (s *Service) SendInvitation(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	now := s.Now()
	a, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if err := s.store.transition(ctx, tx, a, models.StatusConvened, now); err != nil {
			return err
		}
		if err := s.store.setTimestamp(ctx, tx, a.ID, "invitation_sent_at", now); err != nil {
			return err
		}
		a.InvitationSent = true
		a.InvitationSentAt = &now

		if s.reminders != nil {
			n, err := s.reminders.ScheduleSeries(ctx, tx, *a)
			if err != nil {
				return fmt.Errorf("failed to schedule reminders: %w", err)
			}
			slog.Info("reminders scheduled", "assembly_id", a.ID, "enqueued", n)
		}
		return nil
	})
	if err != nil {
		return models.Assembly{}, err
	}
	slog.Info("assembly convened", "assembly_id", a.ID)
	return a, nil
}

// StartAssembly opens the meeting. The roster is re-synced with the
// building's apartments, quorum is recomputed and the first pending agenda
// item starts unless one is already running.
func (s *Service) StartAssembly(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	now := s.Now()
	var started *models.AgendaItem
	a, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if err := s.store.transition(ctx, tx, a, models.StatusInProgress, now); err != nil {
			return err
		}
		if err := s.store.setTimestamp(ctx, tx, a.ID, "actual_start_time", now); err != nil {
			return err
		}
		a.ActualStartTime = &now

		added, removed, err := s.syncRoster(ctx, tx, *a)
		if err != nil {
			return err
		}
		if added > 0 || removed > 0 {
			slog.Info("attendee roster synced", "assembly_id", a.ID, "added", added, "removed", removed)
		}
		if _, err := s.recomputeQuorum(ctx, tx, a); err != nil {
			return err
		}

		items, err := s.store.ListAgendaItems(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Status == models.ItemStatusInProgress {
				return nil
			}
		}
		for _, it := range items {
			if it.Status != models.ItemStatusPending {
				continue
			}
			it.Status = models.ItemStatusInProgress
			it.StartedAt = &now
			if err := s.store.saveAgendaItem(ctx, tx, it); err != nil {
				return err
			}
			started = &it
			break
		}
		return nil
	})
	if err != nil {
		return models.Assembly{}, err
	}

	slog.Info("assembly started", "assembly_id", a.ID, "quorum_achieved", a.QuorumAchieved)
	payload := itemUpdate{AssemblyStatus: a.Status}
	if started != nil {
		payload.AgendaItemID = started.ID
		payload.ItemType = started.ItemType
		payload.Status = started.Status
	}
	s.broadcast(a, models.EventItemUpdate, payload)
	return a, nil
}

type itemUpdate struct {
	AgendaItemID   string `json:"agenda_item_id,omitempty"`
	ItemType       string `json:"item_type,omitempty"`
	Status         string `json:"status,omitempty"`
	AssemblyStatus string `json:"assembly_status"`
}

// EndAssembly completes the meeting and closes a still-running agenda item.
func (s *Service) EndAssembly(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	now := s.Now()
	a, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if err := s.store.transition(ctx, tx, a, models.StatusCompleted, now); err != nil {
			return err
		}
		if err := s.store.setTimestamp(ctx, tx, a.ID, "actual_end_time", now); err != nil {
			return err
		}
		a.ActualEndTime = &now
		return s.closeRunningItems(ctx, tx, a.ID, now, models.ItemStatusCompleted, "")
	})
	if err != nil {
		return models.Assembly{}, err
	}
	slog.Info("assembly completed", "assembly_id", a.ID)
	s.broadcast(a, models.EventItemUpdate, itemUpdate{AssemblyStatus: a.Status})
	return a, nil
}

// closeRunningItems moves every in-progress item of the assembly to status,
// stamping its end time and duration.
func (s *Service) closeRunningItems(ctx context.Context, tx *sql.Tx, assemblyID string, now time.Time, status, note string) error {
	items, err := s.store.ListAgendaItems(ctx, tx, assemblyID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Status != models.ItemStatusInProgress {
			continue
		}
		finishItem(&it, now)
		it.Status = status
		if note != "" {
			it.Notes = appendNote(it.Notes, note)
		}
		if err := s.store.saveAgendaItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return nil
}

// AdjournAssembly adjourns a running meeting. When continuationDate is set a
// follow-up assembly is created in scheduled status, carrying every
// unfinished agenda item as pending.
func (s *Service) AdjournAssembly(ctx context.Context, actor auth.Actor, id string, continuationDate *time.Time) (models.AdjournResponse, error) {
	now := s.Now()
	if continuationDate != nil && !continuationDate.After(now) {
		return models.AdjournResponse{}, fmt.Errorf("%w: continuation date must be in the future", ErrValidation)
	}

	var cont *models.Assembly
	a, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if err := s.store.transition(ctx, tx, a, models.StatusAdjourned, now); err != nil {
			return err
		}
		if err := s.store.setTimestamp(ctx, tx, a.ID, "actual_end_time", now); err != nil {
			return err
		}
		a.ActualEndTime = &now
		if err := s.closeRunningItems(ctx, tx, a.ID, now, models.ItemStatusDeferred, "Deferred: assembly adjourned"); err != nil {
			return err
		}
		if continuationDate == nil {
			return nil
		}
		c, err := s.createContinuation(ctx, tx, *a, continuationDate.UTC(), now)
		if err != nil {
			return err
		}
		cont = &c
		return nil
	})
	if err != nil {
		return models.AdjournResponse{}, err
	}

	slog.Info("assembly adjourned", "assembly_id", a.ID, "continued", cont != nil)
	s.broadcast(a, models.EventItemUpdate, itemUpdate{AssemblyStatus: a.Status})
	if cont != nil {
		s.ensureLinkedVotes(ctx, cont.ID)
		if fresh, err := s.store.GetAssembly(ctx, s.db, cont.ID, false); err == nil {
			cont = &fresh
		}
	}
	return models.AdjournResponse{Assembly: a, Continuation: cont}, nil
}

func (s *Service) createContinuation(ctx context.Context, tx *sql.Tx, prev models.Assembly, when, now time.Time) (models.Assembly, error) {
	c := models.Assembly{
		ID:                       auth.NewID(),
		TenantID:                 prev.TenantID,
		BuildingID:               prev.BuildingID,
		Title:                    prev.Title + " (continuation)",
		Description:              prev.Description,
		ScheduledAt:              when,
		EstimatedDurationMin:     prev.EstimatedDurationMin,
		Location:                 prev.Location,
		MeetingLink:              prev.MeetingLink,
		IsOnline:                 prev.IsOnline,
		TotalBuildingMills:       prev.TotalBuildingMills,
		RequiredQuorumPercentage: prev.RequiredQuorumPercentage,
		Status:                   models.StatusScheduled,
		PreVotingEnabled:         prev.PreVotingEnabled,
		ContinuedFromID:          &prev.ID,
		CreatedBy:                prev.CreatedBy,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if c.PreVotingEnabled {
		start, end := DefaultPreVotingWindow(when, s.loc)
		c.PreVotingStart, c.PreVotingEnd = &start, &end
	}
	if err := s.store.insertAssembly(ctx, tx, c); err != nil {
		return models.Assembly{}, err
	}
	if _, _, err := s.syncRoster(ctx, tx, c); err != nil {
		return models.Assembly{}, err
	}

	items, err := s.store.ListAgendaItems(ctx, tx, prev.ID)
	if err != nil {
		return models.Assembly{}, err
	}
	order := 0
	for _, it := range items {
		if it.Status == models.ItemStatusCompleted || it.Status == models.ItemStatusCancelled {
			continue
		}
		order++
		carried := newAgendaItem(c.ID, order, models.AgendaItemRequest{
			Title:                it.Title,
			Description:          it.Description,
			ItemType:             it.ItemType,
			VotingType:           it.VotingType,
			AllowsPreVoting:      it.AllowsPreVoting,
			ProjectID:            it.ProjectID,
			EstimatedDurationMin: it.EstimatedDurationMin,
		}, now)
		if err := s.store.insertAgendaItem(ctx, tx, carried); err != nil {
			return models.Assembly{}, err
		}
	}
	if _, err := s.recomputeQuorum(ctx, tx, &c); err != nil {
		return models.Assembly{}, err
	}
	return c, nil
}

// CancelAssembly cancels an assembly from any non-terminal status.
func (s *Service) CancelAssembly(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error) {
	a, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		return s.store.transition(ctx, tx, a, models.StatusCancelled, s.Now())
	})
	if err != nil {
		return models.Assembly{}, err
	}
	slog.Info("assembly cancelled", "assembly_id", a.ID)
	s.broadcast(a, models.EventItemUpdate, itemUpdate{AssemblyStatus: a.Status})
	return a, nil
}

// SyncAttendees reconciles the roster with the building's apartments and
// recomputes quorum.
func (s *Service) SyncAttendees(ctx context.Context, actor auth.Actor, id string) ([]models.Attendee, error) {
	_, err := s.withAssembly(ctx, id, func(tx *sql.Tx, a *models.Assembly) error {
		if err := s.authorize(actor, *a, true); err != nil {
			return err
		}
		if a.IsTerminal() {
			return fmt.Errorf("%w: assembly is %s", ErrInvalidStateTransition, a.Status)
		}
		added, removed, err := s.syncRoster(ctx, tx, *a)
		if err != nil {
			return err
		}
		slog.Info("attendee roster synced", "assembly_id", a.ID, "added", added, "removed", removed)
		_, err = s.recomputeQuorum(ctx, tx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.ListAttendees(ctx, s.db, id)
}

// syncRoster adds an attendee for every apartment missing from the roster
// and drops attendees whose apartment is gone, unless they already hold a
// ballot. Existing attendees keep their mills.
func (s *Service) syncRoster(ctx context.Context, tx *sql.Tx, a models.Assembly) (added, removed int, err error) {
	apartments, err := s.store.listApartments(ctx, tx, a.BuildingID)
	if err != nil {
		return 0, 0, err
	}
	roster, err := s.store.ListAttendees(ctx, tx, a.ID)
	if err != nil {
		return 0, 0, err
	}

	onRoster := make(map[string]bool, len(roster))
	for _, att := range roster {
		onRoster[att.ApartmentID] = true
	}
	inBuilding := make(map[string]bool, len(apartments))
	for _, apt := range apartments {
		inBuilding[apt.ID] = true
		if onRoster[apt.ID] {
			continue
		}
		err := s.store.insertAttendee(ctx, tx, models.Attendee{
			ID:              auth.NewID(),
			AssemblyID:      a.ID,
			ApartmentID:     apt.ID,
			ApartmentNumber: apt.Number,
			UserID:          apt.OwnerUserID,
			Mills:           apt.Mills,
			RSVPStatus:      models.RSVPPending,
		})
		if err != nil {
			return added, removed, err
		}
		added++
	}

	for _, att := range roster {
		if inBuilding[att.ApartmentID] {
			continue
		}
		n, err := s.store.countBallotsByAttendee(ctx, tx, att.ID)
		if err != nil {
			return added, removed, err
		}
		if n > 0 {
			continue
		}
		if err := s.store.deleteAttendee(ctx, tx, att.ID); err != nil {
			return added, removed, err
		}
		removed++
	}
	return added, removed, nil
}

// recomputeQuorum recalculates the assembly's quorum from the roster and
// persists it. The total is the building's declared total_mills, re-read on
// every recompute. It is raised to the roster's mills only when the roster
// holds more than the building declares, so achieved mills never exceed the
// total. Once achieved, quorum stays achieved.
func (s *Service) recomputeQuorum(ctx context.Context, tx *sql.Tx, a *models.Assembly) (models.QuorumStatus, error) {
	building, err := s.store.GetBuilding(ctx, tx, a.BuildingID)
	if err != nil {
		return models.QuorumStatus{}, err
	}
	roster, err := s.store.ListAttendees(ctx, tx, a.ID)
	if err != nil {
		return models.QuorumStatus{}, err
	}
	var rosterMills int64
	for _, att := range roster {
		rosterMills += att.Mills
	}
	a.TotalBuildingMills = building.TotalMills
	if rosterMills > building.TotalMills {
		slog.Warn("roster mills exceed building total", "assembly_id", a.ID,
			"building_mills", building.TotalMills, "roster_mills", rosterMills)
		a.TotalBuildingMills = rosterMills
	}

	counted, err := s.store.countedAttendees(ctx, tx, a.ID)
	if err != nil {
		return models.QuorumStatus{}, err
	}
	status := ComputeQuorum(a.TotalBuildingMills, a.RequiredQuorumPercentage, counted)

	a.AchievedQuorumMills = status.PresentMills
	if status.Achieved && !a.QuorumAchieved {
		now := s.Now()
		a.QuorumAchieved = true
		a.QuorumAchievedAt = &now
		slog.Info("quorum achieved", "assembly_id", a.ID, "present_mills", status.PresentMills, "required_mills", status.RequiredMills)
	}
	if err := s.store.saveQuorum(ctx, tx, *a); err != nil {
		return models.QuorumStatus{}, err
	}

	status.QuorumAchieved = a.QuorumAchieved
	status.QuorumAchievedAt = a.QuorumAchievedAt
	return status, nil
}

// GetQuorumStatus computes the live quorum snapshot without persisting it.
func (s *Service) GetQuorumStatus(ctx context.Context, actor auth.Actor, assemblyID string) (models.QuorumStatus, error) {
	a, err := s.store.GetAssembly(ctx, s.db, assemblyID, false)
	if err != nil {
		return models.QuorumStatus{}, err
	}
	if err := s.authorize(actor, a, false); err != nil {
		return models.QuorumStatus{}, err
	}
	counted, err := s.store.countedAttendees(ctx, s.db, assemblyID)
	if err != nil {
		return models.QuorumStatus{}, err
	}
	status := ComputeQuorum(a.TotalBuildingMills, a.RequiredQuorumPercentage, counted)
	status.QuorumAchieved = a.QuorumAchieved
	status.QuorumAchievedAt = a.QuorumAchievedAt
	return status, nil
}

// RecalculateQuorum recomputes and persists quorum for an assembly.
func (s *Service) RecalculateQuorum(ctx context.Context, assemblyID string) (models.QuorumStatus, error) {
	var status models.QuorumStatus
	_, err := s.withAssembly(ctx, assemblyID, func(tx *sql.Tx, a *models.Assembly) error {
		var err error
		status, err = s.recomputeQuorum(ctx, tx, a)
		return err
	})
	return status, err
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
