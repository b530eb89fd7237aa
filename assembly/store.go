// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/models"
)

// Store reads and writes assembly rows. Every method takes a db.Querier so the
// caller decides whether it runs inside a transaction.
type Store struct {
	dialect db.Dialect
}

func NewStore(dialect db.Dialect) *Store {
	return &Store{dialect: dialect}
}

type scanner interface {
	Scan(dest ...any) error
}

func reminderColumns() string {
	cols := make([]string, 0, 2*len(models.ReminderKinds))
	for _, kind := range models.ReminderKinds {
		cols = append(cols, "email_"+string(kind)+"_sent", "email_"+string(kind)+"_sent_at")
	}
	return strings.Join(cols, ", ")
}

var assemblyColumns = `id, tenant_id, building_id, title, description, scheduled_at, estimated_duration_min,
	location, meeting_link, is_online, total_building_mills, required_quorum_percentage,
	achieved_quorum_mills, quorum_achieved, quorum_achieved_at, status, pre_voting_enabled,
	pre_voting_start, pre_voting_end, invitation_sent, invitation_sent_at, actual_start_time,
	actual_end_time, minutes_text, minutes_approved, minutes_approved_at, ` + reminderColumns() + `,
	continued_from_id, created_by, created_at, updated_at`

func scanAssembly(s scanner) (models.Assembly, error) {
	var a models.Assembly
	flags := make([]models.ReminderFlag, len(models.ReminderKinds))

	dest := []any{
		&a.ID, &a.TenantID, &a.BuildingID, &a.Title, &a.Description, &a.ScheduledAt, &a.EstimatedDurationMin,
		&a.Location, &a.MeetingLink, &a.IsOnline, &a.TotalBuildingMills, &a.RequiredQuorumPercentage,
		&a.AchievedQuorumMills, &a.QuorumAchieved, &a.QuorumAchievedAt, &a.Status, &a.PreVotingEnabled,
		&a.PreVotingStart, &a.PreVotingEnd, &a.InvitationSent, &a.InvitationSentAt, &a.ActualStartTime,
		&a.ActualEndTime, &a.MinutesText, &a.MinutesApproved, &a.MinutesApprovedAt,
	}
	for i := range flags {
		dest = append(dest, &flags[i].Sent, &flags[i].SentAt)
	}
	dest = append(dest, &a.ContinuedFromID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)

	if err := s.Scan(dest...); err != nil {
		return models.Assembly{}, err
	}

	a.Reminders = make(map[models.ReminderKind]models.ReminderFlag, len(flags))
	for i, kind := range models.ReminderKinds {
		a.Reminders[kind] = flags[i]
	}
	return a, nil
}

// GetAssembly loads one assembly. With lock set the row is locked for the rest
// of the surrounding transaction where the dialect supports it.
func (s *Store) GetAssembly(ctx context.Context, q db.Querier, id string, lock bool) (models.Assembly, error) {
	query := `SELECT ` + assemblyColumns + ` FROM assembly WHERE id = $1`
	if lock {
		query += s.dialect.ForUpdate()
	}
	a, err := scanAssembly(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Assembly{}, fmt.Errorf("assembly %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Assembly{}, fmt.Errorf("failed to load assembly: %w", err)
	}
	return a, nil
}

// ListAssemblies returns a building's assemblies, most recent meeting first.
func (s *Store) ListAssemblies(ctx context.Context, q db.Querier, tenantID, buildingID string) ([]models.Assembly, error) {
	query := `SELECT ` + assemblyColumns + ` FROM assembly WHERE tenant_id = $1`
	args := []any{tenantID}
	if buildingID != "" {
		query += ` AND building_id = $2`
		args = append(args, buildingID)
	}
	query += ` ORDER BY scheduled_at DESC`
	return s.queryAssemblies(ctx, q, query, args...)
}

// ListInvited returns the assemblies still heading toward their meeting whose
// invitation went out. These are the candidates for reminder sweeps.
func (s *Store) ListInvited(ctx context.Context, q db.Querier) ([]models.Assembly, error) {
	return s.queryAssemblies(ctx, q, `
		SELECT `+assemblyColumns+` FROM assembly
		WHERE invitation_sent = TRUE AND status IN ($1, $2)
		ORDER BY scheduled_at
	`, models.StatusScheduled, models.StatusConvened)
}

func (s *Store) queryAssemblies(ctx context.Context, q db.Querier, query string, args ...any) ([]models.Assembly, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assemblies: %w", err)
	}
	defer rows.Close()

	var out []models.Assembly
	for rows.Next() {
		a, err := scanAssembly(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assembly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) insertAssembly(ctx context.Context, q db.Querier, a models.Assembly) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assembly (id, tenant_id, building_id, title, description, scheduled_at,
			estimated_duration_min, location, meeting_link, is_online, total_building_mills,
			required_quorum_percentage, status, pre_voting_enabled, pre_voting_start, pre_voting_end,
			continued_from_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, a.ID, a.TenantID, a.BuildingID, a.Title, a.Description, a.ScheduledAt.UTC(),
		a.EstimatedDurationMin, a.Location, a.MeetingLink, a.IsOnline, a.TotalBuildingMills,
		a.RequiredQuorumPercentage, a.Status, a.PreVotingEnabled, utcPtr(a.PreVotingStart), utcPtr(a.PreVotingEnd),
		a.ContinuedFromID, a.CreatedBy, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert assembly: %w", err)
	}
	return nil
}

// transition moves the assembly from its current status to next. The update
// only applies while the stored status still equals a.Status, so a concurrent
// transition makes this one fail with ErrInvalidStateTransition.
func (s *Store) transition(ctx context.Context, q db.Querier, a *models.Assembly, next string, now time.Time) error {
	if !CanTransition(a.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, a.Status, next)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE assembly SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, next, now.UTC(), a.ID, a.Status)
	if err != nil {
		return fmt.Errorf("failed to update assembly status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update assembly status: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s -> %s (status changed concurrently)", ErrInvalidStateTransition, a.Status, next)
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

// setTimestamp stamps one of the assembly's lifecycle timestamp columns.
func (s *Store) setTimestamp(ctx context.Context, q db.Querier, id, column string, at time.Time) error {
	switch column {
	case "invitation_sent_at", "actual_start_time", "actual_end_time":
	default:
		return fmt.Errorf("unknown assembly timestamp column %q", column)
	}
	query := `UPDATE assembly SET ` + column + ` = $1, updated_at = $1`
	if column == "invitation_sent_at" {
		query += `, invitation_sent = TRUE`
	}
	query += ` WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

func (s *Store) saveQuorum(ctx context.Context, q db.Querier, a models.Assembly) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assembly
		SET total_building_mills = $1, achieved_quorum_mills = $2, quorum_achieved = $3, quorum_achieved_at = $4
		WHERE id = $5
	`, a.TotalBuildingMills, a.AchievedQuorumMills, a.QuorumAchieved, utcPtr(a.QuorumAchievedAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to save quorum: %w", err)
	}
	return nil
}

func (s *Store) saveMinutes(ctx context.Context, q db.Querier, a models.Assembly) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assembly SET minutes_text = $1, minutes_approved = $2, minutes_approved_at = $3, updated_at = $4
		WHERE id = $5
	`, a.MinutesText, a.MinutesApproved, utcPtr(a.MinutesApprovedAt), a.UpdatedAt.UTC(), a.ID)
	if err != nil {
		return fmt.Errorf("failed to save minutes: %w", err)
	}
	return nil
}

// MarkReminderSent flips the sent flag of one reminder kind. It returns false
// when the flag was already set, which makes concurrent dispatches harmless.
func (s *Store) MarkReminderSent(ctx context.Context, q db.Querier, assemblyID string, kind models.ReminderKind, at time.Time) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: unknown reminder kind %q", ErrValidation, kind)
	}
	col := "email_" + string(kind) + "_sent"
	res, err := q.ExecContext(ctx, `
		UPDATE assembly SET `+col+` = TRUE, `+col+`_at = $1
		WHERE id = $2 AND `+col+` = FALSE
	`, at.UTC(), assemblyID)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s reminder sent: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s reminder sent: %w", kind, err)
	}
	return n == 1, nil
}

// Buildings, apartments and accounts

func (s *Store) GetBuilding(ctx context.Context, q db.Querier, id string) (models.Building, error) {
	var b models.Building
	err := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, total_mills FROM building WHERE id = $1
	`, id).Scan(&b.ID, &b.TenantID, &b.Name, &b.TotalMills)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Building{}, fmt.Errorf("building %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Building{}, fmt.Errorf("failed to load building: %w", err)
	}
	return b, nil
}

func (s *Store) listApartments(ctx context.Context, q db.Querier, buildingID string) ([]models.Apartment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, building_id, number, mills, owner_user_id
		FROM apartment WHERE building_id = $1
		ORDER BY number
	`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query apartments: %w", err)
	}
	defer rows.Close()

	var out []models.Apartment
	for rows.Next() {
		var apt models.Apartment
		if err := rows.Scan(&apt.ID, &apt.BuildingID, &apt.Number, &apt.Mills, &apt.OwnerUserID); err != nil {
			return nil, fmt.Errorf("failed to scan apartment: %w", err)
		}
		out = append(out, apt)
	}
	return out, rows.Err()
}

// GetAccount loads a user account. A missing account yields ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, q db.Querier, id string) (models.Account, error) {
	var acc models.Account
	err := q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role FROM account WHERE id = $1
	`, id).Scan(&acc.ID, &acc.Email, &acc.FullName, &acc.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return acc, nil
}

// Agenda items

const agendaColumns = `id, assembly_id, item_order, title, description, item_type, status, voting_type,
	allows_pre_voting, linked_vote_id, project_id, estimated_duration_min, actual_duration_min,
	started_at, ended_at, decision, decision_type, notes, created_at`

func scanAgendaItem(s scanner) (models.AgendaItem, error) {
	var it models.AgendaItem
	err := s.Scan(&it.ID, &it.AssemblyID, &it.Order, &it.Title, &it.Description, &it.ItemType, &it.Status,
		&it.VotingType, &it.AllowsPreVoting, &it.LinkedVoteID, &it.ProjectID, &it.EstimatedDurationMin,
		&it.ActualDurationMin, &it.StartedAt, &it.EndedAt, &it.Decision, &it.DecisionType, &it.Notes, &it.CreatedAt)
	return it, err
}

func (s *Store) GetAgendaItem(ctx context.Context, q db.Querier, id string) (models.AgendaItem, error) {
	it, err := scanAgendaItem(q.QueryRowContext(ctx, `SELECT `+agendaColumns+` FROM agenda_item WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgendaItem{}, fmt.Errorf("agenda item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.AgendaItem{}, fmt.Errorf("failed to load agenda item: %w", err)
	}
	return it, nil
}

// ListAgendaItems returns an assembly's items in agenda order.
func (s *Store) ListAgendaItems(ctx context.Context, q db.Querier, assemblyID string) ([]models.AgendaItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+agendaColumns+` FROM agenda_item WHERE assembly_id = $1 ORDER BY item_order
	`, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agenda items: %w", err)
	}
	defer rows.Close()

	var out []models.AgendaItem
	for rows.Next() {
		it, err := scanAgendaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agenda item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) insertAgendaItem(ctx context.Context, q db.Querier, it models.AgendaItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO agenda_item (id, assembly_id, item_order, title, description, item_type, status,
			voting_type, allows_pre_voting, project_id, estimated_duration_min, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, it.ID, it.AssemblyID, it.Order, it.Title, it.Description, it.ItemType, it.Status,
		it.VotingType, it.AllowsPreVoting, it.ProjectID, it.EstimatedDurationMin, it.Notes, it.CreatedAt.UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: agenda position %d is taken", ErrValidation, it.Order)
		}
		return fmt.Errorf("failed to insert agenda item: %w", err)
	}
	return nil
}

// saveAgendaItem writes the mutable progress fields of an item.
func (s *Store) saveAgendaItem(ctx context.Context, q db.Querier, it models.AgendaItem) error {
	_, err := q.ExecContext(ctx, `
		UPDATE agenda_item
		SET status = $1, started_at = $2, ended_at = $3, actual_duration_min = $4,
			decision = $5, decision_type = $6, notes = $7
		WHERE id = $8
	`, it.Status, utcPtr(it.StartedAt), utcPtr(it.EndedAt), it.ActualDurationMin,
		it.Decision, it.DecisionType, it.Notes, it.ID)
	if err != nil {
		return fmt.Errorf("failed to save agenda item: %w", err)
	}
	return nil
}

// SetLinkedVote records the shared vote mirrored from an agenda item.
func (s *Store) SetLinkedVote(ctx context.Context, q db.Querier, itemID, voteID string) error {
	_, err := q.ExecContext(ctx, `UPDATE agenda_item SET linked_vote_id = $1 WHERE id = $2`, voteID, itemID)
	if err != nil {
		return fmt.Errorf("failed to link vote: %w", err)
	}
	return nil
}

func (s *Store) maxAgendaOrder(ctx context.Context, q db.Querier, assemblyID string) (int, error) {
	var last sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(item_order) FROM agenda_item WHERE assembly_id = $1`, assemblyID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to read agenda order: %w", err)
	}
	return int(last.Int64), nil
}

// Attendees

const attendeeColumns = `id, assembly_id, apartment_id, apartment_number, user_id, mills, rsvp_status,
	rsvp_notes, rsvp_at, is_present, checked_in_at, checked_out_at, attendance_type, proxy_apartment_id,
	has_pre_voted, pre_voted_at`

func scanAttendee(s scanner) (models.Attendee, error) {
	var att models.Attendee
	err := s.Scan(&att.ID, &att.AssemblyID, &att.ApartmentID, &att.ApartmentNumber, &att.UserID, &att.Mills,
		&att.RSVPStatus, &att.RSVPNotes, &att.RSVPAt, &att.IsPresent, &att.CheckedInAt, &att.CheckedOutAt,
		&att.AttendanceType, &att.ProxyApartmentID, &att.HasPreVoted, &att.PreVotedAt)
	return att, err
}

func (s *Store) GetAttendee(ctx context.Context, q db.Querier, id string) (models.Attendee, error) {
	att, err := scanAttendee(q.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM assembly_attendee WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Attendee{}, fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Attendee{}, fmt.Errorf("failed to load attendee: %w", err)
	}
	return att, nil
}

// FindAttendeeByUser returns the roster entry of the given user in an assembly.
func (s *Store) FindAttendeeByUser(ctx context.Context, q db.Querier, assemblyID, userID string) (models.Attendee, error) {
	att, err := scanAttendee(q.QueryRowContext(ctx, `
		SELECT `+attendeeColumns+` FROM assembly_attendee
		WHERE assembly_id = $1 AND user_id = $2
		ORDER BY apartment_number
		LIMIT 1
	`, assemblyID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Attendee{}, fmt.Errorf("attendee for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.Attendee{}, fmt.Errorf("failed to load attendee: %w", err)
	}
	return att, nil
}

// ListAttendees returns the roster of an assembly.
func (s *Store) ListAttendees(ctx context.Context, q db.Querier, assemblyID string) ([]models.Attendee, error) {
	return s.queryAttendees(ctx, q, `
		SELECT `+attendeeColumns+` FROM assembly_attendee WHERE assembly_id = $1 ORDER BY apartment_number
	`, assemblyID)
}

// countedAttendees returns the attendees whose mills count toward quorum.
func (s *Store) countedAttendees(ctx context.Context, q db.Querier, assemblyID string) ([]models.Attendee, error) {
	return s.queryAttendees(ctx, q, `
		SELECT `+attendeeColumns+` FROM assembly_attendee a
		WHERE a.assembly_id = $1
		  AND (a.is_present = TRUE OR a.has_pre_voted = TRUE
		       OR EXISTS (SELECT 1 FROM assembly_vote v WHERE v.attendee_id = a.id))
		ORDER BY a.apartment_number
	`, assemblyID)
}

func (s *Store) queryAttendees(ctx context.Context, q db.Querier, query string, args ...any) ([]models.Attendee, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees: %w", err)
	}
	defer rows.Close()

	var out []models.Attendee
	for rows.Next() {
		att, err := scanAttendee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

func (s *Store) insertAttendee(ctx context.Context, q db.Querier, att models.Attendee) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assembly_attendee (id, assembly_id, apartment_id, apartment_number, user_id, mills, rsvp_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, att.ID, att.AssemblyID, att.ApartmentID, att.ApartmentNumber, att.UserID, att.Mills, att.RSVPStatus)
	if err != nil {
		return fmt.Errorf("failed to insert attendee: %w", err)
	}
	return nil
}

// saveAttendee writes the mutable attendance fields. Mills are never updated.
func (s *Store) saveAttendee(ctx context.Context, q db.Querier, att models.Attendee) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assembly_attendee
		SET rsvp_status = $1, rsvp_notes = $2, rsvp_at = $3, is_present = $4, checked_in_at = $5,
			checked_out_at = $6, attendance_type = $7, proxy_apartment_id = $8, has_pre_voted = $9,
			pre_voted_at = $10
		WHERE id = $11
	`, att.RSVPStatus, att.RSVPNotes, utcPtr(att.RSVPAt), att.IsPresent, utcPtr(att.CheckedInAt),
		utcPtr(att.CheckedOutAt), att.AttendanceType, att.ProxyApartmentID, att.HasPreVoted,
		utcPtr(att.PreVotedAt), att.ID)
	if err != nil {
		return fmt.Errorf("failed to save attendee: %w", err)
	}
	return nil
}

func (s *Store) deleteAttendee(ctx context.Context, q db.Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM assembly_attendee WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete attendee: %w", err)
	}
	return nil
}

// Ballots

const ballotColumns = `id, assembly_id, agenda_item_id, attendee_id, vote, mills, vote_source, voted_by,
	notes, created_at, updated_at`

func scanBallot(s scanner) (models.AssemblyVote, error) {
	var b models.AssemblyVote
	err := s.Scan(&b.ID, &b.AssemblyID, &b.AgendaItemID, &b.AttendeeID, &b.Vote, &b.Mills, &b.VoteSource,
		&b.VotedBy, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *Store) GetBallot(ctx context.Context, q db.Querier, id string) (models.AssemblyVote, error) {
	b, err := scanBallot(q.QueryRowContext(ctx, `SELECT `+ballotColumns+` FROM assembly_vote WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssemblyVote{}, fmt.Errorf("ballot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.AssemblyVote{}, fmt.Errorf("failed to load ballot: %w", err)
	}
	return b, nil
}

// FindBallot returns the ballot of an attendee on an item, if any.
func (s *Store) FindBallot(ctx context.Context, q db.Querier, itemID, attendeeID string) (models.AssemblyVote, bool, error) {
	b, err := scanBallot(q.QueryRowContext(ctx, `
		SELECT `+ballotColumns+` FROM assembly_vote WHERE agenda_item_id = $1 AND attendee_id = $2
	`, itemID, attendeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssemblyVote{}, false, nil
	}
	if err != nil {
		return models.AssemblyVote{}, false, fmt.Errorf("failed to load ballot: %w", err)
	}
	return b, true, nil
}

// ListBallots returns every ballot on an agenda item.
func (s *Store) ListBallots(ctx context.Context, q db.Querier, itemID string) ([]models.AssemblyVote, error) {
	return s.queryBallots(ctx, q, `
		SELECT `+ballotColumns+` FROM assembly_vote WHERE agenda_item_id = $1 ORDER BY created_at
	`, itemID)
}

// ListAssemblyBallots returns every ballot cast in an assembly.
func (s *Store) ListAssemblyBallots(ctx context.Context, q db.Querier, assemblyID string) ([]models.AssemblyVote, error) {
	return s.queryBallots(ctx, q, `
		SELECT `+ballotColumns+` FROM assembly_vote WHERE assembly_id = $1 ORDER BY created_at
	`, assemblyID)
}

func (s *Store) queryBallots(ctx context.Context, q db.Querier, query string, args ...any) ([]models.AssemblyVote, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	var out []models.AssemblyVote
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBallot stores a new ballot. A concurrent ballot for the same attendee
// and item surfaces as ErrDuplicateVote.
func (s *Store) InsertBallot(ctx context.Context, q db.Querier, b models.AssemblyVote) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO assembly_vote (id, assembly_id, agenda_item_id, attendee_id, vote, mills, vote_source,
			voted_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, b.ID, b.AssemblyID, b.AgendaItemID, b.AttendeeID, b.Vote, b.Mills, b.VoteSource,
		b.VotedBy, b.Notes, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// UpdateBallot rewrites a ballot's choice. Mills are left untouched.
func (s *Store) UpdateBallot(ctx context.Context, q db.Querier, b models.AssemblyVote) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assembly_vote SET vote = $1, vote_source = $2, voted_by = $3, notes = $4, updated_at = $5
		WHERE id = $6
	`, b.Vote, b.VoteSource, b.VotedBy, b.Notes, b.UpdatedAt.UTC(), b.ID)
	if err != nil {
		return fmt.Errorf("failed to update ballot: %w", err)
	}
	return nil
}

func (s *Store) countBallotsByAttendee(ctx context.Context, q db.Querier, attendeeID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assembly_vote WHERE attendee_id = $1`, attendeeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return n, nil
}

// Reminder batches

func (s *Store) InsertReminderBatch(ctx context.Context, q db.Querier, b models.ReminderBatch) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO reminder_batch (id, assembly_id, kind, sent, skipped, failed, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.AssemblyID, string(b.Kind), b.Sent, b.Skipped, b.Failed, b.StartedAt.UTC(), b.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record reminder batch: %w", err)
	}
	return nil
}

func (s *Store) ListReminderBatches(ctx context.Context, q db.Querier, assemblyID string) ([]models.ReminderBatch, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, assembly_id, kind, sent, skipped, failed, started_at, finished_at
		FROM reminder_batch WHERE assembly_id = $1 ORDER BY started_at
	`, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder batches: %w", err)
	}
	defer rows.Close()

	var out []models.ReminderBatch
	for rows.Next() {
		var b models.ReminderBatch
		var kind string
		if err := rows.Scan(&b.ID, &b.AssemblyID, &kind, &b.Sent, &b.Skipped, &b.Failed, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder batch: %w", err)
		}
		b.Kind = models.ReminderKind(kind)
		out = append(out, b)
	}
	return out, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
