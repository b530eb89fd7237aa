// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reminders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/jobs"
	"github.com/danielhkuo/hoa-assembly/models"
	"github.com/danielhkuo/hoa-assembly/notify"
)

// ErrAllFailed is returned when a batch had recipients and every send failed.
// The reminder flag stays unset so the kind is retried.
var ErrAllFailed = errors.New("every reminder send failed")

// Outcome of one recipient in a batch.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Skip reasons
const (
	ReasonNoEmail      = "no email"
	ReasonNotConvened  = "not convened"
	ReasonAlreadyVoted = "already voted"
)

type RecipientResult struct {
	AttendeeID string
	Email      string
	Outcome    Outcome
	Reason     string
	Err        error
}

// DispatchResult reports one reminder dispatch. SkippedReason is set when
// the whole dispatch was a no-op.
type DispatchResult struct {
	Batch         models.ReminderBatch
	Recipients    []RecipientResult
	SkippedReason string
}

// Dispatcher renders and sends reminder batches and vote confirmations.
type Dispatcher struct {
	db      *sql.DB
	store   *assembly.Store
	sender  notify.Sender
	secret  string
	baseURL string
	loc     *time.Location
	now     func() time.Time
}

func NewDispatcher(conn *sql.DB, dialect db.Dialect, sender notify.Sender, cfg cliparse.Config) *Dispatcher {
	return &Dispatcher{
		db:      conn,
		store:   assembly.NewStore(dialect),
		sender:  sender,
		secret:  cfg.TokenSecret,
		baseURL: cfg.BaseURL,
		loc:     cfg.Location(),
		now:     time.Now,
	}
}

// SetClock replaces the dispatcher's time source.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// DispatchReminder sends one reminder kind to an assembly's attendees. It is
// a no-op when the kind already went out or the assembly is no longer
// heading toward its meeting. The kind's flag is set after the batch unless
// every send failed.
func (d *Dispatcher) DispatchReminder(ctx context.Context, assemblyID string, kind models.ReminderKind) (DispatchResult, error) {
	if !kind.Valid() {
		return DispatchResult{}, fmt.Errorf("unknown reminder kind %q", kind)
	}
	a, err := d.store.GetAssembly(ctx, d.db, assemblyID, false)
	if err != nil {
		return DispatchResult{}, err
	}
	if a.ReminderSent(kind) {
		slog.Info("reminder skipped", "assembly_id", a.ID, "kind", kind, "reason", "already sent")
		return DispatchResult{SkippedReason: "already sent"}, nil
	}
	if a.IsTerminal() || a.Status == models.StatusDraft {
		slog.Info("reminder skipped", "assembly_id", a.ID, "kind", kind, "reason", "assembly is "+a.Status)
		return DispatchResult{SkippedReason: "assembly is " + a.Status}, nil
	}
	if !a.InvitationSent {
		slog.Info("reminder skipped", "assembly_id", a.ID, "kind", kind, "reason", ReasonNotConvened)
		return DispatchResult{SkippedReason: ReasonNotConvened}, nil
	}

	items, err := d.store.ListAgendaItems(ctx, d.db, a.ID)
	if err != nil {
		return DispatchResult{}, err
	}
	attendees, err := d.store.ListAttendees(ctx, d.db, a.ID)
	if err != nil {
		return DispatchResult{}, err
	}
	ballots, err := d.store.ListAssemblyBallots(ctx, d.db, a.ID)
	if err != nil {
		return DispatchResult{}, err
	}
	voted := map[string]map[string]bool{}
	for _, b := range ballots {
		if voted[b.AttendeeID] == nil {
			voted[b.AttendeeID] = map[string]bool{}
		}
		voted[b.AttendeeID][b.AgendaItemID] = true
	}

	var eligible []models.AgendaItem
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
		if it.AcceptsPreVotes() {
			eligible = append(eligible, it)
		}
	}

	now := d.now()
	linksOpen := assembly.VotingOpen(a, now, d.loc)
	batch := models.ReminderBatch{
		ID:         auth.NewID(),
		AssemblyID: a.ID,
		Kind:       kind,
		StartedAt:  now,
	}

	var results []RecipientResult
	for _, att := range attendees {
		res := RecipientResult{AttendeeID: att.ID}

		acc, ok, err := d.recipient(ctx, att)
		if err != nil {
			return DispatchResult{}, err
		}
		if !ok {
			res.Outcome, res.Reason = OutcomeSkipped, ReasonNoEmail
			batch.Skipped++
			results = append(results, res)
			continue
		}
		res.Email = acc.Email

		if votedOnAll(voted[att.ID], eligible) {
			res.Outcome, res.Reason = OutcomeSkipped, ReasonAlreadyVoted
			batch.Skipped++
			results = append(results, res)
			continue
		}

		data := notify.ReminderData{
			Assembly:        a,
			AgendaTitles:    titles,
			RecipientName:   acc.FullName,
			ApartmentNumber: att.ApartmentNumber,
			Mills:           att.Mills,
			Now:             now,
			Location:        d.loc,
		}
		if linksOpen {
			data.VoteLinks, err = d.voteLinks(a, att, items, voted[att.ID])
			if err != nil {
				return DispatchResult{}, err
			}
		}

		msg, err := notify.RenderReminder(kind, acc.Email, data)
		if err == nil {
			err = d.sender.Send(ctx, msg)
		}
		if err != nil {
			slog.Warn("reminder send failed", "assembly_id", a.ID, "kind", kind, "attendee_id", att.ID, "error", err)
			res.Outcome, res.Err = OutcomeFailed, err
			batch.Failed++
		} else {
			res.Outcome = OutcomeSent
			batch.Sent++
		}
		results = append(results, res)
	}
	batch.FinishedAt = d.now()

	allFailed := batch.Failed > 0 && batch.Sent == 0
	err = db.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if err := d.store.InsertReminderBatch(ctx, tx, batch); err != nil {
			return err
		}
		if allFailed {
			return nil
		}
		marked, err := d.store.MarkReminderSent(ctx, tx, a.ID, kind, batch.FinishedAt)
		if err != nil {
			return err
		}
		if !marked {
			slog.Warn("reminder flag was already set", "assembly_id", a.ID, "kind", kind)
		}
		return nil
	})
	if err != nil {
		return DispatchResult{}, err
	}

	slog.Info("reminder batch dispatched", "assembly_id", a.ID, "kind", kind,
		"sent", batch.Sent, "skipped", batch.Skipped, "failed", batch.Failed)

	out := DispatchResult{Batch: batch, Recipients: results}
	if allFailed {
		return out, ErrAllFailed
	}
	return out, nil
}

// recipient resolves the account an attendee is reached at. ok is false when
// there is no usable email address.
func (d *Dispatcher) recipient(ctx context.Context, att models.Attendee) (models.Account, bool, error) {
	if att.UserID == nil {
		return models.Account{}, false, nil
	}
	acc, err := d.store.GetAccount(ctx, d.db, *att.UserID)
	if errors.Is(err, assembly.ErrNotFound) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return acc, acc.Email != "", nil
}

// votedOnAll reports whether the attendee holds a ballot on every eligible
// item. With no eligible items nobody counts as done.
func votedOnAll(voted map[string]bool, eligible []models.AgendaItem) bool {
	if len(eligible) == 0 {
		return false
	}
	for _, it := range eligible {
		if !voted[it.ID] {
			return false
		}
	}
	return true
}

// voteLinks builds one link per voting item the attendee has not voted on.
// Items mirrored into a shared vote link to it; the rest get a signed link
// to the email-vote endpoint.
func (d *Dispatcher) voteLinks(a models.Assembly, att models.Attendee, items []models.AgendaItem, voted map[string]bool) ([]notify.VoteLink, error) {
	expires := a.ScheduledAt.Add(24 * time.Hour)
	if min := d.now().Add(time.Hour); expires.Before(min) {
		expires = min
	}

	var links []notify.VoteLink
	for _, it := range items {
		if it.ItemType != models.ItemTypeVoting || voted[it.ID] {
			continue
		}
		if it.LinkedVoteID != nil {
			links = append(links, notify.VoteLink{Title: it.Title, URL: d.baseURL + "/votes/" + *it.LinkedVoteID})
			continue
		}
		token, err := auth.IssueVoteLinkToken(auth.VoteLink{
			AssemblyID:   a.ID,
			AttendeeID:   att.ID,
			AgendaItemID: it.ID,
		}, d.secret, expires)
		if err != nil {
			return nil, err
		}
		links = append(links, notify.VoteLink{
			Title: it.Title,
			URL:   d.baseURL + "/email-votes?token=" + url.QueryEscape(token),
		})
	}
	return links, nil
}

// SendVoteConfirmation emails the owner of a ballot that it was recorded.
// Ballots of attendees without an email address are ignored.
func (d *Dispatcher) SendVoteConfirmation(ctx context.Context, ballotID string) error {
	ballot, err := d.store.GetBallot(ctx, d.db, ballotID)
	if err != nil {
		return err
	}
	att, err := d.store.GetAttendee(ctx, d.db, ballot.AttendeeID)
	if err != nil {
		return err
	}
	acc, ok, err := d.recipient(ctx, att)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("vote confirmation skipped", "ballot_id", ballotID, "reason", ReasonNoEmail)
		return nil
	}
	item, err := d.store.GetAgendaItem(ctx, d.db, ballot.AgendaItemID)
	if err != nil {
		return err
	}
	a, err := d.store.GetAssembly(ctx, d.db, ballot.AssemblyID, false)
	if err != nil {
		return err
	}

	msg, err := notify.RenderVoteConfirmation(acc.Email, notify.ConfirmationData{
		AssemblyTitle:   a.Title,
		ItemTitle:       item.Title,
		Choice:          ballot.Vote,
		Source:          ballot.VoteSource,
		ApartmentNumber: att.ApartmentNumber,
		Mills:           ballot.Mills,
		RecipientName:   acc.FullName,
	})
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}

// ListBatches returns the delivery statistics of an assembly's reminders.
func (d *Dispatcher) ListBatches(ctx context.Context, assemblyID string) ([]models.ReminderBatch, error) {
	list, err := d.store.ListReminderBatches(ctx, d.db, assemblyID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.ReminderBatch{}
	}
	return list, nil
}

// Register binds the reminder and vote confirmation jobs to w.
func Register(w *jobs.Worker, d *Dispatcher) {
	w.Register(jobs.KindReminder, func(ctx context.Context, job jobs.Job) error {
		var p Payload
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("decode reminder payload: %w", err)
		}
		_, err := d.DispatchReminder(ctx, job.AssemblyID, p.Kind)
		return err
	})
	w.Register(jobs.KindVoteConfirmation, func(ctx context.Context, job jobs.Job) error {
		var p assembly.VoteConfirmation
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("decode confirmation payload: %w", err)
		}
		return d.SendVoteConfirmation(ctx, p.BallotID)
	})
}
