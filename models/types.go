package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Assembly status constants
const (
	StatusDraft      = "draft"
	StatusScheduled  = "scheduled"
	StatusConvened   = "convened"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusAdjourned  = "adjourned"
)

// Agenda item type constants
const (
	ItemTypeInformational = "informational"
	ItemTypeDiscussion    = "discussion"
	ItemTypeVoting        = "voting"
	ItemTypeApproval      = "approval"
)

// Agenda item status constants
const (
	ItemStatusPending    = "pending"
	ItemStatusInProgress = "in_progress"
	ItemStatusCompleted  = "completed"
	ItemStatusDeferred   = "deferred"
	ItemStatusCancelled  = "cancelled"
)

// Voting type constants (advisory)
const (
	VotingSimpleMajority    = "simple_majority"
	VotingQualifiedMajority = "qualified_majority"
	VotingUnanimous         = "unanimous"
	VotingRelativeMajority  = "relative_majority"
)

// Ballot choice constants
const (
	ChoiceApprove = "approve"
	ChoiceReject  = "reject"
	ChoiceAbstain = "abstain"
)

// Ballot source constants
const (
	SourcePreVote = "pre_vote"
	SourceLive    = "live"
	SourceProxy   = "proxy"
)

// RSVP constants
const (
	RSVPPending      = "pending"
	RSVPAttending    = "attending"
	RSVPNotAttending = "not_attending"
	RSVPMaybe        = "maybe"
)

// Attendance type constants
const (
	AttendanceInPerson    = "in_person"
	AttendanceOnline      = "online"
	AttendanceProxy       = "proxy"
	AttendancePreVoteOnly = "pre_vote_only"
)

// Shared vote choices, as stored by the cross-module Vote entity
const (
	SharedChoiceYes   = "YES"
	SharedChoiceNo    = "NO"
	SharedChoiceBlank = "BLANK"
)

// Real-time event types
const (
	EventVoteUpdate = "vote_update"
	EventItemUpdate = "item_update"
)

// ReminderKind names one reminder of an assembly's series.
type ReminderKind string

const (
	ReminderInitial ReminderKind = "initial"
	Reminder7Days   ReminderKind = "7days"
	Reminder3Days   ReminderKind = "3days"
	Reminder1Day    ReminderKind = "1day"
	ReminderSameDay ReminderKind = "sameday"
)

// ReminderKinds lists every kind in firing order.
var ReminderKinds = []ReminderKind{ReminderInitial, Reminder7Days, Reminder3Days, Reminder1Day, ReminderSameDay}

// Valid reports whether k is a known reminder kind.
func (k ReminderKind) Valid() bool {
	for _, known := range ReminderKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Domain types

type Building struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name"`
	TotalMills int64  `json:"total_mills"`
}

type Apartment struct {
	ID          string  `json:"id"`
	BuildingID  string  `json:"building_id"`
	Number      string  `json:"number"`
	Mills       int64   `json:"mills"`
	OwnerUserID *string `json:"owner_user_id,omitempty"`
}

type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type ReminderFlag struct {
	Sent   bool       `json:"sent"`
	SentAt *time.Time `json:"sent_at,omitempty"`
}

type Assembly struct {
	ID                       string                        `json:"id"`
	TenantID                 string                        `json:"tenant_id"`
	BuildingID               string                        `json:"building_id"`
	Title                    string                        `json:"title"`
	Description              string                        `json:"description"`
	ScheduledAt              time.Time                     `json:"scheduled_at"`
	EstimatedDurationMin     int                           `json:"estimated_duration_minutes"`
	Location                 string                        `json:"location"`
	MeetingLink              string                        `json:"meeting_link"`
	IsOnline                 bool                          `json:"is_online"`
	TotalBuildingMills       int64                         `json:"total_building_mills"`
	RequiredQuorumPercentage decimal.Decimal               `json:"required_quorum_percentage"`
	AchievedQuorumMills      int64                         `json:"achieved_quorum_mills"`
	QuorumAchieved           bool                          `json:"quorum_achieved"`
	QuorumAchievedAt         *time.Time                    `json:"quorum_achieved_at,omitempty"`
	Status                   string                        `json:"status"`
	PreVotingEnabled         bool                          `json:"pre_voting_enabled"`
	PreVotingStart           *time.Time                    `json:"pre_voting_start_date,omitempty"`
	PreVotingEnd             *time.Time                    `json:"pre_voting_end_date,omitempty"`
	InvitationSent           bool                          `json:"invitation_sent"`
	InvitationSentAt         *time.Time                    `json:"invitation_sent_at,omitempty"`
	ActualStartTime          *time.Time                    `json:"actual_start_time,omitempty"`
	ActualEndTime            *time.Time                    `json:"actual_end_time,omitempty"`
	MinutesText              string                        `json:"minutes_text"`
	MinutesApproved          bool                          `json:"minutes_approved"`
	MinutesApprovedAt        *time.Time                    `json:"minutes_approved_at,omitempty"`
	Reminders                map[ReminderKind]ReminderFlag `json:"reminders"`
	ContinuedFromID          *string                       `json:"continued_from,omitempty"`
	CreatedBy                string                        `json:"created_by"`
	CreatedAt                time.Time                     `json:"created_at"`
	UpdatedAt                time.Time                     `json:"updated_at"`
}

// ReminderSent reports whether the reminder of the given kind went out.
func (a Assembly) ReminderSent(kind ReminderKind) bool {
	return a.Reminders[kind].Sent
}

// IsTerminal reports whether the assembly has reached an end state.
func (a Assembly) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled || a.Status == StatusAdjourned
}

type AgendaItem struct {
	ID                   string     `json:"id"`
	AssemblyID           string     `json:"assembly_id"`
	Order                int        `json:"order"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	ItemType             string     `json:"item_type"`
	Status               string     `json:"status"`
	VotingType           string     `json:"voting_type"`
	AllowsPreVoting      bool       `json:"allows_pre_voting"`
	LinkedVoteID         *string    `json:"linked_vote_id,omitempty"`
	ProjectID            *string    `json:"project_id,omitempty"`
	EstimatedDurationMin int        `json:"estimated_duration_minutes"`
	ActualDurationMin    *int       `json:"actual_duration_minutes,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	Decision             string     `json:"decision"`
	DecisionType         string     `json:"decision_type"`
	Notes                string     `json:"notes"`
	CreatedAt            time.Time  `json:"created_at"`
}

// AcceptsPreVotes reports whether the item counts toward the "all voted"
// check used when filtering reminder recipients.
func (i AgendaItem) AcceptsPreVotes() bool {
	return i.ItemType == ItemTypeVoting && i.AllowsPreVoting
}

type Attendee struct {
	ID               string     `json:"id"`
	AssemblyID       string     `json:"assembly_id"`
	ApartmentID      string     `json:"apartment_id"`
	ApartmentNumber  string     `json:"apartment_number"`
	UserID           *string    `json:"user_id,omitempty"`
	Mills            int64      `json:"mills"` // read-only once the roster row exists
	RSVPStatus       string     `json:"rsvp_status"`
	RSVPNotes        string     `json:"rsvp_notes"`
	RSVPAt           *time.Time `json:"rsvp_at,omitempty"`
	IsPresent        bool       `json:"is_present"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time `json:"checked_out_at,omitempty"`
	AttendanceType   string     `json:"attendance_type"`
	ProxyApartmentID *string    `json:"proxy_apartment_id,omitempty"`
	HasPreVoted      bool       `json:"has_pre_voted"`
	PreVotedAt       *time.Time `json:"pre_voted_at,omitempty"`
}

type AssemblyVote struct {
	ID           string    `json:"id"`
	AssemblyID   string    `json:"assembly_id"`
	AgendaItemID string    `json:"agenda_item_id"`
	AttendeeID   string    `json:"attendee_id"`
	Vote         string    `json:"vote"`
	Mills        int64     `json:"mills"`
	VoteSource   string    `json:"vote_source"`
	VotedBy      *string   `json:"voted_by,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SharedVote is the cross-module Vote entity also used for project approvals.
type SharedVote struct {
	ID               string          `json:"id"`
	BuildingID       string          `json:"building_id"`
	ProjectID        *string         `json:"project_id,omitempty"`
	AgendaItemID     *string         `json:"agenda_item_id,omitempty"`
	Title            string          `json:"title"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	MinParticipation decimal.Decimal `json:"min_participation"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

type VoteSubmission struct {
	ID          string    `json:"id"`
	VoteID      string    `json:"vote_id"`
	UserID      string    `json:"user_id"`
	Choice      string    `json:"choice"`
	Source      string    `json:"source"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Result types

type QuorumStatus struct {
	PresentMills     int64      `json:"present_mills"`
	RequiredMills    int64      `json:"required_mills"`
	TotalMills       int64      `json:"total_mills"`
	Percentage       float64    `json:"percentage"`
	Achieved         bool       `json:"achieved"`
	MissingMills     int64      `json:"missing_mills"`
	PresentCount     int        `json:"present_count"`
	QuorumAchieved   bool       `json:"quorum_achieved"`
	QuorumAchievedAt *time.Time `json:"quorum_achieved_at,omitempty"`
}

type ChoiceTally struct {
	Count int   `json:"count"`
	Mills int64 `json:"mills"`
}

type VoteResults struct {
	AgendaItemID      string      `json:"agenda_item_id"`
	Approve           ChoiceTally `json:"approve"`
	Reject            ChoiceTally `json:"reject"`
	Abstain           ChoiceTally `json:"abstain"`
	Total             ChoiceTally `json:"total"`
	ApprovePercentage float64     `json:"approve_percentage"`
	RejectPercentage  float64     `json:"reject_percentage"`
	AbstainPercentage float64     `json:"abstain_percentage"`
	PreVoteCount      int         `json:"pre_vote_count"`
	LiveCount         int         `json:"live_count"`
	ProxyCount        int         `json:"proxy_count"`
}

type ReminderBatch struct {
	ID         string       `json:"id"`
	AssemblyID string       `json:"assembly_id"`
	Kind       ReminderKind `json:"kind"`
	Sent       int          `json:"sent"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

type AssemblyDetail struct {
	Assembly    Assembly     `json:"assembly"`
	AgendaItems []AgendaItem `json:"agenda_items"`
	Attendees   []Attendee   `json:"attendees"`
}

// Request types

type CreateAssemblyRequest struct {
	BuildingID               string              `json:"building_id"`
	Title                    string              `json:"title"`
	Description              string              `json:"description"`
	ScheduledAt              time.Time           `json:"scheduled_at"`
	EstimatedDurationMin     int                 `json:"estimated_duration_minutes"`
	Location                 string              `json:"location"`
	MeetingLink              string              `json:"meeting_link"`
	IsOnline                 bool                `json:"is_online"`
	RequiredQuorumPercentage *decimal.Decimal    `json:"required_quorum_percentage,omitempty"`
	PreVotingEnabled         bool                `json:"pre_voting_enabled"`
	PreVotingStart           *time.Time          `json:"pre_voting_start_date,omitempty"`
	PreVotingEnd             *time.Time          `json:"pre_voting_end_date,omitempty"`
	Status                   string              `json:"status"` // draft (default) or scheduled
	AgendaItems              []AgendaItemRequest `json:"agenda_items"`
}

type AgendaItemRequest struct {
	Order                int     `json:"order"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	ItemType             string  `json:"item_type"`
	VotingType           string  `json:"voting_type"`
	AllowsPreVoting      bool    `json:"allows_pre_voting"`
	ProjectID            *string `json:"project_id,omitempty"`
	EstimatedDurationMin int     `json:"estimated_duration_minutes"`
}

type AdjournRequest struct {
	ContinuationDate *time.Time `json:"continuation_date,omitempty"`
}

type CastVoteRequest struct {
	AttendeeID   string `json:"attendee_id"`
	AgendaItemID string `json:"agenda_item_id"`
	Choice       string `json:"vote"`
	Notes        string `json:"notes"`
}

type EmailVoteRequest struct {
	Token  string `json:"token"`
	Choice string `json:"vote"`
	Notes  string `json:"notes"`
}

type CheckInRequest struct {
	AttendanceType   string  `json:"attendance_type"`
	ProxyApartmentID *string `json:"proxy_apartment_id,omitempty"`
}

type RSVPRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type EndItemRequest struct {
	Decision     string `json:"decision"`
	DecisionType string `json:"decision_type"`
}

type DeferItemRequest struct {
	Reason string `json:"reason"`
}

type MinutesRequest struct {
	Text string `json:"text"`
}

// Response types

type AdjournResponse struct {
	Assembly     Assembly  `json:"assembly"`
	Continuation *Assembly `json:"continuation,omitempty"`
}

type ScheduleRemindersResponse struct {
	Enqueued int `json:"enqueued"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}
