package complaint

import (
	"fmt"
	"time"

	"sayit/internal/actor"
	"sayit/internal/attachment"
	id "sayit/pkg/domain"
)

// Status is the complaint lifecycle state. The forward path is
// pending -> under_review -> assigned -> in_progress -> resolved | rejected
// -> closed, with one re-entrant edge from the terminal trio back to
// in_progress when a submitter responds (reopen).
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusAssigned    Status = "assigned"
	StatusInProgress  Status = "in_progress"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
	StatusRejected    Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusUnderReview, StatusAssigned, StatusInProgress,
		StatusResolved, StatusClosed, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown complaint status: %q", s)
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the status is one of the terminal trio. Terminal
// is "in practice": all three can be reopened by a submitter response.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusRejected
}

// SubmissionType records how the complaint entered the system and dictates
// which submitter reference is legal.
type SubmissionType string

const (
	// SubmissionStandard is filed by a logged-in citizen.
	SubmissionStandard SubmissionType = "standard"
	// SubmissionAnonymous is filed under an anonymous identity code.
	SubmissionAnonymous SubmissionType = "anonymous"
	// SubmissionExternal arrives through an out-of-band channel (paper, phone)
	// and carries no submitter reference at all.
	SubmissionExternal SubmissionType = "external"
)

func ParseSubmissionType(s string) (SubmissionType, error) {
	switch SubmissionType(s) {
	case SubmissionStandard, SubmissionAnonymous, SubmissionExternal:
		return SubmissionType(s), nil
	}
	return "", fmt.Errorf("unknown submission type: %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority: %q", s)
}

// Complaint is the grievance record. TrackingID is the public handle, assigned
// once at creation and never changed; ID is the storage key.
type Complaint struct {
	ID          id.ComplaintID
	TrackingID  string
	Title       string
	Description string
	CategoryID  id.CategoryID
	// AgencyID is derived from the category at creation unless overridden.
	AgencyID       id.AgencyID
	SubmissionType SubmissionType
	// SubmitterKind/SubmitterID are zero for external submissions.
	SubmitterKind   id.ActorKind
	SubmitterID     id.ActorID
	Status          Status
	Priority        Priority
	AssignedAgentID id.ActorID
	Attachments     []attachment.Metadata
	// ResolvedAt/ClosedAt are stamped on first entry into the state and never
	// cleared, even across a reopen.
	ResolvedAt time.Time
	ClosedAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Submitter returns the submitting actor, or false for external complaints.
func (c *Complaint) Submitter() (actor.Ref, bool) {
	if c.SubmissionType == SubmissionExternal {
		return actor.Ref{}, false
	}
	return actor.Ref{Kind: c.SubmitterKind, ID: c.SubmitterID}, true
}

// Validate checks the submission-type/submitter agreement invariant.
func (c *Complaint) Validate() error {
	switch c.SubmissionType {
	case SubmissionStandard:
		if c.SubmitterKind != id.ActorCitizen || c.SubmitterID.IsNil() {
			return fmt.Errorf("standard submission requires a citizen submitter")
		}
	case SubmissionAnonymous:
		if c.SubmitterKind != id.ActorAnonymous || c.SubmitterID.IsNil() {
			return fmt.Errorf("anonymous submission requires an anonymous submitter")
		}
	case SubmissionExternal:
		if c.SubmitterKind != "" || !c.SubmitterID.IsNil() {
			return fmt.Errorf("external submission must not carry a submitter")
		}
	default:
		return fmt.Errorf("unknown submission type: %q", c.SubmissionType)
	}
	if c.Title == "" {
		return fmt.Errorf("title required")
	}
	if c.CategoryID.IsNil() {
		return fmt.Errorf("category required")
	}
	return nil
}

// StatusChange documents a transition on its audit response.
type StatusChange struct {
	Old Status
	New Status
}

// Response is one entry in a complaint's thread. Audit responses written by
// the engine carry AuthorKind system and a StatusChange payload.
type Response struct {
	ID          id.ResponseID
	ComplaintID id.ComplaintID
	AuthorKind  id.ActorKind
	// AuthorID is nil for system-authored audit entries.
	AuthorID     id.ActorID
	Message      string
	StatusChange *StatusChange
	// IsInternal restricts visibility to staff and agents.
	IsInternal bool
	CreatedAt  time.Time
}
