package domain

import (
	"github.com/google/uuid"

	dErrors "sayit/pkg/domain-errors"
)

// Typed IDs keep actor, complaint, and notification references from being
// swapped for one another at compile time. Parsing enforces the invariant
// that IDs are valid, non-nil UUIDs at trust boundaries.

type ActorID uuid.UUID

type AgencyID uuid.UUID

type CategoryID uuid.UUID

type ComplaintID uuid.UUID

type ResponseID uuid.UUID

type NotificationID uuid.UUID

func NewActorID() ActorID               { return ActorID(uuid.New()) }
func NewAgencyID() AgencyID             { return AgencyID(uuid.New()) }
func NewCategoryID() CategoryID         { return CategoryID(uuid.New()) }
func NewComplaintID() ComplaintID       { return ComplaintID(uuid.New()) }
func NewResponseID() ResponseID         { return ResponseID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id ActorID) String() string        { return uuid.UUID(id).String() }
func (id AgencyID) String() string       { return uuid.UUID(id).String() }
func (id CategoryID) String() string     { return uuid.UUID(id).String() }
func (id ComplaintID) String() string    { return uuid.UUID(id).String() }
func (id ResponseID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AgencyID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CategoryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ComplaintID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ResponseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	return ActorID(u), err
}

func ParseAgencyID(s string) (AgencyID, error) {
	u, err := parseUUID(s)
	return AgencyID(u), err
}

func ParseCategoryID(s string) (CategoryID, error) {
	u, err := parseUUID(s)
	return CategoryID(u), err
}

func ParseComplaintID(s string) (ComplaintID, error) {
	u, err := parseUUID(s)
	return ComplaintID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	return NotificationID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
