package notification

import (
	"time"

	"sayit/internal/actor"
	id "sayit/pkg/domain"
)

// DefaultTTL is how long an inbox entry stays visible. Expiry is logical:
// expired entries drop out of read queries immediately and are physically
// deleted whenever the maintenance sweep next runs.
const DefaultTTL = 45 * 24 * time.Hour

// Type tags what a notification is about.
type Type string

const (
	TypeComplaintUpdate Type = "complaint_update"
	TypeResponseAdded   Type = "response_added"
	TypeAgencyNotice    Type = "agency_notice"
)

// Entity points at the originating record.
type Entity struct {
	Kind string // "complaint" | "response" | "agency"
	ID   string
}

// Notification is one actor-scoped inbox entry. Recipients are keyed by
// (kind, id) because actor IDs are only unique within a kind.
type Notification struct {
	ID            id.NotificationID
	RecipientKind id.ActorKind
	RecipientID   id.ActorID
	Type          Type
	Entity        Entity
	Message       string
	Read          bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

func (n *Notification) Recipient() actor.Ref {
	return actor.Ref{Kind: n.RecipientKind, ID: n.RecipientID}
}

func (n *Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// NewComplaintUpdate builds the inbox entry emitted by a lifecycle transition.
func NewComplaintUpdate(recipient actor.Ref, complaintID id.ComplaintID, message string, now time.Time) *Notification {
	return &Notification{
		ID:            id.NewNotificationID(),
		RecipientKind: recipient.Kind,
		RecipientID:   recipient.ID,
		Type:          TypeComplaintUpdate,
		Entity:        Entity{Kind: "complaint", ID: complaintID.String()},
		Message:       message,
		ExpiresAt:     now.Add(DefaultTTL),
		CreatedAt:     now,
	}
}

// NewResponseAdded builds the inbox entry for a public response that did not
// move the status.
func NewResponseAdded(recipient actor.Ref, responseID id.ResponseID, message string, now time.Time) *Notification {
	return &Notification{
		ID:            id.NewNotificationID(),
		RecipientKind: recipient.Kind,
		RecipientID:   recipient.ID,
		Type:          TypeResponseAdded,
		Entity:        Entity{Kind: "response", ID: responseID.String()},
		Message:       message,
		ExpiresAt:     now.Add(DefaultTTL),
		CreatedAt:     now,
	}
}
