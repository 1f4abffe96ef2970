// Package audit records who did what to which record. Events flow through a
// buffered channel to a background worker so the request path never blocks on
// the audit sink.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "sayit/pkg/domain"
)

// Event is one audit record. Keep it transport-agnostic so sinks can fan out.
// Metadata carries small event-specific details (old/new status, tracking
// IDs); never secrets or credentials.
type Event struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	ActorKind id.ActorKind      `json:"actor_kind"`
	ActorID   string            `json:"actor_id,omitempty"`
	Entity    string            `json:"entity"`
	EntityID  string            `json:"entity_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	At        time.Time         `json:"at"`
}

// NewEvent stamps identity and time; callers fill actor and metadata.
func NewEvent(action, entity, entityID string, at time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		At:       at,
	}
}

// Actions emitted by the lifecycle and auth flows.
const (
	ActionComplaintCreated = "complaint.created"
	ActionComplaintMoved   = "complaint.status_changed"
	ActionComplaintAssign  = "complaint.assigned"
	ActionResponseAdded    = "complaint.response_added"
	ActionTokenRevoked     = "token.revoked"
	ActionIdentityRevoked  = "identity_code.revoked"
)
