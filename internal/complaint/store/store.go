package store

import (
	"context"

	"sayit/internal/complaint"
	"sayit/internal/notification"
	id "sayit/pkg/domain"
)

// TransitionWrite is the atomic unit of a lifecycle change: the updated
// complaint, the responses documenting it, and the submitter's inbox entry.
// Complaint is nil when no response moved the status; Notification is nil
// when the acting actor is the submitter (nobody notifies themselves).
// Responses always holds at least one entry; a submitter reopen carries two,
// the submitter's own response plus the system audit response.
type TransitionWrite struct {
	Complaint    *complaint.Complaint
	Responses    []*complaint.Response
	Notification *notification.Notification
}

// Store persists complaints and their response threads.
type Store interface {
	// Create inserts a new complaint. Returns sentinel.ErrConflict when the
	// tracking ID is already taken; the caller re-rolls and retries.
	Create(ctx context.Context, c *complaint.Complaint) error
	FindByID(ctx context.Context, complaintID id.ComplaintID) (*complaint.Complaint, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*complaint.Complaint, error)
	// ApplyTransition commits the write group atomically. All three records
	// land or none do.
	ApplyTransition(ctx context.Context, w TransitionWrite) error
	// ListResponses returns the thread oldest first. Internal entries are
	// filtered out unless includeInternal is set.
	ListResponses(ctx context.Context, complaintID id.ComplaintID, includeInternal bool) ([]complaint.Response, error)
}
