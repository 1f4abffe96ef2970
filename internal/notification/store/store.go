package store

import (
	"context"
	"time"

	"sayit/internal/actor"
	"sayit/internal/notification"
	id "sayit/pkg/domain"
)

// Store persists inbox entries. Read paths filter expired entries; physical
// deletion is the sweep's job and never a correctness requirement.
type Store interface {
	Insert(ctx context.Context, n *notification.Notification) error
	ListByRecipient(ctx context.Context, recipient actor.Ref, now time.Time) ([]notification.Notification, error)
	// MarkRead returns sentinel.ErrNotFound both for unknown IDs and for
	// entries owned by someone else; callers cannot probe other inboxes.
	MarkRead(ctx context.Context, notificationID id.NotificationID, recipient actor.Ref, now time.Time) error
	MarkAllRead(ctx context.Context, recipient actor.Ref, now time.Time) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
