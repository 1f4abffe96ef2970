package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sayit/internal/actor"
	"sayit/internal/notification"
	"sayit/internal/notification/store"
	"sayit/internal/platform/metrics"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/platform/sentinel"
	"sayit/pkg/requestcontext"
)

// Dispatcher owns the inbox: out-of-transaction creation and all reads and
// mark operations. Lifecycle transitions write their notifications through
// the complaint store's transaction instead, so a transition and its inbox
// entry commit together.
type Dispatcher struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(s store.Store, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: s, logger: logger, metrics: m}
}

// Notify creates one inbox entry. Duplicate notifications for the same event
// are acceptable; no idempotency is attempted.
func (d *Dispatcher) Notify(ctx context.Context, recipient actor.Ref, notifType notification.Type, entity notification.Entity, message string, ttl time.Duration) (*notification.Notification, error) {
	if recipient.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient required")
	}
	if ttl <= 0 {
		ttl = notification.DefaultTTL
	}

	now := requestcontext.Now(ctx)
	n := &notification.Notification{
		ID:            id.NewNotificationID(),
		RecipientKind: recipient.Kind,
		RecipientID:   recipient.ID,
		Type:          notifType,
		Entity:        entity,
		Message:       message,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}
	if err := d.store.Insert(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	if d.metrics != nil {
		d.metrics.NotificationsCreated.Inc()
	}
	return n, nil
}

// Inbox lists the recipient's live (non-expired) notifications, newest first.
func (d *Dispatcher) Inbox(ctx context.Context, recipient actor.Ref) ([]notification.Notification, error) {
	out, err := d.store.ListByRecipient(ctx, recipient, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

// MarkRead marks one entry read. Foreign or unknown IDs answer identically so
// inbox contents cannot be probed.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID id.NotificationID, recipient actor.Ref) error {
	err := d.store.MarkRead(ctx, notificationID, recipient, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead is bulk and best-effort: partial progress is kept and the error
// logged rather than surfaced.
func (d *Dispatcher) MarkAllRead(ctx context.Context, recipient actor.Ref) int {
	count, err := d.store.MarkAllRead(ctx, recipient, requestcontext.Now(ctx))
	if err != nil {
		d.logger.WarnContext(ctx, "mark-all-read incomplete",
			"error", err,
			"recipient_kind", recipient.Kind.String(),
			"recipient_id", recipient.ID.String(),
		)
	}
	return count
}

// Sweep physically deletes expired entries. Visibility never depends on it.
func (d *Dispatcher) Sweep(ctx context.Context) {
	count, err := d.store.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		d.logger.WarnContext(ctx, "notification sweep failed", "error", err)
		return
	}
	if count > 0 {
		d.logger.InfoContext(ctx, "notification sweep", "deleted", count)
	}
}
