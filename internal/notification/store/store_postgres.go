package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sayit/internal/actor"
	"sayit/internal/notification"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

// PostgresStore persists inbox entries. The notifications table is also
// written by the complaint store's transaction; the schema lives here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the notifications table when bootstrap mode is enabled.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id             uuid PRIMARY KEY,
			recipient_kind text NOT NULL,
			recipient_id   uuid NOT NULL,
			type           text NOT NULL,
			entity_kind    text NOT NULL,
			entity_id      text NOT NULL,
			message        text NOT NULL,
			read           boolean NOT NULL DEFAULT false,
			expires_at     timestamptz NOT NULL,
			created_at     timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS notifications_recipient
			ON notifications (recipient_kind, recipient_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate notifications: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, n *notification.Notification) error {
	_, err := s.pool.Exec(ctx, insertNotificationSQL,
		uuid.UUID(n.ID), n.RecipientKind.String(), uuid.UUID(n.RecipientID),
		string(n.Type), n.Entity.Kind, n.Entity.ID, n.Message, n.Read,
		n.ExpiresAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// InsertNotificationTx writes an inbox entry inside a caller-owned
// transaction. The complaint store uses this for the three-way lifecycle write.
func InsertNotificationTx(ctx context.Context, tx pgx.Tx, n *notification.Notification) error {
	_, err := tx.Exec(ctx, insertNotificationSQL,
		uuid.UUID(n.ID), n.RecipientKind.String(), uuid.UUID(n.RecipientID),
		string(n.Type), n.Entity.Kind, n.Entity.ID, n.Message, n.Read,
		n.ExpiresAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

const insertNotificationSQL = `
	INSERT INTO notifications
		(id, recipient_kind, recipient_id, type, entity_kind, entity_id, message, read, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient actor.Ref, now time.Time) ([]notification.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_kind, recipient_id, type, entity_kind, entity_id, message, read, expires_at, created_at
		FROM notifications
		WHERE recipient_kind = $1 AND recipient_id = $2 AND expires_at > $3
		ORDER BY created_at DESC
	`, recipient.Kind.String(), uuid.UUID(recipient.ID), now)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var (
			n             notification.Notification
			notifUUID     uuid.UUID
			recipientUUID uuid.UUID
			kindStr       string
			typeStr       string
		)
		if err := rows.Scan(&notifUUID, &kindStr, &recipientUUID, &typeStr,
			&n.Entity.Kind, &n.Entity.ID, &n.Message, &n.Read, &n.ExpiresAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notifUUID)
		n.RecipientKind = id.ActorKind(kindStr)
		n.RecipientID = id.ActorID(recipientUUID)
		n.Type = notification.Type(typeStr)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID, recipient actor.Ref, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE id = $1 AND recipient_kind = $2 AND recipient_id = $3 AND expires_at > $4
	`, uuid.UUID(notificationID), recipient.Kind.String(), uuid.UUID(recipient.ID), now)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, recipient actor.Ref, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE recipient_kind = $1 AND recipient_id = $2 AND read = false AND expires_at > $3
	`, recipient.Kind.String(), uuid.UUID(recipient.ID), now)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
