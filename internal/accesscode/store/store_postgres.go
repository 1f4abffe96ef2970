package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sayit/internal/accesscode"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

// PostgresRecoveryStore persists recovery codes in PostgreSQL. Replace is a
// single upsert statement, closing the delete-then-insert race the previous
// generation of this system carried.
type PostgresRecoveryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecoveryStore(pool *pgxpool.Pool) *PostgresRecoveryStore {
	return &PostgresRecoveryStore{pool: pool}
}

// MigrateRecoveryCodes creates the recovery code table when bootstrap mode is
// enabled.
func MigrateRecoveryCodes(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recovery_codes (
			email      text PRIMARY KEY,
			code       text NOT NULL,
			kind       text NOT NULL,
			actor_id   uuid NOT NULL,
			expires_at timestamptz NOT NULL,
			created_at timestamptz NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate recovery codes: %w", err)
	}
	return nil
}

func (s *PostgresRecoveryStore) Replace(ctx context.Context, code *accesscode.RecoveryCode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recovery_codes (email, code, kind, actor_id, expires_at, created_at)
		VALUES (lower($1), $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			code = EXCLUDED.code,
			kind = EXCLUDED.kind,
			actor_id = EXCLUDED.actor_id,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`,
		code.Email, code.Code, code.Kind.String(), uuid.UUID(code.ActorID),
		code.ExpiresAt, code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace recovery code: %w", err)
	}
	return nil
}

func (s *PostgresRecoveryStore) FindByEmail(ctx context.Context, email string) (*accesscode.RecoveryCode, error) {
	var (
		code      accesscode.RecoveryCode
		kindStr   string
		actorUUID uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `
		SELECT email, code, kind, actor_id, expires_at, created_at
		FROM recovery_codes WHERE email = lower($1)
	`, email).Scan(&code.Email, &code.Code, &kindStr, &actorUUID, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recovery code: %w", err)
	}
	code.Kind = id.ActorKind(kindStr)
	code.ActorID = id.ActorID(actorUUID)
	return &code, nil
}

func (s *PostgresRecoveryStore) Delete(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM recovery_codes WHERE email = lower($1)`, email)
	if err != nil {
		return fmt.Errorf("delete recovery code: %w", err)
	}
	return nil
}
