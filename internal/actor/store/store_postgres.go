package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sayit/internal/actor"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresAccountStore persists credentialed actors in PostgreSQL.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

// MigrateAccounts creates the actor tables when bootstrap mode is enabled.
func MigrateAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS actor_accounts (
			id                uuid PRIMARY KEY,
			kind              text NOT NULL,
			email             text NOT NULL,
			password_hash     text NOT NULL,
			role              text NOT NULL DEFAULT '',
			agency_id         uuid,
			active            boolean NOT NULL DEFAULT true,
			last_login_at     timestamptz,
			last_login_device text NOT NULL DEFAULT '',
			created_at        timestamptz NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS actor_accounts_kind_email
			ON actor_accounts (kind, lower(email));

		CREATE TABLE IF NOT EXISTS anonymous_identities (
			id           uuid PRIMARY KEY,
			code         text NOT NULL UNIQUE,
			expires_at   timestamptz NOT NULL,
			revoked      boolean NOT NULL DEFAULT false,
			usage_count  integer NOT NULL DEFAULT 0,
			last_used_at timestamptz,
			created_at   timestamptz NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate actor tables: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Create(ctx context.Context, account *actor.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actor_accounts
			(id, kind, email, password_hash, role, agency_id, active, last_login_at, last_login_device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(account.ID), account.Kind.String(), account.Email, account.PasswordHash,
		account.Role.String(), nullableUUID(uuid.UUID(account.AgencyID)), account.Active,
		nullableTime(account.LastLoginAt), account.LastLoginDevice, account.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, kind id.ActorKind, actorID id.ActorID) (*actor.Account, error) {
	row := s.pool.QueryRow(ctx, accountSelect+` WHERE kind = $1 AND id = $2`,
		kind.String(), uuid.UUID(actorID))
	return scanAccount(row)
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, kind id.ActorKind, email string) (*actor.Account, error) {
	row := s.pool.QueryRow(ctx, accountSelect+` WHERE kind = $1 AND lower(email) = lower($2)`,
		kind.String(), email)
	return scanAccount(row)
}

func (s *PostgresAccountStore) Update(ctx context.Context, account *actor.Account) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE actor_accounts
		SET password_hash = $2, role = $3, agency_id = $4, active = $5,
			last_login_at = $6, last_login_device = $7
		WHERE id = $1
	`,
		uuid.UUID(account.ID), account.PasswordHash, account.Role.String(),
		nullableUUID(uuid.UUID(account.AgencyID)), account.Active,
		nullableTime(account.LastLoginAt), account.LastLoginDevice,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const accountSelect = `
	SELECT id, kind, email, password_hash, role, agency_id, active,
		last_login_at, last_login_device, created_at
	FROM actor_accounts`

func scanAccount(row pgx.Row) (*actor.Account, error) {
	var (
		a         actor.Account
		actorUUID uuid.UUID
		kindStr   string
		roleStr   string
		agencyID  *uuid.UUID
		lastLogin *time.Time
	)
	err := row.Scan(&actorUUID, &kindStr, &a.Email, &a.PasswordHash, &roleStr,
		&agencyID, &a.Active, &lastLogin, &a.LastLoginDevice, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.ID = id.ActorID(actorUUID)
	a.Kind = id.ActorKind(kindStr)
	a.Role = id.StaffRole(roleStr)
	if agencyID != nil {
		a.AgencyID = id.AgencyID(*agencyID)
	}
	if lastLogin != nil {
		a.LastLoginAt = *lastLogin
	}
	return &a, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// PostgresAnonymousStore persists anonymous identities in PostgreSQL.
type PostgresAnonymousStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAnonymousStore(pool *pgxpool.Pool) *PostgresAnonymousStore {
	return &PostgresAnonymousStore{pool: pool}
}

func (s *PostgresAnonymousStore) Create(ctx context.Context, identity *actor.AnonymousIdentity) error {
	identity.ClampExpiry()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO anonymous_identities (id, code, expires_at, revoked, usage_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(identity.ID), identity.Code, identity.ExpiresAt, identity.Revoked,
		identity.UsageCount, nullableTime(identity.LastUsedAt), identity.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert anonymous identity: %w", err)
	}
	return nil
}

func (s *PostgresAnonymousStore) FindByID(ctx context.Context, actorID id.ActorID) (*actor.AnonymousIdentity, error) {
	row := s.pool.QueryRow(ctx, anonymousSelect+` WHERE id = $1`, uuid.UUID(actorID))
	return scanAnonymous(row)
}

func (s *PostgresAnonymousStore) FindByCode(ctx context.Context, code string) (*actor.AnonymousIdentity, error) {
	row := s.pool.QueryRow(ctx, anonymousSelect+` WHERE code = $1`, code)
	return scanAnonymous(row)
}

func (s *PostgresAnonymousStore) Update(ctx context.Context, identity *actor.AnonymousIdentity) error {
	identity.ClampExpiry()
	tag, err := s.pool.Exec(ctx, `
		UPDATE anonymous_identities
		SET expires_at = $2, revoked = $3, usage_count = $4, last_used_at = $5
		WHERE id = $1
	`,
		uuid.UUID(identity.ID), identity.ExpiresAt, identity.Revoked,
		identity.UsageCount, nullableTime(identity.LastUsedAt),
	)
	if err != nil {
		return fmt.Errorf("update anonymous identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const anonymousSelect = `
	SELECT id, code, expires_at, revoked, usage_count, last_used_at, created_at
	FROM anonymous_identities`

func scanAnonymous(row pgx.Row) (*actor.AnonymousIdentity, error) {
	var (
		a         actor.AnonymousIdentity
		actorUUID uuid.UUID
		lastUsed  *time.Time
	)
	err := row.Scan(&actorUUID, &a.Code, &a.ExpiresAt, &a.Revoked, &a.UsageCount, &lastUsed, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan anonymous identity: %w", err)
	}
	a.ID = id.ActorID(actorUUID)
	if lastUsed != nil {
		a.LastUsedAt = *lastUsed
	}
	return &a, nil
}
