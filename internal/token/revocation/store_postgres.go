package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Clock abstracts time for testability.
type Clock func() time.Time

// PostgresTRL persists revoked token keys in PostgreSQL. Useful where a
// deployment wants revocations to survive restarts but has no Redis.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

// PostgresTRLOption configures a PostgresTRL instance.
type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

// NewPostgresTRL constructs a PostgreSQL-backed token revocation list.
func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// Migrate creates the revocation table when bootstrap mode is enabled.
func (t *PostgresTRL) Migrate(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS token_revocations (
			token_key  text PRIMARY KEY,
			expires_at timestamptz NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate token revocations: %w", err)
	}
	return nil
}

// Revoke adds a token key to the revocation list with TTL.
func (t *PostgresTRL) Revoke(ctx context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	expiresAt := t.clock().Add(ttl)
	query := `
		INSERT INTO token_revocations (token_key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_key) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := t.db.ExecContext(ctx, query, key, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token key is in the revocation list.
func (t *PostgresTRL) IsRevoked(ctx context.Context, key string) (bool, error) {
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx,
		`SELECT expires_at FROM token_revocations WHERE token_key = $1`, key).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	if t.clock().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// PurgeExpired removes dead entries. Run periodically from a maintenance
// goroutine; correctness never depends on it.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM token_revocations WHERE expires_at < $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge token revocations: %w", err)
	}
	return res.RowsAffected()
}
