//go:build integration

package revocation_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sayit/internal/token/revocation"
	"sayit/pkg/testutil/containers"
)

type PostgresTRLSuite struct {
	suite.Suite

	db  *sql.DB
	now time.Time
	trl *revocation.PostgresTRL
}

func TestPostgresTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTRLSuite))
}

func (s *PostgresTRLSuite) SetupSuite() {
	pg := containers.NewPostgresContainer(s.T())

	db, err := sql.Open("postgres", pg.URL)
	s.Require().NoError(err)
	s.db = db

	s.now = time.Now()
	s.trl = revocation.NewPostgresTRL(db, revocation.WithPostgresClock(func() time.Time { return s.now }))
	s.Require().NoError(s.trl.Migrate(context.Background()))
}

func (s *PostgresTRLSuite) SetupTest() {
	_, err := s.db.ExecContext(context.Background(), `TRUNCATE token_revocations`)
	s.Require().NoError(err)
}

func (s *PostgresTRLSuite) TestRevokeAndCheck() {
	ctx := context.Background()

	revoked, err := s.trl.IsRevoked(ctx, "some-token-key")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.trl.Revoke(ctx, "some-token-key", time.Minute))

	revoked, err = s.trl.IsRevoked(ctx, "some-token-key")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.trl.IsRevoked(ctx, "a-different-key")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *PostgresTRLSuite) TestExpiredEntriesStopMatching() {
	ctx := context.Background()

	s.Require().NoError(s.trl.Revoke(ctx, "short-lived", time.Minute))

	s.now = s.now.Add(2 * time.Minute)
	revoked, err := s.trl.IsRevoked(ctx, "short-lived")
	s.Require().NoError(err)
	s.False(revoked)
}

// TestPurgeExpired pins the maintenance sweep the server runs hourly: dead
// rows go, live ones stay.
func (s *PostgresTRLSuite) TestPurgeExpired() {
	ctx := context.Background()

	s.Require().NoError(s.trl.Revoke(ctx, "dead-key", time.Minute))
	s.Require().NoError(s.trl.Revoke(ctx, "live-key", time.Hour))

	s.now = s.now.Add(10 * time.Minute)
	purged, err := s.trl.PurgeExpired(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), purged)

	revoked, err := s.trl.IsRevoked(ctx, "live-key")
	s.Require().NoError(err)
	s.True(revoked)

	var remaining int
	s.Require().NoError(s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM token_revocations`).Scan(&remaining))
	s.Equal(1, remaining)
}
