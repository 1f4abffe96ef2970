//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sayit/internal/token/revocation"
	"sayit/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite

	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTRLSuite) TestRevokeAndCheck() {
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

func (s *RedisTRLSuite) TestEntriesExpireWithTheirTTL() {
	ctx := context.Background()

	s.Require().NoError(s.trl.Revoke(ctx, "short-lived", 500*time.Millisecond))

	revoked, err := s.trl.IsRevoked(ctx, "short-lived")
	s.Require().NoError(err)
	s.True(revoked)

	s.Eventually(func() bool {
		revoked, err := s.trl.IsRevoked(ctx, "short-lived")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}
