package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"sayit/internal/platform/config"
	"sayit/internal/token/revocation"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/platform/sentinel"
	"sayit/pkg/requestcontext"
)

// stubResolver approves every subject except the ones marked dead.
type stubResolver struct {
	dead map[id.ActorID]bool
}

func (r *stubResolver) ResolveSubject(_ context.Context, _ id.ActorKind, actorID id.ActorID) error {
	if r.dead[actorID] {
		return sentinel.ErrNotFound
	}
	return nil
}

type TokenSuite struct {
	suite.Suite

	svc      *Service
	trl      *revocation.MemoryTRL
	resolver *stubResolver
	cfg      config.TokenConfig
	now      time.Time
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.cfg = config.TokenConfig{
		CitizenTTL:   7 * 24 * time.Hour,
		AgentTTL:     12 * time.Hour,
		AnonymousTTL: 30 * 24 * time.Hour,
	}
	s.trl = revocation.NewMemoryTRL()
	s.resolver = &stubResolver{dead: make(map[id.ActorID]bool)}
	s.svc = NewService("test-signing-key", s.cfg, s.trl, s.resolver)
	// Issue stamps expiry relative to the request clock, but jwt parsing
	// checks expiry against the wall clock, so the pinned time stays near it.
	s.now = time.Now().Truncate(time.Second)
}

func (s *TokenSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *TokenSuite) TestIssueAndVerify() {
	for _, kind := range []id.ActorKind{id.ActorCitizen, id.ActorAgent, id.ActorStaff, id.ActorAnonymous} {
		s.Run(kind.String(), func() {
			actorID := id.NewActorID()
			req := IssueRequest{ActorID: actorID, Kind: kind}
			if kind == id.ActorAgent {
				req.AgencyID = id.NewAgencyID()
			}
			if kind == id.ActorStaff {
				req.Role = id.RoleSupervisor
			}

			raw, issued, err := s.svc.Issue(s.ctx(), req)
			s.Require().NoError(err)

			claims, err := s.svc.Verify(s.ctx(), raw)
			s.Require().NoError(err)
			s.Equal(kind, claims.Kind())
			subject, err := claims.SubjectID()
			s.Require().NoError(err)
			s.Equal(actorID, subject)
			s.Equal(issued.ID, claims.ID)
		})
	}
}

func (s *TokenSuite) TestLifetimes() {
	s.Run("kind defaults", func() {
		_, claims, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorCitizen})
		s.Require().NoError(err)
		s.Equal(s.now.Add(s.cfg.CitizenTTL), claims.ExpiresAt.Time)
	})

	s.Run("staff lifetime steps down with privilege", func() {
		for role, want := range map[id.StaffRole]time.Duration{
			id.RoleAdmin:      8 * time.Hour,
			id.RoleSupervisor: 10 * time.Hour,
		} {
			_, claims, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorStaff, Role: role})
			s.Require().NoError(err)
			s.Equal(s.now.Add(want), claims.ExpiresAt.Time)
		}
	})

	s.Run("NotAfter caps below the default", func() {
		ceiling := s.now.Add(time.Hour)
		_, claims, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorAnonymous, NotAfter: ceiling})
		s.Require().NoError(err)
		s.Equal(ceiling, claims.ExpiresAt.Time)
	})

	s.Run("a token cannot be born expired", func() {
		_, _, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorAnonymous, NotAfter: s.now.Add(-time.Minute)})
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})
}

func (s *TokenSuite) TestVerifyFailures() {
	s.Run("garbage input is malformed", func() {
		_, err := s.svc.Verify(s.ctx(), "not-a-token")
		s.ErrorIs(err, ErrMalformed)
	})

	s.Run("expired token is rejected", func() {
		past := requestcontext.WithTime(context.Background(), s.now.Add(-2*time.Hour))
		raw, _, err := s.svc.Issue(past, IssueRequest{
			ActorID:  id.NewActorID(),
			Kind:     id.ActorCitizen,
			NotAfter: s.now.Add(-time.Hour),
		})
		s.Require().NoError(err)

		_, err = s.svc.Verify(s.ctx(), raw)
		s.ErrorIs(err, ErrExpired)
	})

	s.Run("wrong signing key is rejected", func() {
		other := NewService("some-other-key", s.cfg, revocation.NewMemoryTRL(), s.resolver)
		raw, _, err := other.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorCitizen})
		s.Require().NoError(err)

		_, err = s.svc.Verify(s.ctx(), raw)
		s.ErrorIs(err, ErrMalformed)
	})

	s.Run("surfaces are not interchangeable", func() {
		// Hand-sign a token whose issuer and audience belong to the staff
		// surface while the kind claim says citizen.
		claims := &Claims{
			ActorKind: id.ActorCitizen.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id.NewActorID().String(),
				Issuer:    "sayit/staff",
				Audience:  []string{"sayit:staff"},
				IssuedAt:  jwt.NewNumericDate(s.now),
				ExpiresAt: jwt.NewNumericDate(s.now.Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
		s.Require().NoError(err)

		_, err = s.svc.Verify(s.ctx(), raw)
		s.ErrorIs(err, ErrMalformed)
	})

	s.Run("dead subject kills a live token", func() {
		actorID := id.NewActorID()
		raw, _, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: actorID, Kind: id.ActorCitizen})
		s.Require().NoError(err)

		_, err = s.svc.Verify(s.ctx(), raw)
		s.Require().NoError(err)

		s.resolver.dead[actorID] = true
		_, err = s.svc.Verify(s.ctx(), raw)
		s.ErrorIs(err, ErrUnknownSubject)
	})
}

func (s *TokenSuite) TestRevoke() {
	raw, _, err := s.svc.Issue(s.ctx(), IssueRequest{ActorID: id.NewActorID(), Kind: id.ActorCitizen})
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.ctx(), raw)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Revoke(s.ctx(), raw))

	s.Run("revoked token is rejected here", func() {
		_, err := s.svc.Verify(s.ctx(), raw)
		s.ErrorIs(err, ErrRevoked)
	})

	s.Run("revocation is scoped to the shared list", func() {
		// A sibling with its own in-process list still accepts the token.
		// Shared redis or postgres lists widen the scope; nothing else does.
		sibling := NewService("test-signing-key", s.cfg, revocation.NewMemoryTRL(), s.resolver)
		_, err := sibling.Verify(s.ctx(), raw)
		s.NoError(err)
	})

	s.Run("revoking an already expired token is a no-op", func() {
		past := requestcontext.WithTime(context.Background(), s.now.Add(-2*time.Hour))
		old, _, err := s.svc.Issue(past, IssueRequest{
			ActorID:  id.NewActorID(),
			Kind:     id.ActorCitizen,
			NotAfter: s.now.Add(-time.Hour),
		})
		s.Require().NoError(err)
		s.NoError(s.svc.Revoke(s.ctx(), old))
	})
}
