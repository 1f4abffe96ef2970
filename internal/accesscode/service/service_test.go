package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sayit/internal/accesscode"
	accesscodestore "sayit/internal/accesscode/store"
	"sayit/internal/actor"
	actorservice "sayit/internal/actor/service"
	actorstore "sayit/internal/actor/store"
	"sayit/internal/platform/metrics"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/requestcontext"
)

var codePattern = regexp.MustCompile(`SAY\d{9}`)

// recordingMailer captures deliveries so tests can fish the code out of the
// mail body. Delivery happens on a goroutine, so access is locked.
type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, htmlBody)
	return nil
}

func (m *recordingMailer) lastCode() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return "", false
	}
	code := codePattern.FindString(m.sent[len(m.sent)-1])
	return code, code != ""
}

type AccessCodeSuite struct {
	suite.Suite

	svc       *Service
	actors    *actorservice.Service
	anonymous *actorstore.InMemoryAnonymousStore
	mailer    *recordingMailer
	now       time.Time
}

func TestAccessCodeSuite(t *testing.T) {
	suite.Run(t, new(AccessCodeSuite))
}

func (s *AccessCodeSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.anonymous = actorstore.NewInMemoryAnonymousStore()
	s.mailer = &recordingMailer{}
	s.actors = actorservice.NewService(actorstore.NewInMemoryAccountStore(), s.anonymous, logger, metrics.New())
	s.svc = NewService(s.anonymous, accesscodestore.NewInMemoryRecoveryStore(), s.actors, s.mailer, logger)
	s.now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func (s *AccessCodeSuite) ctx() context.Context {
	return s.ctxAt(s.now)
}

func (s *AccessCodeSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *AccessCodeSuite) TestIdentityCodeLifecycle() {
	issued, err := s.svc.IssueIdentityCode(s.ctx())
	s.Require().NoError(err)

	s.Run("code has the public shape and default expiry", func() {
		s.Regexp(`^SAY\d{9}$`, issued.Code)
		s.Equal(s.now.Add(actor.DefaultIdentityCodeTTL), issued.Identity.ExpiresAt)
	})

	s.Run("login tolerates case and whitespace and counts usage", func() {
		identity, err := s.svc.VerifyIdentityCode(s.ctx(), "  "+issued.Code+" ")
		s.Require().NoError(err)
		s.Equal(issued.Identity.ID, identity.ID)
		s.Equal(1, identity.UsageCount)
		s.Equal(s.now, identity.LastUsedAt)
	})

	s.Run("expired code stops authenticating", func() {
		after := s.ctxAt(issued.Identity.ExpiresAt.Add(time.Minute))
		_, err := s.svc.VerifyIdentityCode(after, issued.Code)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	s.Run("expiry is clamped to the ceiling on save", func() {
		identity, err := s.anonymous.FindByID(s.ctx(), issued.Identity.ID)
		s.Require().NoError(err)
		identity.ExpiresAt = identity.CreatedAt.Add(365 * 24 * time.Hour)
		s.Require().NoError(s.anonymous.Update(s.ctx(), identity))

		saved, err := s.anonymous.FindByID(s.ctx(), identity.ID)
		s.Require().NoError(err)
		s.Equal(identity.CreatedAt.Add(actor.MaxIdentityCodeTTL), saved.ExpiresAt)
	})
}

func (s *AccessCodeSuite) TestRevokeIdentityCode() {
	issued, err := s.svc.IssueIdentityCode(s.ctx())
	s.Require().NoError(err)

	s.Require().NoError(s.svc.RevokeIdentityCode(s.ctx(), issued.Code))

	s.Run("revoked code no longer authenticates", func() {
		_, err := s.svc.VerifyIdentityCode(s.ctx(), issued.Code)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	s.Run("revoking again is a no-op", func() {
		s.NoError(s.svc.RevokeIdentityCode(s.ctx(), issued.Code))
	})

	s.Run("unknown code reports not found", func() {
		err := s.svc.RevokeIdentityCode(s.ctx(), "SAY000000000")
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *AccessCodeSuite) seedCitizen(email string) *actor.Account {
	account, err := s.actors.CreateActor(s.ctx(), actorservice.NewAccount{
		Kind: id.ActorCitizen, Email: email, Password: "original-password",
	})
	s.Require().NoError(err)
	return account
}

// requestReset kicks off a reset and waits for the asynchronous mail to land.
func (s *AccessCodeSuite) requestReset(email string) string {
	s.mailer.mu.Lock()
	before := len(s.mailer.sent)
	s.mailer.mu.Unlock()

	s.Require().NoError(s.svc.RequestPasswordReset(s.ctx(), id.ActorCitizen, email))
	s.Require().Eventually(func() bool {
		s.mailer.mu.Lock()
		defer s.mailer.mu.Unlock()
		return len(s.mailer.sent) > before
	}, time.Second, 5*time.Millisecond)

	code, ok := s.mailer.lastCode()
	s.Require().True(ok, "recovery mail should carry a code")
	return code
}

func (s *AccessCodeSuite) TestPasswordRecovery() {
	s.seedCitizen("jane@example.com")

	s.Run("unknown email answers identically and sends nothing", func() {
		s.NoError(s.svc.RequestPasswordReset(s.ctx(), id.ActorCitizen, "nobody@example.com"))
	})

	code := s.requestReset("jane@example.com")

	s.Run("verification does not consume the code", func() {
		_, err := s.svc.VerifyRecoveryCode(s.ctx(), "jane@example.com", code)
		s.Require().NoError(err)
		_, err = s.svc.VerifyRecoveryCode(s.ctx(), "jane@example.com", code)
		s.NoError(err)
	})

	s.Run("a second request replaces the outstanding code", func() {
		fresh := s.requestReset("jane@example.com")
		s.NotEqual(code, fresh)

		_, err := s.svc.VerifyRecoveryCode(s.ctx(), "jane@example.com", code)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

		code = fresh
	})

	s.Run("confirm rewrites the password and consumes the code", func() {
		s.Require().NoError(s.svc.ConfirmPasswordReset(s.ctx(), "jane@example.com", code, "brand-new-password"))

		_, err := s.actors.VerifyPassword(s.ctx(), id.ActorCitizen, "jane@example.com", "brand-new-password")
		s.NoError(err)
		_, err = s.actors.VerifyPassword(s.ctx(), id.ActorCitizen, "jane@example.com", "original-password")
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

		_, err = s.svc.VerifyRecoveryCode(s.ctx(), "jane@example.com", code)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	s.Run("codes expire after the reset window", func() {
		late := s.requestReset("jane@example.com")
		after := s.ctxAt(s.now.Add(accesscode.RecoveryCodeTTL + time.Minute))
		_, err := s.svc.VerifyRecoveryCode(after, "jane@example.com", late)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}
