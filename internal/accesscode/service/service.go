package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"sayit/internal/accesscode"
	"sayit/internal/accesscode/store"
	"sayit/internal/actor"
	actorstore "sayit/internal/actor/store"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/email"
	"sayit/pkg/platform/sentinel"
	"sayit/pkg/requestcontext"
)

// identityCodeMaxRetries bounds collision re-rolls during identity code
// generation. The code space is 10^9; hitting this limit means something is
// badly wrong with the store, not bad luck.
const identityCodeMaxRetries = 5

// AccountDirectory is the slice of the credential service the recovery flow
// needs: resolving accounts by email and rewriting passwords.
type AccountDirectory interface {
	FindAccountByEmail(ctx context.Context, kind id.ActorKind, email string) (*actor.Account, error)
	SetPassword(ctx context.Context, ref actor.Ref, newPassword string) error
}

// Mailer delivers recovery mail. Failures are logged, never surfaced: the
// reset-request response is identical whether or not the mail went out.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// Service implements both access code families on top of one generator.
type Service struct {
	anonymous actorstore.AnonymousStore
	recovery  store.RecoveryStore
	accounts  AccountDirectory
	mailer    Mailer
	logger    *slog.Logger
}

func NewService(
	anonymous actorstore.AnonymousStore,
	recovery store.RecoveryStore,
	accounts AccountDirectory,
	mailer Mailer,
	logger *slog.Logger,
) *Service {
	return &Service{
		anonymous: anonymous,
		recovery:  recovery,
		accounts:  accounts,
		mailer:    mailer,
		logger:    logger,
	}
}

// IssuedIdentity is returned exactly once; the plaintext code is not
// re-displayable afterwards.
type IssuedIdentity struct {
	Identity *actor.AnonymousIdentity
	Code     string
}

// IssueIdentityCode mints a new anonymous identity with a collision-checked
// code and the default 30-day expiry (ceiling 90 days, clamped on save).
func (s *Service) IssueIdentityCode(ctx context.Context) (*IssuedIdentity, error) {
	now := requestcontext.Now(ctx)

	for attempt := 0; attempt < identityCodeMaxRetries; attempt++ {
		code, err := accesscode.Generate()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
		}

		identity := &actor.AnonymousIdentity{
			ID:        id.NewActorID(),
			Code:      code,
			ExpiresAt: now.Add(actor.DefaultIdentityCodeTTL),
			CreatedAt: now,
		}
		err = s.anonymous.Create(ctx, identity)
		if errors.Is(err, sentinel.ErrConflict) {
			continue // code taken, re-roll
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create anonymous identity")
		}

		s.logger.InfoContext(ctx, "anonymous identity issued", "actor_id", identity.ID.String())
		return &IssuedIdentity{Identity: identity, Code: code}, nil
	}

	return nil, dErrors.New(dErrors.CodeInternal, "exhausted identity code retries")
}

// VerifyIdentityCode authenticates an anonymous reporter. The usage counter
// and last-used stamp are updated best-effort; a failed update must not fail
// the login.
func (s *Service) VerifyIdentityCode(ctx context.Context, rawCode string) (*actor.AnonymousIdentity, error) {
	code, err := accesscode.Normalize(rawCode)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}

	identity, err := s.anonymous.FindByCode(ctx, code)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}

	now := requestcontext.Now(ctx)
	if err := identity.CanAuthenticate(now); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}

	identity.UsageCount++
	identity.LastUsedAt = now
	if err := s.anonymous.Update(ctx, identity); err != nil {
		s.logger.WarnContext(ctx, "failed to record identity code usage",
			"error", err, "actor_id", identity.ID.String())
	}

	return identity, nil
}

// RevokeIdentityCode invalidates a code ahead of its expiry.
func (s *Service) RevokeIdentityCode(ctx context.Context, rawCode string) error {
	code, err := accesscode.Normalize(rawCode)
	if err != nil {
		return err
	}
	identity, err := s.anonymous.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "code not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if identity.Revoked {
		return nil
	}
	identity.Revoked = true
	if err := s.anonymous.Update(ctx, identity); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke code")
	}
	return nil
}

// RequestPasswordReset issues a recovery code for (kind, email) and mails it.
// The caller-visible outcome is identical whether or not the account exists;
// enumeration through this endpoint must stay impossible.
func (s *Service) RequestPasswordReset(ctx context.Context, kind id.ActorKind, emailAddr string) error {
	account, err := s.accounts.FindAccountByEmail(ctx, kind, emailAddr)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email", "kind", kind.String())
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to process reset request")
	}

	code, err := s.issueRecoveryCode(ctx, account)
	if err != nil {
		return err
	}

	s.sendRecoveryMail(ctx, account.Email, code.Code)
	return nil
}

// issueRecoveryCode replaces any outstanding code for the email with a fresh
// one. Recovery codes need uniqueness only in effect per email, so no
// collision loop is required.
func (s *Service) issueRecoveryCode(ctx context.Context, account *actor.Account) (*accesscode.RecoveryCode, error) {
	raw, err := accesscode.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	now := requestcontext.Now(ctx)
	code := &accesscode.RecoveryCode{
		Code:      raw,
		Email:     account.Email,
		Kind:      account.Kind,
		ActorID:   account.ID,
		ExpiresAt: now.Add(accesscode.RecoveryCodeTTL),
		CreatedAt: now,
	}
	if err := s.recovery.Replace(ctx, code); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store recovery code")
	}
	return code, nil
}

// VerifyRecoveryCode checks a code against the outstanding record for the
// email. Verification does not consume the code; consumption happens only
// when the subsequent password reset succeeds.
func (s *Service) VerifyRecoveryCode(ctx context.Context, emailAddr, rawCode string) (*accesscode.RecoveryCode, error) {
	normalized, err := accesscode.Normalize(rawCode)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}

	record, err := s.recovery.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(normalized)) != 1 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}
	if record.Expired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}
	return record, nil
}

// ConfirmPasswordReset verifies the code, rewrites the password, and only
// then deletes the recovery record. A failed password write leaves the code
// outstanding so the user can retry within the window.
func (s *Service) ConfirmPasswordReset(ctx context.Context, emailAddr, rawCode, newPassword string) error {
	record, err := s.VerifyRecoveryCode(ctx, emailAddr, rawCode)
	if err != nil {
		return err
	}

	ref := actor.Ref{Kind: record.Kind, ID: record.ActorID}
	if err := s.accounts.SetPassword(ctx, ref, newPassword); err != nil {
		return err
	}

	if err := s.recovery.Delete(ctx, record.Email); err != nil {
		// The password is already changed; an expired leftover code is
		// unusable for anything but a second legitimate reset.
		s.logger.WarnContext(ctx, "failed to delete consumed recovery code", "error", err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "kind", record.Kind.String(), "actor_id", record.ActorID.String())
	return nil
}

func (s *Service) sendRecoveryMail(ctx context.Context, recipient, code string) {
	subject := "Your SayIt password reset code"
	body := "<p>" + email.Greeting(recipient) + "</p>" +
		"<p>Your password reset code is <strong>" + code + "</strong>. " +
		"It expires in 24 hours. If you did not request this, ignore this message.</p>"

	// Fire-and-forget relative to the request; the retrying mailer owns
	// backoff. Detached context so the HTTP request ending does not cancel
	// delivery.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := s.mailer.Send(sendCtx, recipient, subject, body); err != nil {
			s.logger.Warn("failed to send recovery mail", "error", err)
		}
	}()
}
