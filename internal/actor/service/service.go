package service

import (
	"context"
	"errors"
	"log/slog"

	"sayit/internal/actor"
	"sayit/internal/actor/store"
	"sayit/internal/platform/metrics"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/platform/sentinel"
	"sayit/pkg/requestcontext"
)

// dummyHash is compared against when the email is unknown so that the work
// done for "no such account" and "wrong password" is indistinguishable.
// bcrypt hash of an unguessable throwaway string.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// NewAccount carries the fields for creating a credentialed actor.
type NewAccount struct {
	Kind     id.ActorKind
	Email    string
	Password string
	Role     id.StaffRole // staff only
	AgencyID id.AgencyID  // agents only
}

// Service owns the credential operations for all credentialed actor kinds.
// Anonymous identities are managed by the access code service; this service
// only resolves them for token verification.
type Service struct {
	accounts  store.AccountStore
	anonymous store.AnonymousStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(accounts store.AccountStore, anonymous store.AnonymousStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{accounts: accounts, anonymous: anonymous, logger: logger, metrics: m}
}

// CreateActor registers a citizen, agent, or staff account. Fails with a
// conflict when the email is already used within the kind; cross-kind
// collisions are permitted.
func (s *Service) CreateActor(ctx context.Context, req NewAccount) (*actor.Account, error) {
	if !isCredentialedKind(req.Kind) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported actor kind")
	}
	if req.Kind == id.ActorStaff && req.Role == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "staff role is required")
	}
	if req.Kind == id.ActorAgent && req.AgencyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "agent agency is required")
	}

	hash, err := actor.HashPassword(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unusable password")
	}

	account := &actor.Account{
		ID:           id.NewActorID(),
		Kind:         req.Kind,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		AgencyID:     req.AgencyID,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if req.Kind == id.ActorAgent {
		account.Role = id.RoleAgent
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "identity already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create actor")
	}

	s.logger.InfoContext(ctx, "actor created", "kind", account.Kind.String(), "actor_id", account.ID.String())
	return account, nil
}

// VerifyPassword authenticates a credentialed actor. The failure answer is
// uniform ("invalid credentials") whether the email is unknown or the
// password wrong, to prevent account enumeration. Deactivated accounts are
// the one distinguishable failure, reported only after the password checked out.
func (s *Service) VerifyPassword(ctx context.Context, kind id.ActorKind, email, password string) (*actor.Account, error) {
	if !isCredentialedKind(kind) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported actor kind")
	}

	account, err := s.accounts.FindByEmail(ctx, kind, email)
	if err != nil {
		// Burn the same bcrypt work as the found path before answering.
		_ = actor.VerifyPasswordHash(dummyHash, password)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if err := actor.VerifyPasswordHash(account.PasswordHash, password); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if err := account.CanAuthenticate(requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "account inactive")
	}

	s.recordLogin(ctx, account)
	if s.metrics != nil {
		s.metrics.ObserveLogin(kind.String())
	}
	return account, nil
}

// SetPassword re-derives the stored hash. It deliberately does not touch
// outstanding tokens; revocation is a separate concern with its own scope.
func (s *Service) SetPassword(ctx context.Context, ref actor.Ref, newPassword string) error {
	if !isCredentialedKind(ref.Kind) {
		return dErrors.New(dErrors.CodeInvalidInput, "unsupported actor kind")
	}

	account, err := s.accounts.FindByID(ctx, ref.Kind, ref.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}

	hash, err := actor.HashPassword(newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "unusable password")
	}

	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	s.logger.InfoContext(ctx, "password updated", "kind", ref.Kind.String(), "actor_id", ref.ID.String())
	return nil
}

// FindAccount loads a credentialed actor by reference.
func (s *Service) FindAccount(ctx context.Context, ref actor.Ref) (*actor.Account, error) {
	account, err := s.accounts.FindByID(ctx, ref.Kind, ref.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	return account, nil
}

// FindAccountByEmail loads a credentialed actor by (kind, email). Used by the
// recovery flow; callers must keep their user-visible responses uniform.
func (s *Service) FindAccountByEmail(ctx context.Context, kind id.ActorKind, email string) (*actor.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	return account, nil
}

// Deactivate soft-disables an account. Nothing in this service deletes actors.
func (s *Service) Deactivate(ctx context.Context, ref actor.Ref) error {
	account, err := s.FindAccount(ctx, ref)
	if err != nil {
		return err
	}
	if !account.Active {
		return nil
	}
	account.Active = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate actor")
	}
	return nil
}

// ResolveSubject re-checks that a token's subject still exists and may act.
// The token verifier calls this on every verification; results are never cached.
func (s *Service) ResolveSubject(ctx context.Context, kind id.ActorKind, actorID id.ActorID) error {
	now := requestcontext.Now(ctx)

	if kind == id.ActorAnonymous {
		identity, err := s.anonymous.FindByID(ctx, actorID)
		if err != nil {
			return sentinel.ErrNotFound
		}
		return identity.CanAuthenticate(now)
	}

	account, err := s.accounts.FindByID(ctx, kind, actorID)
	if err != nil {
		return sentinel.ErrNotFound
	}
	return account.CanAuthenticate(now)
}

// recordLogin updates the last-login stamp and device, best-effort: a store
// failure here must not fail the login itself.
func (s *Service) recordLogin(ctx context.Context, account *actor.Account) {
	account.LastLoginAt = requestcontext.Now(ctx)
	if device := requestcontext.Device(ctx); device != "" {
		account.LastLoginDevice = device
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger.WarnContext(ctx, "failed to record login",
			"error", err,
			"kind", account.Kind.String(),
			"actor_id", account.ID.String(),
		)
	}
}

func isCredentialedKind(kind id.ActorKind) bool {
	switch kind {
	case id.ActorCitizen, id.ActorAgent, id.ActorStaff:
		return true
	}
	return false
}
