package store

import (
	"context"

	"sayit/internal/actor"
	id "sayit/pkg/domain"
)

// AccountStore persists the credentialed actor variants (citizen, agent,
// staff). Uniqueness of (kind, email) is a store invariant: Create returns
// sentinel.ErrConflict when the address is already taken within the kind.
type AccountStore interface {
	Create(ctx context.Context, account *actor.Account) error
	FindByID(ctx context.Context, kind id.ActorKind, actorID id.ActorID) (*actor.Account, error)
	FindByEmail(ctx context.Context, kind id.ActorKind, email string) (*actor.Account, error)
	Update(ctx context.Context, account *actor.Account) error
}

// AnonymousStore persists anonymous identities. Codes are globally unique;
// Create returns sentinel.ErrConflict on a code collision so the generator
// can re-roll.
type AnonymousStore interface {
	Create(ctx context.Context, identity *actor.AnonymousIdentity) error
	FindByID(ctx context.Context, actorID id.ActorID) (*actor.AnonymousIdentity, error)
	FindByCode(ctx context.Context, code string) (*actor.AnonymousIdentity, error)
	Update(ctx context.Context, identity *actor.AnonymousIdentity) error
}
