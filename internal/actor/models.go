package actor

import (
	"time"

	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

// Ref identifies an actor across the system. IDs are unique only within a
// kind's collection, so the pair travels together everywhere (tokens,
// responses, notifications).
type Ref struct {
	Kind id.ActorKind
	ID   id.ActorID
}

func (r Ref) IsZero() bool { return r.Kind == "" || r.ID.IsNil() }

// Actor is the capability surface shared by all four variants. Kind-specific
// payloads stay on the concrete types; branching on Kind strings outside this
// package is a smell.
type Actor interface {
	Ref() Ref
	// CanAuthenticate reports whether the actor may log in right now.
	// Returns sentinel.ErrInvalidState for deactivated accounts and
	// sentinel.ErrExpired for lapsed anonymous identities.
	CanAuthenticate(now time.Time) error
}

// Account is the credentialed variant shared by citizens, agents, and staff.
// Email is unique per kind; an agent and a citizen may share an address.
type Account struct {
	ID           id.ActorID
	Kind         id.ActorKind
	Email        string
	PasswordHash string
	// Role is set for staff; agents carry the fixed RoleAgent; citizens none.
	Role id.StaffRole
	// AgencyID scopes agents to exactly one agency.
	AgencyID        id.AgencyID
	Active          bool
	LastLoginAt     time.Time
	LastLoginDevice string
	CreatedAt       time.Time
}

func (a *Account) Ref() Ref { return Ref{Kind: a.Kind, ID: a.ID} }

func (a *Account) CanAuthenticate(now time.Time) error {
	if !a.Active {
		return sentinel.ErrInvalidState
	}
	return nil
}

// Anonymous identity code lifetimes. The ceiling is enforced on every save,
// not only at creation, so no code path can extend a code past 90 days.
const (
	DefaultIdentityCodeTTL = 30 * 24 * time.Hour
	MaxIdentityCodeTTL     = 90 * 24 * time.Hour
)

// AnonymousIdentity is the pseudo-identity variant: no email, no role,
// identified solely by its persistent access code.
type AnonymousIdentity struct {
	ID id.ActorID
	// Code is the "SAY" + 9 digit login credential, stored uppercase. It is
	// shown to the reporter exactly once, at creation.
	Code       string
	ExpiresAt  time.Time
	Revoked    bool
	UsageCount int
	LastUsedAt time.Time
	CreatedAt  time.Time
}

func (a *AnonymousIdentity) Ref() Ref { return Ref{Kind: id.ActorAnonymous, ID: a.ID} }

func (a *AnonymousIdentity) CanAuthenticate(now time.Time) error {
	if a.Revoked {
		return sentinel.ErrInvalidState
	}
	if !now.Before(a.ExpiresAt) {
		return sentinel.ErrExpired
	}
	return nil
}

// ClampExpiry enforces the 90-day ceiling relative to creation. Stores call
// this on every save.
func (a *AnonymousIdentity) ClampExpiry() {
	ceiling := a.CreatedAt.Add(MaxIdentityCodeTTL)
	if a.ExpiresAt.After(ceiling) {
		a.ExpiresAt = ceiling
	}
}
