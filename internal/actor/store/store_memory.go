package store

import (
	"context"
	"strings"
	"sync"

	"sayit/internal/actor"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

// In-memory stores back local development and most of the test suite. They
// return copies so callers never alias store-owned state.

type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.ActorID]actor.Account
	// byEmail indexes (kind, lowercased email) for the per-kind uniqueness
	// invariant and login lookups.
	byEmail map[emailKey]id.ActorID
}

type emailKey struct {
	kind  id.ActorKind
	email string
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		accounts: make(map[id.ActorID]actor.Account),
		byEmail:  make(map[emailKey]id.ActorID),
	}
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *actor.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey{kind: account.Kind, email: normalizeEmail(account.Email)}
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[account.ID] = *account
	s.byEmail[key] = account.ID
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, kind id.ActorKind, actorID id.ActorID) (*actor.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[actorID]
	if !ok || account.Kind != kind {
		return nil, sentinel.ErrNotFound
	}
	out := account
	return &out, nil
}

func (s *InMemoryAccountStore) FindByEmail(_ context.Context, kind id.ActorKind, email string) (*actor.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actorID, ok := s.byEmail[emailKey{kind: kind, email: normalizeEmail(email)}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	account := s.accounts[actorID]
	out := account
	return &out, nil
}

func (s *InMemoryAccountStore) Update(_ context.Context, account *actor.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Email is immutable here; re-keying the index is not a supported
	// operation on this store.
	if !strings.EqualFold(existing.Email, account.Email) {
		return sentinel.ErrInvalidState
	}
	s.accounts[account.ID] = *account
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type InMemoryAnonymousStore struct {
	mu         sync.RWMutex
	identities map[id.ActorID]actor.AnonymousIdentity
	byCode     map[string]id.ActorID
}

func NewInMemoryAnonymousStore() *InMemoryAnonymousStore {
	return &InMemoryAnonymousStore{
		identities: make(map[id.ActorID]actor.AnonymousIdentity),
		byCode:     make(map[string]id.ActorID),
	}
}

func (s *InMemoryAnonymousStore) Create(_ context.Context, identity *actor.AnonymousIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[identity.Code]; exists {
		return sentinel.ErrConflict
	}
	identity.ClampExpiry()
	s.identities[identity.ID] = *identity
	s.byCode[identity.Code] = identity.ID
	return nil
}

func (s *InMemoryAnonymousStore) FindByID(_ context.Context, actorID id.ActorID) (*actor.AnonymousIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := identity
	return &out, nil
}

func (s *InMemoryAnonymousStore) FindByCode(_ context.Context, code string) (*actor.AnonymousIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actorID, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	identity := s.identities[actorID]
	out := identity
	return &out, nil
}

func (s *InMemoryAnonymousStore) Update(_ context.Context, identity *actor.AnonymousIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[identity.ID]; !ok {
		return sentinel.ErrNotFound
	}
	identity.ClampExpiry()
	s.identities[identity.ID] = *identity
	return nil
}
