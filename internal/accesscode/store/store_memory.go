package store

import (
	"context"
	"strings"
	"sync"

	"sayit/internal/accesscode"
	"sayit/pkg/platform/sentinel"
)

// InMemoryRecoveryStore keeps recovery codes in a map keyed by email. The
// single mutex makes Replace atomic, matching the upsert semantics of the
// postgres implementation.
type InMemoryRecoveryStore struct {
	mu    sync.RWMutex
	codes map[string]accesscode.RecoveryCode
}

func NewInMemoryRecoveryStore() *InMemoryRecoveryStore {
	return &InMemoryRecoveryStore{codes: make(map[string]accesscode.RecoveryCode)}
}

func (s *InMemoryRecoveryStore) Replace(_ context.Context, code *accesscode.RecoveryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[normalizeEmail(code.Email)] = *code
	return nil
}

func (s *InMemoryRecoveryStore) FindByEmail(_ context.Context, email string) (*accesscode.RecoveryCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.codes[normalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := code
	return &out, nil
}

func (s *InMemoryRecoveryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, normalizeEmail(email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
