package store

import (
	"context"
	"sort"
	"sync"

	"sayit/internal/agency"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	agencies   map[id.AgencyID]agency.Agency
	categories map[id.CategoryID]agency.Category
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		agencies:   make(map[id.AgencyID]agency.Agency),
		categories: make(map[id.CategoryID]agency.Category),
	}
}

func (s *InMemoryStore) SaveAgency(_ context.Context, a *agency.Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agencies[a.ID] = *a
	return nil
}

func (s *InMemoryStore) FindAgency(_ context.Context, agencyID id.AgencyID) (*agency.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agencies[agencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := a
	return &out, nil
}

func (s *InMemoryStore) SaveCategory(_ context.Context, c *agency.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindCategory(_ context.Context, categoryID id.CategoryID) (*agency.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *InMemoryStore) ListAgencies(_ context.Context) ([]agency.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agency.Agency, 0, len(s.agencies))
	for _, a := range s.agencies {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
