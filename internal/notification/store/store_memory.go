package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sayit/internal/actor"
	"sayit/internal/notification"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.NotificationID]notification.Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.NotificationID]notification.Notification)}
}

func (s *InMemoryStore) Insert(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[n.ID] = *n
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipient actor.Ref, now time.Time) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []notification.Notification
	for _, n := range s.entries {
		if n.Recipient() == recipient && !n.Expired(now) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID, recipient actor.Ref, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[notificationID]
	if !ok || n.Recipient() != recipient || n.Expired(now) {
		return sentinel.ErrNotFound
	}
	n.Read = true
	s.entries[notificationID] = n
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, recipient actor.Ref, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for notifID, n := range s.entries {
		if n.Recipient() == recipient && !n.Read && !n.Expired(now) {
			n.Read = true
			s.entries[notifID] = n
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for notifID, n := range s.entries {
		if n.Expired(now) {
			delete(s.entries, notifID)
			count++
		}
	}
	return count, nil
}
