package store

import (
	"context"
	"sort"
	"sync"

	"sayit/internal/complaint"
	"sayit/internal/notification"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

// NotificationInserter is the slice of the notification store the transition
// write needs. The in-memory complaint store commits its own records only
// after the inbox insert succeeds, which keeps the group atomic without a
// rollback protocol.
type NotificationInserter interface {
	Insert(ctx context.Context, n *notification.Notification) error
}

type InMemoryStore struct {
	mu            sync.RWMutex
	complaints    map[id.ComplaintID]complaint.Complaint
	byTracking    map[string]id.ComplaintID
	responses     map[id.ComplaintID][]complaint.Response
	notifications NotificationInserter
}

func NewInMemoryStore(notifications NotificationInserter) *InMemoryStore {
	return &InMemoryStore{
		complaints:    make(map[id.ComplaintID]complaint.Complaint),
		byTracking:    make(map[string]id.ComplaintID),
		responses:     make(map[id.ComplaintID][]complaint.Response),
		notifications: notifications,
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *complaint.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byTracking[c.TrackingID]; taken {
		return sentinel.ErrConflict
	}
	if _, exists := s.complaints[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.complaints[c.ID] = cloneComplaint(c)
	s.byTracking[c.TrackingID] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, complaintID id.ComplaintID) (*complaint.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.complaints[complaintID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneComplaint(&c)
	return &out, nil
}

func (s *InMemoryStore) FindByTrackingID(_ context.Context, trackingID string) (*complaint.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	complaintID, ok := s.byTracking[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := s.complaints[complaintID]
	out := cloneComplaint(&c)
	return &out, nil
}

func (s *InMemoryStore) ApplyTransition(ctx context.Context, w TransitionWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(w.Responses) == 0 {
		return sentinel.ErrInvalidState
	}
	complaintID := w.Responses[0].ComplaintID
	if _, ok := s.complaints[complaintID]; !ok {
		return sentinel.ErrNotFound
	}

	// The inbox insert is the only step that can fail, so it goes first; the
	// local writes below cannot, which makes the group all-or-nothing.
	if w.Notification != nil {
		if err := s.notifications.Insert(ctx, w.Notification); err != nil {
			return err
		}
	}
	for _, r := range w.Responses {
		s.responses[r.ComplaintID] = append(s.responses[r.ComplaintID], *r)
	}
	if w.Complaint != nil {
		s.complaints[w.Complaint.ID] = cloneComplaint(w.Complaint)
	}
	return nil
}

func (s *InMemoryStore) ListResponses(_ context.Context, complaintID id.ComplaintID, includeInternal bool) ([]complaint.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []complaint.Response
	for _, r := range s.responses[complaintID] {
		if r.IsInternal && !includeInternal {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneComplaint(c *complaint.Complaint) complaint.Complaint {
	out := *c
	out.Attachments = append(out.Attachments[:0:0], c.Attachments...)
	return out
}
