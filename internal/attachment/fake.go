package attachment

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// FakeStore counts bytes and fabricates URLs. Test double for the external
// binary store.
type FakeStore struct {
	mu   sync.Mutex
	next int
}

func NewFakeStore() *FakeStore { return &FakeStore{} }

func (f *FakeStore) Put(_ context.Context, name, mimeType string, body io.Reader) (Metadata, error) {
	size, err := io.Copy(io.Discard, body)
	if err != nil {
		return Metadata{}, err
	}

	f.mu.Lock()
	f.next++
	n := f.next
	f.mu.Unlock()

	return Metadata{
		URL:          fmt.Sprintf("fake://attachments/%d/%s", n, name),
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    size,
	}, nil
}
