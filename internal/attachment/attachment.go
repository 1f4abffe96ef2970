// Package attachment defines the contract with the external binary store.
// The core persists metadata only; bytes never transit this service.
package attachment

import (
	"context"
	"io"
)

// Metadata is what the external store hands back after accepting an upload,
// and all this system ever persists about an attachment.
type Metadata struct {
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Store accepts raw uploads and returns their metadata. Implementations live
// outside this repository (object storage, CDN); tests use the in-memory fake.
type Store interface {
	Put(ctx context.Context, name, mimeType string, body io.Reader) (Metadata, error)
}
