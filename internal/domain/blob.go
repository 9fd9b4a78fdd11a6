package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one stored object without fetching its body.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads archival payloads to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves previously archived payloads.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobDeleter removes archived objects once retention requires it.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// PriceSample is one archived (asset, price, timestamp) observation, used to
// persist price buffer history once it ages out of the in-memory ring.
type PriceSample struct {
	Asset string
	Price float64
	At    time.Time
}
