package driven

import (
	"context"
	"time"
)

// ArchiveSink stores archived bulk request/response pairs.
type ArchiveSink interface {
	// Put stores data under key and returns where it was written.
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// ArchiveReader reads archived pairs back for replay.
type ArchiveReader interface {
	// Get returns the data stored under key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArchiveLister lists archived pairs.
type ArchiveLister interface {
	// List returns entries whose key starts with prefix, oldest first.
	List(ctx context.Context, prefix string, limit int) ([]ArchiveEntry, error)
}

// ArchiveEntry describes one archived pair.
type ArchiveEntry struct {
	// Key is the archive key.
	Key string

	// Size is the stored size in bytes.
	Size int

	// CreatedAt is when the pair was written.
	CreatedAt time.Time
}
