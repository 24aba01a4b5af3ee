// Package memory keeps archived bulk pairs in process memory.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
)

// Ensure ArchiveStore implements the interfaces.
var (
	_ driven.ArchiveSink   = (*ArchiveStore)(nil)
	_ driven.ArchiveReader = (*ArchiveStore)(nil)
	_ driven.ArchiveLister = (*ArchiveStore)(nil)
)

// ArchiveStore is an in-memory implementation of the archive ports.
type ArchiveStore struct {
	mu      sync.RWMutex
	entries map[string]archived
	order   []string
}

type archived struct {
	data      []byte
	createdAt time.Time
}

// NewArchiveStore creates a new in-memory archive.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		entries: make(map[string]archived),
	}
}

// Put stores a copy of data under key.
func (s *ArchiveStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if key == "" {
		return "", domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = archived{data: slices.Clone(data), createdAt: time.Now()}
	return "memory://" + key, nil
}

// Get retrieves the data stored under key.
func (s *ArchiveStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(e.data), nil
}

// List returns entries whose key starts with prefix, in insertion order.
func (s *ArchiveStore) List(_ context.Context, prefix string, limit int) ([]driven.ArchiveEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []driven.ArchiveEntry
	for _, key := range s.order {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e := s.entries[key]
		out = append(out, driven.ArchiveEntry{Key: key, Size: len(e.data), CreatedAt: e.createdAt})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *ArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
