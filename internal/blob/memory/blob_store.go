// Package memory provides an in-memory blob store for tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// BlobStore keeps objects in a map. It exists so ingest paths can be
// exercised without a filesystem or cloud bucket.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty in-memory blob store.
func New() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

// PutObject stores data under path and returns a mem:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = cp
	return fmt.Sprintf("mem://%s", path), nil
}

// Get returns a stored object and whether it exists.
func (s *BlobStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	return data, ok
}

// Len reports the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
