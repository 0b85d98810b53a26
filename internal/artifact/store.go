// Package artifact provides the keyed blob store stages use to hand named
// data to later, independently scheduled stages. Publishing transfers a
// copy into the store; retrieval hands a copy to the consumer, so multiple
// cells may read the same shared artifact concurrently.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get when no artifact was published under the name.
var ErrNotFound = errors.New("artifact not found")

// ErrExists is returned by Put when the name was already published. The
// store is append-only: artifacts are immutable once published.
var ErrExists = errors.New("artifact already published")

// Store is the put/get contract between pipeline stages.
type Store interface {
	Put(ctx context.Context, name string, payload []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// MemoryStore is an ephemeral, process-wide Store backed by sync.Map.
// Concurrent reads of the same key are safe; each key is written at most
// once, so readers never observe a partially written payload.
type MemoryStore struct {
	blobs sync.Map // Key: artifact name, Value: []byte payload copy
}

// NewMemory creates an empty in-memory artifact store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Put publishes a named artifact. Publishing the same name twice is an error.
func (s *MemoryStore) Put(_ context.Context, name string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	if _, loaded := s.blobs.LoadOrStore(name, stored); loaded {
		return fmt.Errorf("put %q: %w", name, ErrExists)
	}
	return nil
}

// Get retrieves a copy of a published artifact.
func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	v, ok := s.blobs.Load(name)
	if !ok {
		return nil, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}
