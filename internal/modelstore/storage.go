// Package modelstore keeps one serialized model blob per engine kind.
// Backends overwrite the previous blob atomically and report a missing blob
// as domain.ErrNotFound.
package modelstore

import (
	"context"
	"fmt"
	"sync"

	"supportbot/internal/domain"
)

// Store persists opaque model blobs keyed by engine kind.
type Store interface {
	Name() string
	Save(ctx context.Context, kind domain.Kind, blob []byte) error
	Load(ctx context.Context, kind domain.Kind) ([]byte, error)
	Close() error
}

// Memory is a process-local Store, used when nothing should outlive the process.
type Memory struct {
	mu    sync.RWMutex
	blobs map[domain.Kind][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{blobs: make(map[domain.Kind][]byte)} }

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Save(_ context.Context, kind domain.Kind, blob []byte) error {
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[kind] = cp
	return nil
}

func (m *Memory) Load(_ context.Context, kind domain.Kind) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrNotFound)
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (m *Memory) Close() error { return nil }
