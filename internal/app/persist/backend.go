package persist

import (
	"context"
	"fmt"
	"sync"

	"github.com/brainquest/brainquest/internal/domain"
)

// Backend is a key-value store the Store can write envelopes to.
// Get must return domain.ErrNotFound for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryBackend keeps values in process memory. MaxBytes > 0 emulates a
// quota: larger values fail with domain.ErrValueTooLarge.
type MemoryBackend struct {
	mu       sync.Mutex
	data     map[string][]byte
	MaxBytes int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	if m.MaxBytes > 0 && len(value) > m.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", domain.ErrValueTooLarge, len(value), m.MaxBytes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}
