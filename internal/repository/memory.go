package repository

import (
	"context"
	"sync"
	"time"

	"github.com/set-night/shopassist/internal/domain"
)

type memoryEntry struct {
	payload   []byte
	updatedAt time.Time
}

type entryKey struct {
	clientID string
	name     string
}

// MemoryStore keeps entries in process memory. Entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[entryKey]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, clientID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryKey{clientID, name}]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, clientID, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.entries[entryKey{clientID, name}] = memoryEntry{payload: buf, updatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, clientID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entryKey{clientID, name})
	return nil
}

func (s *MemoryStore) DeleteStale(_ context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age)
	var n int64
	for k, e := range s.entries {
		if e.updatedAt.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
