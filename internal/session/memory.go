package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in-process. Used in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// NewMemoryStore initializes an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

// Save stores the payload with TTL.
func (m *MemoryStore) Save(_ context.Context, id string, data Data, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Load resolves a session ID to its payload, honoring expiry.
func (m *MemoryStore) Load(_ context.Context, id string) (Data, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return Data{}, false, nil
	}
	return entry.data, true, nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
