package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryService is a process-local CacheService used when no memcached
// address is configured and in tests.
type MemoryService struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryService creates an empty in-memory cache.
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: make(map[string]memoryEntry)}
}

// Get retrieves a value, treating expired entries as misses.
func (m *MemoryService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return entry.value, nil
}

// Set stores a value. A zero expiration never expires.
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}
	m.entries[key] = entry
	return nil
}

// Delete removes a key.
func (m *MemoryService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
