package cache

import (
	"context"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process LRU cache backend, the default for
// development and tests. Entries carry their own expiry, checked on
// read, so TTL semantics match the external backends.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
}

// NewMemoryStore creates a memory store holding at most size entries.
func NewMemoryStore(size int) (*MemoryStore, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{entries: entries}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.entries.Remove(key)
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	return s.entries.Remove(key), nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	entry, ok := s.entries.Peek(key)
	if !ok {
		return false, nil
	}
	// An already-expired entry is dead; renewing it would resurrect a
	// value Get no longer returns.
	if time.Now().After(entry.expiresAt) {
		s.entries.Remove(key)
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.entries.Add(key, entry)
	return true, nil
}

func (s *MemoryStore) ClearPattern(_ context.Context, pattern string) (int, error) {
	var removed int
	for _, key := range s.entries.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if matched && s.entries.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	s.entries.Purge()
	return nil
}
