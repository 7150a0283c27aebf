// Package cache provides the content-addressed response cache: a
// key-value store with TTL behind a service layer that never lets a
// cache failure become a caller failure.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned by stores when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a cache backend. Implementations: redis, sqlite, memory.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ClearPattern removes all keys matching a glob pattern and
	// returns how many were removed.
	ClearPattern(ctx context.Context, pattern string) (int, error)
	Close() error
}

// Serialization mode tags. The first byte of every stored value
// records how the rest was encoded so Get can reverse it.
const (
	modeStructured byte = 'j' // JSON, human-inspectable
	modeOpaque     byte = 'g' // gob, fallback for non-JSON-encodable values
)

// Service wraps a Store with the serialization policy and the
// degrade-on-failure contract: Get failures read as misses, write
// failures are logged and reported as false, never raised.
type Service struct {
	store      Store
	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewService creates a cache service over the given backend.
func NewService(store Store, defaultTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, defaultTTL: defaultTTL, logger: logger}
}

// Get loads the value at key into dest. It returns false, never an
// error, when the key is absent, expired, or the backend failed.
func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if len(raw) < 1 {
		return false
	}

	switch raw[0] {
	case modeStructured:
		err = json.Unmarshal(raw[1:], dest)
	case modeOpaque:
		err = gob.NewDecoder(bytes.NewReader(raw[1:])).Decode(dest)
	default:
		err = fmt.Errorf("unknown serialization mode %q", raw[0])
	}
	if err != nil {
		s.logger.Warn("cache decode failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Set stores value at key. A structured (JSON) encoding is attempted
// first; values that JSON cannot represent fall back to an opaque gob
// encoding. Failures are logged, and reported via the return value
// only.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	var payload []byte
	if encoded, err := json.Marshal(value); err == nil {
		payload = append([]byte{modeStructured}, encoded...)
	} else {
		var buf bytes.Buffer
		buf.WriteByte(modeOpaque)
		if err := gob.NewEncoder(&buf).Encode(value); err != nil {
			s.logger.Warn("cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
			return false
		}
		payload = buf.Bytes()
	}

	if err := s.store.Set(ctx, key, payload, ttl); err != nil {
		s.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Delete removes key. Backend failures degrade to false.
func (s *Service) Delete(ctx context.Context, key string) bool {
	ok, err := s.store.Delete(ctx, key)
	if err != nil {
		s.logger.Warn("cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return ok
}

// Exists reports whether key is present. Backend failures degrade to
// false.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("cache exists failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return ok
}

// Expire resets the TTL on key. Backend failures degrade to false.
func (s *Service) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := s.store.Expire(ctx, key, ttl)
	if err != nil {
		s.logger.Warn("cache expire failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return ok
}

// ClearPattern removes all keys matching a glob pattern and returns
// the count removed. Backend failures degrade to 0.
func (s *Service) ClearPattern(ctx context.Context, pattern string) int {
	n, err := s.store.ClearPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("cache clear failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
		return 0
	}
	return n
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.store.Close()
}
