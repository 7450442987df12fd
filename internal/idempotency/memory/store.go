package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mlukic/catalog/internal/idempotency"
)

// Store is an in-memory result store useful for local development and tests.
// Expiry is enforced lazily on access; there is no background sweeper.
type Store struct {
	mu      sync.Mutex
	items   map[string]idempotency.Record
	nowFunc func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore creates a new in-memory result store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		items:   make(map[string]idempotency.Record),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertIfAbsent creates the record unless a live one exists for key.
func (s *Store) InsertIfAbsent(_ context.Context, key string, rec idempotency.Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if existing, ok := s.items[key]; ok && existing.ExpiresAt.After(now) {
		return false, nil
	}

	rec.ExpiresAt = now.Add(ttl)
	s.items[key] = rec
	return true, nil
}

// Get returns the live record for key, treating expired entries as absent.
func (s *Store) Get(_ context.Context, key string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if !rec.ExpiresAt.After(s.nowFunc()) {
		delete(s.items, key)
		return nil, nil
	}

	copy := rec
	return &copy, nil
}

// Update overwrites the live record for key. A ttl of zero keeps the current
// expiry; expired keys are not resurrected.
func (s *Store) Update(_ context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	existing, ok := s.items[key]
	if !ok || !existing.ExpiresAt.After(now) {
		delete(s.items, key)
		return idempotency.ErrRecordNotFound
	}

	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	} else {
		rec.ExpiresAt = existing.ExpiresAt
	}
	s.items[key] = rec
	return nil
}
