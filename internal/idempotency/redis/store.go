package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mlukic/catalog/internal/idempotency"
)

const keyPrefix = "idempotency:"

// Store keeps idempotency records in Redis. Records are stored as JSON with a
// server-side TTL, so expiry needs no application bookkeeping: Redis simply
// stops returning the key.
type Store struct {
	client *redis.Client
}

// NewStore wraps a Redis client as a result store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// InsertIfAbsent registers the record with SETNX semantics.
func (s *Store) InsertIfAbsent(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	inserted, err := s.client.SetNX(ctx, keyPrefix+key, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx record: %w", err)
	}

	return inserted, nil
}

// Get returns the record for key, or (nil, nil) once Redis has expired it.
func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var rec idempotency.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	return &rec, nil
}

// Update overwrites the record only while the key is still live (SET XX).
// A zero ttl keeps the remaining Redis TTL, which preserves the
// measured-from-creation duplicate window.
func (s *Store) Update(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	args := redis.SetArgs{Mode: "XX"}
	if ttl > 0 {
		args.TTL = ttl
	} else {
		args.KeepTTL = true
	}

	err = s.client.SetArgs(ctx, keyPrefix+key, payload, args).Err()
	if errors.Is(err, redis.Nil) {
		return idempotency.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	return nil
}
