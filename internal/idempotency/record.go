package idempotency

import (
	"context"
	"time"
)

// Status tracks the lifecycle of a registered idempotency key.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is what the result store keeps per idempotency key. Result holds the
// serialized outcome of the wrapped operation and is only set once the record
// reaches StatusCompleted.
type Record struct {
	Key       string    `json:"key"`
	Status    Status    `json:"status"`
	Result    []byte    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResultStore persists idempotency records with a TTL. Implementations must
// provide an atomic insert-if-absent; that is the only mutual exclusion the
// coordinator relies on. Expired records are treated as absent everywhere:
// Get returns (nil, nil) for them and Update must not resurrect them.
type ResultStore interface {
	// InsertIfAbsent atomically creates the record unless a live one already
	// exists for key. It reports whether the insert happened.
	InsertIfAbsent(ctx context.Context, key string, rec Record, ttl time.Duration) (bool, error)

	// Get returns the live record for key, or (nil, nil) when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (*Record, error)

	// Update overwrites the live record for key. A ttl of zero keeps the
	// remaining TTL; a positive ttl restarts the expiry window. Returns
	// ErrRecordNotFound when the key is absent or expired.
	Update(ctx context.Context, key string, rec Record, ttl time.Duration) error
}
