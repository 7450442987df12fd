// Package idempotency makes caller-supplied write operations safe to retry.
// A client-supplied key identifies a logical request; within the TTL window
// the underlying operation runs at most once and retries observe the result
// recorded by the first execution.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrConcurrentDuplicate means another in-flight request holds the same
	// key. The coordinator never waits for it; retrying is the caller's call.
	ErrConcurrentDuplicate = errors.New("concurrent request in progress for idempotency key")

	// ErrStoreUnavailable means the result store could not be reached before
	// the operation ran. The coordinator fails closed: it refuses to execute
	// without a deduplication guarantee.
	ErrStoreUnavailable = errors.New("idempotency store unavailable")

	// ErrRecordNotFound is returned by ResultStore.Update when the key is
	// absent or its record has expired.
	ErrRecordNotFound = errors.New("idempotency record not found")

	// ErrResultNotRecorded means the operation succeeded but its result could
	// not be stored. The side effect is applied and the result is returned
	// alongside this error; a retry with the same key may run the operation
	// again.
	ErrResultNotRecorded = errors.New("operation applied but recording result failed")
)

// Operation is the unit of work wrapped by the coordinator. It returns the
// serialized result that duplicates will observe on replay.
type Operation func(ctx context.Context) ([]byte, error)

// Coordinator guarantees at-most-once execution per idempotency key within a
// TTL window. It is stateless and holds no locks; all mutual exclusion is
// delegated to the result store's atomic insert, so any number of processes
// sharing a store behave consistently.
type Coordinator struct {
	store      ResultStore
	ttl        time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.nowFunc = now
	}
}

// NewCoordinator builds a Coordinator. ttl bounds the duplicate window,
// counted from first registration of a key. staleAfter is the age past which
// an in-progress record is assumed to belong to a crashed writer and becomes
// reclaimable; zero disables the safety valve.
func NewCoordinator(store ResultStore, ttl, staleAfter time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		ttl:        ttl,
		staleAfter: staleAfter,
		logger:     slog.Default(),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs op at most once for the given key within the TTL window.
//
// A first call registers the key and runs op; its serialized result is stored
// and returned with duplicate=false. A later call with the same key returns
// the stored bytes with duplicate=true, without invoking op. A concurrent
// call while the first is still running fails with ErrConcurrentDuplicate.
// A failed attempt marks the key retryable immediately; the next call runs
// op again. An empty key disables deduplication entirely: op runs every time.
//
// Operation errors are propagated unchanged. Store errors surface wrapped in
// ErrStoreUnavailable and op is not executed without a registered claim.
func (c *Coordinator) Execute(ctx context.Context, key string, op Operation) (result []byte, duplicate bool, err error) {
	if key == "" {
		result, err = op(ctx)
		return result, false, err
	}

	claimed, completed, err := c.claim(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if claimed == nil {
		return completed.Result, true, nil
	}

	result, err = c.run(ctx, *claimed, op)
	return result, false, err
}

// claim attempts to register an in-progress record for key. On success it
// returns the record this call now owns. If a previous call already completed
// the key, the completed record is returned instead.
func (c *Coordinator) claim(ctx context.Context, key string) (claimed *Record, completed *Record, err error) {
	for {
		now := c.nowFunc().UTC()
		rec := Record{
			Key:       key,
			Status:    StatusInProgress,
			CreatedAt: now,
			ExpiresAt: now.Add(c.ttl),
		}

		inserted, err := c.store.InsertIfAbsent(ctx, key, rec, c.ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: register key: %w", ErrStoreUnavailable, err)
		}
		if inserted {
			return &rec, nil, nil
		}

		existing, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: fetch record: %w", ErrStoreUnavailable, err)
		}
		if existing == nil {
			// The record expired between the failed insert and the fetch;
			// start over as a fresh key.
			continue
		}

		switch existing.Status {
		case StatusCompleted:
			return nil, existing, nil
		case StatusInProgress:
			if c.staleAfter <= 0 || now.Sub(existing.CreatedAt) <= c.staleAfter {
				return nil, nil, ErrConcurrentDuplicate
			}
			// The owning writer is presumed dead; without this the key would
			// reject retries until TTL expiry.
			c.logger.WarnContext(ctx, "reclaiming stale in-progress idempotency record",
				"key", key,
				"record_age", now.Sub(existing.CreatedAt),
			)
		case StatusFailed:
			// Retryable: a failed attempt must not poison the key.
		}

		// Reclaiming a failed or stale record is a plain overwrite, not a
		// compare-and-swap: two concurrent retries can both pass the status
		// check above and both run the operation. Mutual exclusion is only
		// guaranteed against fresh in-progress claims, which go through the
		// atomic insert.
		err = c.store.Update(ctx, key, rec, c.ttl)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reclaim key: %w", ErrStoreUnavailable, err)
		}
		return &rec, nil, nil
	}
}

// run executes op under an owned claim and finalizes the record. The record
// is transitioned to failed even when op panics or the context is canceled,
// so the key never stays in-progress until TTL expiry because of a crash in
// this process.
func (c *Coordinator) run(ctx context.Context, rec Record, op Operation) (result []byte, err error) {
	finalized := false
	defer func() {
		if !finalized {
			c.markFailed(ctx, rec)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		finalized = true
		c.markFailed(ctx, rec)
		return nil, err
	}
	finalized = true

	rec.Status = StatusCompleted
	rec.Result = result
	if storeErr := c.store.Update(context.WithoutCancel(ctx), rec.Key, rec, 0); storeErr != nil {
		// The side effect has already been applied; hand the result back
		// alongside the bookkeeping failure.
		return result, fmt.Errorf("%w: %w", ErrResultNotRecorded, storeErr)
	}

	return result, nil
}

func (c *Coordinator) markFailed(ctx context.Context, rec Record) {
	rec.Status = StatusFailed
	rec.Result = nil

	ctx = context.WithoutCancel(ctx)
	if err := c.store.Update(ctx, rec.Key, rec, 0); err != nil {
		c.logger.ErrorContext(ctx, "failed to mark idempotency record as failed",
			"key", rec.Key,
			"error", err,
		)
	}
}
