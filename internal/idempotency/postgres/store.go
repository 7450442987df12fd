package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlukic/catalog/internal/idempotency"
)

// Store keeps idempotency records in Postgres. Rows are never deleted by the
// store itself; every query filters on expires_at so expired rows behave as
// absent, and the conditional upsert lets a fresh registration take over an
// expired row in a single statement.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertIfAbsent(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO idempotency_records (key, status, result, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET status = EXCLUDED.status,
		    result = EXCLUDED.result,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		WHERE idempotency_records.expires_at <= now()
	`

	tag, err := s.pool.Exec(ctx, query,
		key,
		rec.Status,
		rec.Result,
		rec.CreatedAt,
		rec.CreatedAt.Add(ttl),
	)
	if err != nil {
		return false, fmt.Errorf("insert idempotency record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	query := `
		SELECT key, status, result, created_at, expires_at
		FROM idempotency_records
		WHERE key = $1 AND expires_at > now()
	`

	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key,
		&rec.Status,
		&rec.Result,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency record: %w", err)
	}

	return &rec, nil
}

func (s *Store) Update(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	query := `
		UPDATE idempotency_records
		SET status = $2,
		    result = $3,
		    created_at = $4,
		    expires_at = COALESCE($5, expires_at)
		WHERE key = $1 AND expires_at > now()
	`

	var expiresAt *time.Time
	if ttl > 0 {
		t := rec.CreatedAt.Add(ttl)
		expiresAt = &t
	}

	tag, err := s.pool.Exec(ctx, query, key, rec.Status, rec.Result, rec.CreatedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("update idempotency record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return idempotency.ErrRecordNotFound
	}

	return nil
}
