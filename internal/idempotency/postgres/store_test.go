//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mlukic/catalog/internal/database"
	"github.com/mlukic/catalog/internal/idempotency"
	"github.com/mlukic/catalog/internal/idempotency/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	if err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func newRecord(key string, status idempotency.Status, result []byte) idempotency.Record {
	now := time.Now().UTC()
	return idempotency.Record{
		Key:       key,
		Status:    status,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}
}

func TestInsertIfAbsentAndGet(t *testing.T) {
	store := postgres.NewStore(setupTestDB(t))
	ctx := context.Background()

	inserted, err := store.InsertIfAbsent(ctx, "k1", newRecord("k1", idempotency.StatusInProgress, nil), time.Minute)
	if err != nil {
		t.Fatalf("failed to insert record: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to win")
	}

	inserted, err = store.InsertIfAbsent(ctx, "k1", newRecord("k1", idempotency.StatusInProgress, nil), time.Minute)
	if err != nil {
		t.Fatalf("failed on duplicate insert: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to lose against a live record")
	}

	rec, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Status != idempotency.StatusInProgress {
		t.Errorf("expected status %s, got %s", idempotency.StatusInProgress, rec.Status)
	}
}

func TestInsertIfAbsentTakesOverExpiredRow(t *testing.T) {
	store := postgres.NewStore(setupTestDB(t))
	ctx := context.Background()

	rec := newRecord("k1", idempotency.StatusCompleted, []byte(`old`))
	rec.CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	inserted, err := store.InsertIfAbsent(ctx, "k1", rec, time.Minute)
	if err != nil {
		t.Fatalf("failed to insert expired record: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert to win")
	}

	// The row is past its expiry, so a new registration claims it.
	inserted, err = store.InsertIfAbsent(ctx, "k1", newRecord("k1", idempotency.StatusInProgress, nil), time.Minute)
	if err != nil {
		t.Fatalf("failed to reclaim expired row: %v", err)
	}
	if !inserted {
		t.Error("expected insert to take over an expired row")
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Status != idempotency.StatusInProgress {
		t.Errorf("expected status %s, got %s", idempotency.StatusInProgress, got.Status)
	}
}

func TestGetExpiredRowReturnsNil(t *testing.T) {
	store := postgres.NewStore(setupTestDB(t))
	ctx := context.Background()

	rec := newRecord("k1", idempotency.StatusCompleted, []byte(`old`))
	rec.CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	if _, err := store.InsertIfAbsent(ctx, "k1", rec, time.Minute); err != nil {
		t.Fatalf("failed to insert record: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired row to read as absent, got %+v", got)
	}
}

func TestUpdate(t *testing.T) {
	store := postgres.NewStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, "k1", newRecord("k1", idempotency.StatusInProgress, nil), time.Minute); err != nil {
		t.Fatalf("failed to insert record: %v", err)
	}

	done := newRecord("k1", idempotency.StatusCompleted, []byte(`{"id":7}`))
	if err := store.Update(ctx, "k1", done, 0); err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Status != idempotency.StatusCompleted {
		t.Errorf("expected status %s, got %s", idempotency.StatusCompleted, got.Status)
	}
	if string(got.Result) != `{"id":7}` {
		t.Errorf("expected result %s, got %s", `{"id":7}`, got.Result)
	}
}

func TestUpdateMissingKeyReturnsNotFound(t *testing.T) {
	store := postgres.NewStore(setupTestDB(t))

	err := store.Update(context.Background(), "missing", newRecord("missing", idempotency.StatusCompleted, nil), 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, idempotency.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}
