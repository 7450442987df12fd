//go:build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mlukic/catalog/internal/books/adapters/postgres"
	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/ports"
	"github.com/mlukic/catalog/internal/database"
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

func testBook(id string) domain.Book {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Book{
		ID:         id,
		Title:      "The Go Programming Language",
		Author:     "Donovan & Kernighan",
		ISBN:       "978-0134190440",
		PriceCents: 3499,
		Status:     domain.StatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRepositoryCreate(t *testing.T) {
	repo := postgres.NewRepository(setupTestDB(t))
	ctx := context.Background()

	book := testBook("book-1")
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("failed to create book: %v", err)
	}

	got, err := repo.GetByID(ctx, "book-1")
	if err != nil {
		t.Fatalf("failed to get book: %v", err)
	}

	if got.Title != book.Title {
		t.Errorf("expected title %s, got %s", book.Title, got.Title)
	}

	if got.PriceCents != book.PriceCents {
		t.Errorf("expected price %d, got %d", book.PriceCents, got.PriceCents)
	}

	if got.Status != domain.StatusAvailable {
		t.Errorf("expected status %s, got %s", domain.StatusAvailable, got.Status)
	}
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	repo := postgres.NewRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if err != ports.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryList(t *testing.T) {
	repo := postgres.NewRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"book-1", "book-2", "book-3"} {
		book := testBook(id)
		if err := repo.Create(ctx, book); err != nil {
			t.Fatalf("failed to create book %s: %v", id, err)
		}
	}

	if err := repo.UpdateStatus(ctx, "book-3", domain.StatusArchived); err != nil {
		t.Fatalf("failed to archive book: %v", err)
	}

	all, err := repo.List(ctx, ports.ListFilter{})
	if err != nil {
		t.Fatalf("failed to list books: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 books, got %d", len(all))
	}

	archived := domain.StatusArchived
	filtered, err := repo.List(ctx, ports.ListFilter{Status: &archived})
	if err != nil {
		t.Fatalf("failed to list archived books: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("expected 1 archived book, got %d", len(filtered))
	}

	paged, err := repo.List(ctx, ports.ListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("failed to list paged books: %v", err)
	}
	if len(paged) != 1 {
		t.Errorf("expected 1 book on second page, got %d", len(paged))
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo := postgres.NewRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testBook("book-1")); err != nil {
		t.Fatalf("failed to create book: %v", err)
	}

	if err := repo.UpdateStatus(ctx, "book-1", domain.StatusArchived); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	got, err := repo.GetByID(ctx, "book-1")
	if err != nil {
		t.Fatalf("failed to get book: %v", err)
	}

	if got.Status != domain.StatusArchived {
		t.Errorf("expected status %s, got %s", domain.StatusArchived, got.Status)
	}
}

func TestRepositoryUpdateStatus_NotFound(t *testing.T) {
	repo := postgres.NewRepository(setupTestDB(t))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusArchived)
	if err != ports.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
