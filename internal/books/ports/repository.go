package ports

import (
	"context"
	"errors"

	"github.com/mlukic/catalog/internal/books/domain"
)

// BookRepository exposes persistence operations required by the application layer.
type BookRepository interface {
	Create(ctx context.Context, book domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Book, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookStatus) error
}

// ListFilter narrows list queries by status and pagination.
type ListFilter struct {
	Status   *domain.BookStatus
	Page     int
	PageSize int
}

var (
	// ErrNotFound is returned when the requested book does not exist.
	ErrNotFound = errors.New("book not found")
)
