package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/ports"
)

// Repository provides an in-memory store useful for local development and tests.
type Repository struct {
	mu    sync.RWMutex
	books map[string]domain.Book
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{books: make(map[string]domain.Book)}
}

// Create stores a new book instance.
func (r *Repository) Create(_ context.Context, book domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.ID] = book
	return nil
}

// GetByID fetches a single book by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := book
	return &copy, nil
}

// List returns books respecting the provided filter. Pagination is 1-based.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Book
	for _, book := range r.books {
		if filter.Status != nil && book.Status != *filter.Status {
			continue
		}
		result = append(result, book)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Book{}, nil
	}

	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	slice := make([]domain.Book, end-start)
	copy(slice, result[start:end])

	return slice, nil
}

// UpdateStatus sets the status and updatedAt timestamp for a book.
func (r *Repository) UpdateStatus(_ context.Context, id string, status domain.BookStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	book, ok := r.books[id]
	if !ok {
		return ports.ErrNotFound
	}

	book.Status = status
	book.UpdatedAt = time.Now().UTC()
	r.books[id] = book
	return nil
}
