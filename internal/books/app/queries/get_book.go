package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/ports"
)

// GetBookQuery represents a request to retrieve a book by its ID.
type GetBookQuery struct {
	BookID string
}

// GetBookQueryHandler executes GetBookQuery and returns the book if found.
type GetBookQueryHandler struct {
	repo ports.BookRepository
}

// NewGetBookQueryHandler constructs a GetBookQueryHandler.
func NewGetBookQueryHandler(repo ports.BookRepository) *GetBookQueryHandler {
	return &GetBookQueryHandler{repo: repo}
}

// Handle executes the query and retrieves the book.
func (h *GetBookQueryHandler) Handle(ctx context.Context, query GetBookQuery) (*domain.Book, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	book, err := h.repo.GetByID(ctx, query.BookID)
	if err != nil {
		return nil, err
	}

	return book, nil
}

// Validate ensures the query has valid parameters.
func (q GetBookQuery) Validate() error {
	if strings.TrimSpace(q.BookID) == "" {
		return errors.New("book_id is required")
	}
	return nil
}
