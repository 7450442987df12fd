package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlukic/catalog/internal/books/app/commands"
	"github.com/mlukic/catalog/internal/books/app/queries"
	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/metrics"
	"github.com/mlukic/catalog/internal/books/ports"
)

// Service bundles use cases for handling the catalog via the API.
type Service struct {
	repo              ports.BookRepository
	events            ports.EventBus
	createBookHandler commands.CommandHandler
	getBookHandler    *queries.GetBookQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.BookRepository,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	coreHandler := commands.NewCreateBookCommandHandler(repo, events)
	observableHandler := commands.NewObservableCommandHandler(coreHandler, logger, metrics)

	return &Service{
		repo:              repo,
		events:            events,
		createBookHandler: observableHandler,
		getBookHandler:    queries.NewGetBookQueryHandler(repo),
	}
}

// CreateBookInput captures payload for adding a book to the catalog.
type CreateBookInput struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn"`
	PriceCents int64  `json:"price_cents"`
}

// CreateBook orchestrates book creation and event emission.
func (s *Service) CreateBook(ctx context.Context, input CreateBookInput) (*domain.Book, error) {
	cmd := commands.CreateBookCommand{
		Title:      input.Title,
		Author:     input.Author,
		ISBN:       input.ISBN,
		PriceCents: input.PriceCents,
	}
	return s.createBookHandler.Handle(ctx, cmd)
}

// GetBook retrieves a book by ID.
func (s *Service) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.getBookHandler.Handle(ctx, queries.GetBookQuery{BookID: id})
}

// ListBooks returns catalog entries using a filter.
func (s *Service) ListBooks(ctx context.Context, filter ports.ListFilter) ([]domain.Book, error) {
	return s.repo.List(ctx, filter)
}

// ArchiveBook removes an available book from sale.
func (s *Service) ArchiveBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if book.Status != domain.StatusAvailable {
		return nil, fmt.Errorf("cannot archive book in status %s", book.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.StatusArchived); err != nil {
		return nil, err
	}

	book.Status = domain.StatusArchived
	book.UpdatedAt = time.Now().UTC()

	if err := s.events.PublishBookArchived(ctx, book.ID); err != nil {
		return book, fmt.Errorf("book archived but failed to publish event: %w", err)
	}

	return book, nil
}
