package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/ports"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateBookCommand struct {
	Title      string `validate:"required"`
	Author     string `validate:"required"`
	ISBN       string `validate:"omitempty,isbn"`
	PriceCents int64  `validate:"required,gt=0"`
}

func (c CreateBookCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid create book command: %w", err)
	}
	return nil
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateBookCommand) (*domain.Book, error)
}

type CreateBookCommandHandler struct {
	repo   ports.BookRepository
	events ports.EventBus
}

func NewCreateBookCommandHandler(
	repo ports.BookRepository,
	events ports.EventBus,
) *CreateBookCommandHandler {
	return &CreateBookCommandHandler{
		repo:   repo,
		events: events,
	}
}

func (h *CreateBookCommandHandler) Handle(ctx context.Context, cmd CreateBookCommand) (*domain.Book, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := domain.Book{
		ID:         uuid.NewString(),
		Title:      cmd.Title,
		Author:     cmd.Author,
		ISBN:       cmd.ISBN,
		PriceCents: cmd.PriceCents,
		Status:     domain.StatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := book.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	if err := h.events.PublishBookCreated(ctx, book.ID); err != nil {
		return &book, fmt.Errorf("book saved but failed to publish event: %w", err)
	}

	return &book, nil
}
