package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/ports"
	"github.com/mlukic/catalog/internal/database"
	"github.com/mlukic/catalog/internal/telemetry"
)

type ObservableRepository struct {
	repo    ports.BookRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.BookRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) Create(ctx context.Context, book domain.Book) error {
	ctx, span := telemetry.StartSpan(ctx, "BookRepository.Create")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", book.ID),
		attribute.String("operation", "create"),
	)

	start := time.Now()
	err := r.repo.Create(ctx, book)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "create_book", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "BookRepository.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	book, err := r.repo.GetByID(ctx, id)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "get_book_by_id", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return book, nil
}

func (r *ObservableRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "BookRepository.List")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("operation", "list"),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	books, err := r.repo.List(ctx, filter)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "list_books", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(books)))
	telemetry.SetSpanSuccess(span)
	return books, nil
}

func (r *ObservableRepository) UpdateStatus(ctx context.Context, id string, status domain.BookStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "BookRepository.UpdateStatus")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", id),
		attribute.String("book.new_status", string(status)),
		attribute.String("operation", "update_status"),
	)

	start := time.Now()
	err := r.repo.UpdateStatus(ctx, id, status)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "update_book_status", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
