package commands

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/metrics"
	"github.com/mlukic/catalog/internal/telemetry"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateBookCommand) (*domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateBookCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordBookCreationDuration(ctx, duration)
		o.metrics.RecordBookCreated(ctx, success)
	}()

	o.logger.InfoContext(ctx, "creating book",
		"title", cmd.Title,
		"author", cmd.Author,
	)

	book, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to create book",
			"error", err,
			"title", cmd.Title,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", book.ID),
		attribute.String("book.title", book.Title),
		attribute.Int64("book.price_cents", book.PriceCents),
		attribute.String("book.status", string(book.Status)),
	)

	o.logger.InfoContext(ctx, "book created successfully",
		"book_id", book.ID,
		"title", book.Title,
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return book, nil
}
