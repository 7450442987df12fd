package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mlukic/catalog/internal/books/ports"
	"github.com/mlukic/catalog/internal/nats"
	"github.com/mlukic/catalog/internal/telemetry"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *nats.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *nats.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishBookCreated(ctx context.Context, bookID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishBookCreated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", bookID),
		attribute.String("event.type", "book.created"),
		attribute.String("subject", "catalog.book.created"),
	)

	start := time.Now()
	err := e.bus.PublishBookCreated(ctx, bookID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "catalog.book.created", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishBookArchived(ctx context.Context, bookID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishBookArchived")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("book.id", bookID),
		attribute.String("event.type", "book.archived"),
		attribute.String("subject", "catalog.book.archived"),
	)

	start := time.Now()
	err := e.bus.PublishBookArchived(ctx, bookID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "catalog.book.archived", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
