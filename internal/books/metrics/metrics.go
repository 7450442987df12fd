package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	booksCreatedTotal        metric.Int64Counter
	bookCreationDuration     metric.Float64Histogram
	idempotencyOutcomesTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.booksCreatedTotal, err = meter.Int64Counter(
		"books_created_total",
		metric.WithDescription("Total number of books created"),
		metric.WithUnit("{book}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create books_created_total counter: %w", err)
	}

	m.bookCreationDuration, err = meter.Float64Histogram(
		"book_creation_duration_seconds",
		metric.WithDescription("Duration of book creation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create book_creation_duration histogram: %w", err)
	}

	m.idempotencyOutcomesTotal, err = meter.Int64Counter(
		"idempotency_outcomes_total",
		metric.WithDescription("Idempotent create outcomes by kind"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_outcomes_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordBookCreated(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.booksCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordBookCreationDuration(ctx context.Context, durationSeconds float64) {
	m.bookCreationDuration.Record(ctx, durationSeconds)
}

// RecordIdempotencyOutcome counts how idempotent creates resolve.
// Outcome is one of "fresh", "replayed" or "conflict".
func (m *Metrics) RecordIdempotencyOutcome(ctx context.Context, outcome string) {
	m.idempotencyOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
