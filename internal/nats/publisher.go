package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	natspkg "github.com/nats-io/nats.go"
)

const (
	subjectBookCreated  = "catalog.book.created"
	subjectBookArchived = "catalog.book.archived"
)

// Publisher emits catalog events onto NATS subjects.
type Publisher struct {
	nc *natspkg.Conn
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := natspkg.Connect(url,
		natspkg.Name("catalog-api"),
		natspkg.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// IsConnected reports whether the underlying connection is usable.
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.Status() == natspkg.CONNECTED
}

type bookEvent struct {
	BookID     string    `json:"book_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *Publisher) PublishBookCreated(_ context.Context, bookID string) error {
	return p.publish(subjectBookCreated, bookID)
}

func (p *Publisher) PublishBookArchived(_ context.Context, bookID string) error {
	return p.publish(subjectBookArchived, bookID)
}

func (p *Publisher) publish(subject, bookID string) error {
	payload, err := json.Marshal(bookEvent{
		BookID:     bookID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
