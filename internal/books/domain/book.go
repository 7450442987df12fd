package domain

import (
	"errors"
	"strings"
	"time"
)

// BookStatus captures the lifecycle of a catalog entry.
type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusArchived  BookStatus = "archived"
)

// Book represents a single title in the catalog.
type Book struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	ISBN       string     `json:"isbn,omitempty"`
	PriceCents int64      `json:"price_cents"`
	Status     BookStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate ensures the book adheres to business constraints.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return errors.New("author is required")
	}
	if b.PriceCents <= 0 {
		return errors.New("price_cents must be positive")
	}
	return nil
}

// IsArchived indicates whether the book has been removed from sale.
func (b Book) IsArchived() bool {
	return b.Status == StatusArchived
}
