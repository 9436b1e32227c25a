package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category is an entry of the curated product taxonomy. Products reference
// categories by name or slug in their free-text category field.
type Category struct {
	ID           uuid.UUID `json:"id"            db:"id"`
	Slug         string    `json:"slug"          db:"slug"`
	Name         string    `json:"name"          db:"name"`
	Description  string    `json:"description"   db:"description"`
	SortOrder    int       `json:"sort_order"    db:"sort_order"`
	IsActive     bool      `json:"is_active"     db:"is_active"`
	ProductCount int       `json:"product_count" db:"product_count"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`
}

// CategoryRequest creates or replaces a category. An empty slug is derived
// from the name.
type CategoryRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Slug        string `json:"slug"        validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
	SortOrder   int    `json:"sort_order"  validate:"gte=0"`
	IsActive    *bool  `json:"is_active"`
}
