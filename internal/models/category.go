package models

import (
	"time"
)

// DefaultCategory is used when an article is written without a category
const DefaultCategory = "national"

// Category is a row of the category registry. Name is the stable key articles refer to.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Label     string    `json:"label" db:"label"`
	Color     string    `json:"color" db:"color"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryInput represents the data needed to create a category
type CategoryInput struct {
	Name      string `json:"name" validate:"required,max=64"`
	Label     string `json:"label" validate:"required,max=100"`
	Color     string `json:"color" validate:"max=64"`
	IsActive  *bool  `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

// CategoryUpdate represents the mutable fields of a category. The name cannot change.
type CategoryUpdate struct {
	Label     *string `json:"label" validate:"omitempty,min=1,max=100"`
	Color     *string `json:"color" validate:"omitempty,max=64"`
	IsActive  *bool   `json:"is_active"`
	SortOrder *int    `json:"sort_order"`
}
