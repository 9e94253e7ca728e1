package domain

import (
	"errors"
	"time"
)

// Category validation errors.
var (
	ErrCategoryNameEmpty  = errors.New("category name cannot be empty")
	ErrLessonNameEmpty    = errors.New("lesson name cannot be empty")
	ErrLessonCategoryZero = errors.New("lesson category ID cannot be zero")
)

// Category groups content items into a topical pool, e.g. "Greetings".
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the Category fields.
func (c *Category) Validate() error {
	if c.Name == "" {
		return ErrCategoryNameEmpty
	}
	return nil
}

// Lesson narrows a category pool to an ordered unit of study. Content items
// may be scoped to a lesson or float freely within their category.
type Lesson struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the Lesson fields.
func (l *Lesson) Validate() error {
	if l.CategoryID == 0 {
		return ErrLessonCategoryZero
	}
	if l.Name == "" {
		return ErrLessonNameEmpty
	}
	return nil
}
