package store

import (
	"context"
	"database/sql"

	"github.com/lingualab/lingua-api/internal/domain"
)

// ContentStore provides durable lookup and creation of content items and
// their per-language translations, plus the usage-ledger mutations that
// drive pool rotation.
type ContentStore interface {
	// FindItems returns the candidate pool for a category, optionally scoped
	// to a lesson. An empty result is a valid, non-error outcome; the caller
	// must trigger generation. Returns ErrCategoryNotFound when the category
	// itself does not exist.
	FindItems(ctx context.Context, categoryID int64, lessonID *int64) ([]*domain.ContentItem, error)

	// GetItem retrieves a content item by ID.
	// Returns ErrItemNotFound if it does not exist.
	GetItem(ctx context.Context, id int64) (*domain.ContentItem, error)

	// CreateItem persists a new content item and fills in its assigned ID.
	CreateItem(ctx context.Context, item *domain.ContentItem) error

	// RecordUse increments an item's used count and stamps last_used_at,
	// as one atomic update.
	RecordUse(ctx context.Context, id int64) error

	// ResetPoolIfExhausted zeroes the usage counters of every item in the
	// category pool, but only when all of them exceed threshold. The check
	// and the reset happen in a single guarded statement so concurrent
	// callers cannot observe a partial reset. Reports whether a reset
	// occurred.
	ResetPoolIfExhausted(ctx context.Context, categoryID int64, lessonID *int64, threshold int) (bool, error)

	// GetTranslation retrieves the translation for an (item, language) pair.
	// Returns ErrTranslationNotFound if none exists yet.
	GetTranslation(ctx context.Context, itemID int64, language string) (*domain.Translation, error)

	// CreateTranslation persists a new translation. Returns
	// ErrTranslationExists if a concurrent writer committed first; the
	// caller must then re-fetch the winning row and discard its own payload.
	CreateTranslation(ctx context.Context, tr *domain.Translation) error

	// GetCategory retrieves a category by ID.
	// Returns ErrCategoryNotFound if it does not exist.
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)

	// GetLesson retrieves a lesson by ID.
	// Returns ErrLessonNotFound if it does not exist.
	GetLesson(ctx context.Context, id int64) (*domain.Lesson, error)

	// WithTx returns a ContentStore bound to the given transaction.
	WithTx(tx *sql.Tx) ContentStore
}
