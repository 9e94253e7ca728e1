package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
)

// AttemptStore persists graded attempt results, the per-pool retention cap,
// and the exclusive pin flag.
type AttemptStore interface {
	// CreateAttempt persists a new attempt result and fills in its assigned ID.
	CreateAttempt(ctx context.Context, r *domain.AttemptResult) error

	// GetAttempt retrieves an attempt result by ID.
	// Returns ErrAttemptNotFound if it does not exist.
	GetAttempt(ctx context.Context, id int64) (*domain.AttemptResult, error)

	// EvictOldestUnpinned deletes results older than the newest keep for the
	// (learner, category) pool. Pinned results count toward the window but
	// are never deleted, even once they age out of it. Returns the number of
	// rows deleted.
	EvictOldestUnpinned(ctx context.Context, learnerID uuid.UUID, categoryID int64, keep int) (int64, error)

	// UnpinAllForItem clears the pin flag on every result the learner has
	// for the given item. Used to enforce pin exclusivity before pinning.
	UnpinAllForItem(ctx context.Context, learnerID uuid.UUID, itemID int64) error

	// SetPinned sets or clears the pin flag on a single result.
	// Returns ErrAttemptNotFound if the result does not exist.
	SetPinned(ctx context.Context, id int64, pinned bool) error

	// ListMistakes returns the learner's incorrect attempts for a category in
	// insertion order, oldest first.
	ListMistakes(ctx context.Context, learnerID uuid.UUID, categoryID int64) ([]*domain.AttemptResult, error)

	// WithTx returns an AttemptStore bound to the given transaction.
	WithTx(tx *sql.Tx) AttemptStore
}
