package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// UsageHistoryStore records which items a learner has been served within a
// lesson, feeding future selection exclusion sets. This is distinct from the
// global used_count, which governs pool rotation rather than per-learner
// dedup.
type UsageHistoryStore interface {
	// RecordServed appends a served item to the learner's lesson history.
	// Serving the same item again within a lesson is a no-op rather than an
	// error, since a pool may legitimately repeat once exhausted.
	RecordServed(ctx context.Context, learnerID uuid.UUID, lessonID, itemID int64) error

	// ListServed returns the item IDs the learner has already seen in the
	// lesson, in the order they were served.
	ListServed(ctx context.Context, learnerID uuid.UUID, lessonID int64) ([]int64, error)

	// ServedWords returns the canonical texts of the items the learner has
	// already seen in the lesson, for vocabulary exclusion.
	ServedWords(ctx context.Context, learnerID uuid.UUID, lessonID int64) ([]string, error)

	// ClearLesson removes the learner's history for a lesson, ending the
	// dedup scope when an attempt completes or is abandoned.
	ClearLesson(ctx context.Context, learnerID uuid.UUID, lessonID int64) error

	// WithTx returns a UsageHistoryStore bound to the given transaction.
	WithTx(tx *sql.Tx) UsageHistoryStore
}
