package store

import (
	"context"
	"database/sql"

	"github.com/lingualab/lingua-api/internal/domain"
)

// SituationStore provides durable access to the dialogue situation pool,
// which rotates through the same usage ledger as content items.
type SituationStore interface {
	// FindSituations returns the situation pool, optionally scoped to a
	// category. An empty result is valid; the caller must trigger generation.
	FindSituations(ctx context.Context, categoryID *int64) ([]*domain.Situation, error)

	// GetSituation retrieves a situation by ID.
	// Returns ErrSituationNotFound if it does not exist.
	GetSituation(ctx context.Context, id int64) (*domain.Situation, error)

	// CreateSituation persists a new situation and fills in its assigned ID.
	CreateSituation(ctx context.Context, s *domain.Situation) error

	// RecordUse increments a situation's used count and stamps last_used_at.
	RecordUse(ctx context.Context, id int64) error

	// ResetPoolIfExhausted zeroes the pool's counters when every situation
	// exceeds threshold, in a single guarded statement.
	ResetPoolIfExhausted(ctx context.Context, categoryID *int64, threshold int) (bool, error)

	// WithTx returns a SituationStore bound to the given transaction.
	WithTx(tx *sql.Tx) SituationStore
}
