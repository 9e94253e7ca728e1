package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/store"
)

// PostgresAttemptStore implements the store.AttemptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttemptStore creates a new PostgreSQL implementation of the
// AttemptStore interface. If logger is nil, a default logger will be used.
func NewPostgresAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

// Ensure PostgresAttemptStore implements store.AttemptStore interface
var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

// WithTx implements store.AttemptStore.WithTx
func (s *PostgresAttemptStore) WithTx(tx *sql.Tx) store.AttemptStore {
	return &PostgresAttemptStore{
		db:     tx,
		logger: s.logger,
	}
}

const attemptColumns = `id, learner_id, item_id, category_id, answer, correct, feedback, pinned, created_at`

func scanAttempt(row interface{ Scan(...any) error }) (*domain.AttemptResult, error) {
	var r domain.AttemptResult
	err := row.Scan(
		&r.ID,
		&r.LearnerID,
		&r.ItemID,
		&r.CategoryID,
		&r.Answer,
		&r.Correct,
		&r.Feedback,
		&r.Pinned,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateAttempt implements store.AttemptStore.CreateAttempt
// It saves a new attempt result and fills in its assigned ID.
// Returns store.ErrInvalidEntity if the item does not exist.
func (s *PostgresAttemptStore) CreateAttempt(ctx context.Context, r *domain.AttemptResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := r.Validate(); err != nil {
		log.Warn("attempt result validation failed during create",
			slog.String("error", err.Error()),
			slog.String("learner_id", r.LearnerID.String()))
		return err
	}

	query := `
		INSERT INTO attempt_results (learner_id, item_id, category_id, answer, correct, feedback, pinned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		r.LearnerID,
		r.ItemID,
		r.CategoryID,
		r.Answer,
		r.Correct,
		r.Feedback,
		r.Pinned,
		r.CreatedAt,
	).Scan(&r.ID)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during attempt creation",
				slog.String("error", err.Error()),
				slog.Int64("item_id", r.ItemID))
			return fmt.Errorf("%w: item with ID %d not found",
				store.ErrInvalidEntity, r.ItemID)
		}
		log.Error("failed to create attempt result",
			slog.String("error", err.Error()),
			slog.String("learner_id", r.LearnerID.String()),
			slog.Int64("item_id", r.ItemID))
		return MapError(err)
	}

	log.Debug("attempt result created",
		slog.Int64("attempt_id", r.ID),
		slog.String("learner_id", r.LearnerID.String()),
		slog.Bool("correct", r.Correct))
	return nil
}

// GetAttempt implements store.AttemptStore.GetAttempt
// Returns store.ErrAttemptNotFound if the result does not exist.
func (s *PostgresAttemptStore) GetAttempt(ctx context.Context, id int64) (*domain.AttemptResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + attemptColumns + `
		FROM attempt_results
		WHERE id = $1
	`

	r, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("attempt result not found", slog.Int64("attempt_id", id))
			return nil, store.ErrAttemptNotFound
		}
		log.Error("failed to get attempt result",
			slog.String("error", err.Error()),
			slog.Int64("attempt_id", id))
		return nil, err
	}

	return r, nil
}

// EvictOldestUnpinned implements store.AttemptStore.EvictOldestUnpinned
// It deletes results that have aged out of the newest-keep window for the
// (learner, category) pool. Pinned results count toward the window but are
// never deleted.
func (s *PostgresAttemptStore) EvictOldestUnpinned(
	ctx context.Context,
	learnerID uuid.UUID,
	categoryID int64,
	keep int,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM attempt_results
		WHERE NOT pinned
		AND id IN (
			SELECT id FROM attempt_results
			WHERE learner_id = $1 AND category_id = $2
			ORDER BY id DESC
			OFFSET $3
		)
	`

	result, err := s.db.ExecContext(ctx, query, learnerID, categoryID, keep)
	if err != nil {
		log.Error("failed to evict attempt results",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("category_id", categoryID))
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Info("evicted old attempt results",
			slog.String("learner_id", learnerID.String()),
			slog.Int64("category_id", categoryID),
			slog.Int64("evicted", rowsAffected))
	}
	return rowsAffected, nil
}

// UnpinAllForItem implements store.AttemptStore.UnpinAllForItem
// It clears the pin flag on every result the learner has for the item.
// Affecting zero rows is not an error; the learner may simply have no pins.
func (s *PostgresAttemptStore) UnpinAllForItem(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE attempt_results
		SET pinned = FALSE
		WHERE learner_id = $1 AND item_id = $2 AND pinned
	`

	if _, err := s.db.ExecContext(ctx, query, learnerID, itemID); err != nil {
		log.Error("failed to unpin attempt results",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("item_id", itemID))
		return err
	}

	return nil
}

// SetPinned implements store.AttemptStore.SetPinned
// Returns store.ErrAttemptNotFound if the result does not exist.
func (s *PostgresAttemptStore) SetPinned(ctx context.Context, id int64, pinned bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE attempt_results
		SET pinned = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, pinned, id)
	if err != nil {
		log.Error("failed to set pin flag",
			slog.String("error", err.Error()),
			slog.Int64("attempt_id", id))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrAttemptNotFound); err != nil {
		log.Debug("attempt result not found for pin update", slog.Int64("attempt_id", id))
		return err
	}

	log.Debug("pin flag updated",
		slog.Int64("attempt_id", id),
		slog.Bool("pinned", pinned))
	return nil
}

// ListMistakes implements store.AttemptStore.ListMistakes
// It returns the learner's incorrect attempts for a category in insertion
// order, oldest first.
func (s *PostgresAttemptStore) ListMistakes(
	ctx context.Context,
	learnerID uuid.UUID,
	categoryID int64,
) ([]*domain.AttemptResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + attemptColumns + `
		FROM attempt_results
		WHERE learner_id = $1 AND category_id = $2 AND NOT correct
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, categoryID)
	if err != nil {
		log.Error("failed to query mistakes",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("category_id", categoryID))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	mistakes := []*domain.AttemptResult{}
	for rows.Next() {
		r, err := scanAttempt(rows)
		if err != nil {
			log.Error("failed to scan attempt row", slog.String("error", err.Error()))
			return nil, err
		}
		mistakes = append(mistakes, r)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("found mistakes",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(mistakes)))
	return mistakes, nil
}
