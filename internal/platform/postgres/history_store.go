package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/store"
)

// PostgresUsageHistoryStore implements the store.UsageHistoryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUsageHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageHistoryStore creates a new PostgreSQL implementation of
// the UsageHistoryStore interface. If logger is nil, a default logger will
// be used.
func NewPostgresUsageHistoryStore(db store.DBTX, logger *slog.Logger) *PostgresUsageHistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUsageHistoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_history_store")),
	}
}

// Ensure PostgresUsageHistoryStore implements store.UsageHistoryStore interface
var _ store.UsageHistoryStore = (*PostgresUsageHistoryStore)(nil)

// WithTx implements store.UsageHistoryStore.WithTx
func (s *PostgresUsageHistoryStore) WithTx(tx *sql.Tx) store.UsageHistoryStore {
	return &PostgresUsageHistoryStore{
		db:     tx,
		logger: s.logger,
	}
}

// RecordServed implements store.UsageHistoryStore.RecordServed
// Serving the same item again within a lesson is a no-op rather than an
// error, since a pool may legitimately repeat once exhausted.
func (s *PostgresUsageHistoryStore) RecordServed(
	ctx context.Context,
	learnerID uuid.UUID,
	lessonID, itemID int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO usage_history (learner_id, lesson_id, item_id, served_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (learner_id, lesson_id, item_id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, learnerID, lessonID, itemID, time.Now().UTC())
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: lesson or item not found", store.ErrInvalidEntity)
		}
		log.Error("failed to record served item",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("lesson_id", lessonID),
			slog.Int64("item_id", itemID))
		return err
	}

	log.Debug("recorded served item",
		slog.String("learner_id", learnerID.String()),
		slog.Int64("lesson_id", lessonID),
		slog.Int64("item_id", itemID))
	return nil
}

// ListServed implements store.UsageHistoryStore.ListServed
// It returns the item IDs in the order they were served.
func (s *PostgresUsageHistoryStore) ListServed(
	ctx context.Context,
	learnerID uuid.UUID,
	lessonID int64,
) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT item_id
		FROM usage_history
		WHERE learner_id = $1 AND lesson_id = $2
		ORDER BY served_at, item_id
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, lessonID)
	if err != nil {
		log.Error("failed to query usage history",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("lesson_id", lessonID))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Error("failed to scan usage history row", slog.String("error", err.Error()))
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return ids, nil
}

// ServedWords implements store.UsageHistoryStore.ServedWords
// It returns the canonical texts of the items the learner has already seen
// in the lesson, for vocabulary exclusion during generation.
func (s *PostgresUsageHistoryStore) ServedWords(
	ctx context.Context,
	learnerID uuid.UUID,
	lessonID int64,
) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ci.text
		FROM usage_history uh
		JOIN content_items ci ON ci.id = uh.item_id
		WHERE uh.learner_id = $1 AND uh.lesson_id = $2
		ORDER BY uh.served_at, uh.item_id
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, lessonID)
	if err != nil {
		log.Error("failed to query served words",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("lesson_id", lessonID))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	words := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			log.Error("failed to scan served word row", slog.String("error", err.Error()))
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return words, nil
}

// ClearLesson implements store.UsageHistoryStore.ClearLesson
// Clearing an empty history is a no-op.
func (s *PostgresUsageHistoryStore) ClearLesson(
	ctx context.Context,
	learnerID uuid.UUID,
	lessonID int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM usage_history
		WHERE learner_id = $1 AND lesson_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, learnerID, lessonID)
	if err != nil {
		log.Error("failed to clear lesson history",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.Int64("lesson_id", lessonID))
		return err
	}

	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected > 0 {
		log.Debug("cleared lesson history",
			slog.String("learner_id", learnerID.String()),
			slog.Int64("lesson_id", lessonID),
			slog.Int64("removed", rowsAffected))
	}
	return nil
}
