package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/store"
)

// PostgresSituationStore implements the store.SituationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSituationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSituationStore creates a new PostgreSQL implementation of the
// SituationStore interface. If logger is nil, a default logger will be used.
func NewPostgresSituationStore(db store.DBTX, logger *slog.Logger) *PostgresSituationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSituationStore{
		db:     db,
		logger: logger.With(slog.String("component", "situation_store")),
	}
}

// Ensure PostgresSituationStore implements store.SituationStore interface
var _ store.SituationStore = (*PostgresSituationStore)(nil)

// WithTx implements store.SituationStore.WithTx
func (s *PostgresSituationStore) WithTx(tx *sql.Tx) store.SituationStore {
	return &PostgresSituationStore{
		db:     tx,
		logger: s.logger,
	}
}

const situationColumns = `id, category_id, title, description, difficulty, free_chat, max_messages, used_count, last_used_at, created_at`

func scanSituation(row interface{ Scan(...any) error }) (*domain.Situation, error) {
	var sit domain.Situation
	var difficulty string
	err := row.Scan(
		&sit.ID,
		&sit.CategoryID,
		&sit.Title,
		&sit.Description,
		&difficulty,
		&sit.FreeChat,
		&sit.MaxMessages,
		&sit.UsedCount,
		&sit.LastUsedAt,
		&sit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sit.Difficulty = domain.Difficulty(difficulty)
	return &sit, nil
}

// FindSituations implements store.SituationStore.FindSituations
// An empty result is valid; the caller must trigger generation.
func (s *PostgresSituationStore) FindSituations(
	ctx context.Context,
	categoryID *int64,
) ([]*domain.Situation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + situationColumns + `
		FROM situations
		WHERE ($1::bigint IS NULL OR category_id = $1)
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		log.Error("failed to query situations", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	situations := []*domain.Situation{}
	for rows.Next() {
		sit, err := scanSituation(rows)
		if err != nil {
			log.Error("failed to scan situation row", slog.String("error", err.Error()))
			return nil, err
		}
		situations = append(situations, sit)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("found situations", slog.Int("count", len(situations)))
	return situations, nil
}

// GetSituation implements store.SituationStore.GetSituation
// Returns store.ErrSituationNotFound if the situation does not exist.
func (s *PostgresSituationStore) GetSituation(ctx context.Context, id int64) (*domain.Situation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + situationColumns + `
		FROM situations
		WHERE id = $1
	`

	sit, err := scanSituation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("situation not found", slog.Int64("situation_id", id))
			return nil, store.ErrSituationNotFound
		}
		log.Error("failed to get situation",
			slog.String("error", err.Error()),
			slog.Int64("situation_id", id))
		return nil, err
	}

	return sit, nil
}

// CreateSituation implements store.SituationStore.CreateSituation
// It saves a new situation and fills in its assigned ID.
func (s *PostgresSituationStore) CreateSituation(ctx context.Context, sit *domain.Situation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sit.Validate(); err != nil {
		log.Warn("situation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("title", sit.Title))
		return err
	}

	query := `
		INSERT INTO situations (category_id, title, description, difficulty, free_chat, max_messages, used_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		sit.CategoryID,
		sit.Title,
		sit.Description,
		sit.Difficulty,
		sit.FreeChat,
		sit.MaxMessages,
		sit.UsedCount,
		sit.LastUsedAt,
		sit.CreatedAt,
	).Scan(&sit.ID)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: category not found", store.ErrInvalidEntity)
		}
		log.Error("failed to create situation",
			slog.String("error", err.Error()),
			slog.String("title", sit.Title))
		return MapError(err)
	}

	log.Info("situation created",
		slog.Int64("situation_id", sit.ID),
		slog.String("title", sit.Title))
	return nil
}

// RecordUse implements store.SituationStore.RecordUse
// Returns store.ErrSituationNotFound if the situation does not exist.
func (s *PostgresSituationStore) RecordUse(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE situations
		SET used_count = used_count + 1, last_used_at = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to record situation use",
			slog.String("error", err.Error()),
			slog.Int64("situation_id", id))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrSituationNotFound); err != nil {
		log.Debug("situation not found for use recording", slog.Int64("situation_id", id))
		return err
	}

	log.Debug("recorded situation use", slog.Int64("situation_id", id))
	return nil
}

// ResetPoolIfExhausted implements store.SituationStore.ResetPoolIfExhausted
// The eligibility check and the reset run in a single guarded statement.
func (s *PostgresSituationStore) ResetPoolIfExhausted(
	ctx context.Context,
	categoryID *int64,
	threshold int,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE situations
		SET used_count = 0, last_used_at = NULL
		WHERE ($1::bigint IS NULL OR category_id = $1)
		  AND NOT EXISTS (
			SELECT 1 FROM situations
			WHERE ($1::bigint IS NULL OR category_id = $1)
			  AND used_count <= $2
		  )
	`

	result, err := s.db.ExecContext(ctx, query, categoryID, threshold)
	if err != nil {
		log.Error("failed to reset situation pool", slog.String("error", err.Error()))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Info("reset exhausted situation pool",
			slog.Int64("situations_reset", rowsAffected))
	}
	return rowsAffected > 0, nil
}
