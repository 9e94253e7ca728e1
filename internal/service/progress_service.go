package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/grading"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/store"
)

// RecordAttemptRequest submits a learner's answer for grading and recording.
type RecordAttemptRequest struct {
	LearnerID uuid.UUID
	ItemID    int64
	Language  string
	Answer    string
}

// ProgressService records graded attempt outcomes, enforces the per-pool
// retention cap and pin exclusivity, and serves the mistake review queue.
type ProgressService struct {
	db       *sql.DB
	content  store.ContentStore
	attempts store.AttemptStore
	logger   *slog.Logger
}

// NewProgressService creates a ProgressService.
// Returns an error if any required dependency is nil.
func NewProgressService(
	db *sql.DB,
	content store.ContentStore,
	attempts store.AttemptStore,
	logger *slog.Logger,
) (*ProgressService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if content == nil {
		return nil, errors.New("content store cannot be nil")
	}
	if attempts == nil {
		return nil, errors.New("attempt store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ProgressService{
		db:       db,
		content:  content,
		attempts: attempts,
		logger:   logger.With(slog.String("component", "progress_service")),
	}, nil
}

// RecordAttempt grades the answer against the item's translation in the
// learner's language and persists the result. Insertion and the retention
// cap run in one transaction: results that age out of the newest-cap window
// are evicted, except pinned ones, which are kept indefinitely.
func (s *ProgressService) RecordAttempt(ctx context.Context, req RecordAttemptRequest) (*domain.AttemptResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	item, err := s.content.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, s.wrapStoreErr("record_attempt", "failed to load item", err)
	}

	tr, err := s.content.GetTranslation(ctx, req.ItemID, req.Language)
	if err != nil {
		return nil, s.wrapStoreErr("record_attempt", "failed to load translation", err)
	}

	graded := grading.Grade(tr.Text, req.Answer, req.Language)

	result, err := domain.NewAttemptResult(
		req.LearnerID, req.ItemID, item.CategoryID,
		req.Answer, graded.Correct, graded.Feedback,
	)
	if err != nil {
		return nil, NewServiceError("progress", "record_attempt", "invalid attempt result", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txAttempts := s.attempts.WithTx(tx)
		if err := txAttempts.CreateAttempt(ctx, result); err != nil {
			return err
		}
		_, err := txAttempts.EvictOldestUnpinned(
			ctx, req.LearnerID, item.CategoryID, domain.MaxAttemptsPerPool,
		)
		return err
	})
	if err != nil {
		return nil, s.wrapStoreErr("record_attempt", "failed to persist attempt", err)
	}

	log.Info("attempt recorded",
		slog.String("learner_id", req.LearnerID.String()),
		slog.Int64("item_id", req.ItemID),
		slog.Bool("correct", graded.Correct))
	return result, nil
}

// PinResult pins the attempt result for the learner, unpinning every other
// result for the same (learner, item) in the same transaction so at most
// one pinned result per item holds at any time.
func (s *ProgressService) PinResult(ctx context.Context, learnerID uuid.UUID, attemptID int64) error {
	result, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return s.wrapStoreErr("pin_result", "failed to load attempt", err)
	}
	if result.LearnerID != learnerID {
		return fmt.Errorf("%w: attempt %d", ErrNotOwned, attemptID)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txAttempts := s.attempts.WithTx(tx)
		if err := txAttempts.UnpinAllForItem(ctx, learnerID, result.ItemID); err != nil {
			return err
		}
		return txAttempts.SetPinned(ctx, attemptID, true)
	})
	if err != nil {
		return s.wrapStoreErr("pin_result", "failed to pin attempt", err)
	}
	return nil
}

// UnpinResult clears the pin flag on the attempt result. No cascading
// effect; other results keep their state.
func (s *ProgressService) UnpinResult(ctx context.Context, learnerID uuid.UUID, attemptID int64) error {
	result, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return s.wrapStoreErr("unpin_result", "failed to load attempt", err)
	}
	if result.LearnerID != learnerID {
		return fmt.Errorf("%w: attempt %d", ErrNotOwned, attemptID)
	}

	if err := s.attempts.SetPinned(ctx, attemptID, false); err != nil {
		return s.wrapStoreErr("unpin_result", "failed to unpin attempt", err)
	}
	return nil
}

// MistakesFor returns the learner's incorrect attempts for the category in
// insertion order, oldest first, for the review queue.
func (s *ProgressService) MistakesFor(
	ctx context.Context,
	learnerID uuid.UUID,
	categoryID int64,
) ([]*domain.AttemptResult, error) {
	mistakes, err := s.attempts.ListMistakes(ctx, learnerID, categoryID)
	if err != nil {
		return nil, s.wrapStoreErr("mistakes_for", "failed to list mistakes", err)
	}
	return mistakes, nil
}

func (s *ProgressService) wrapStoreErr(operation, message string, err error) error {
	if store.IsNotFoundError(err) || store.IsDuplicateError(err) {
		return err
	}
	return NewServiceError("progress", operation, message,
		fmt.Errorf("%w: %v", ErrPersistenceFailed, err))
}
