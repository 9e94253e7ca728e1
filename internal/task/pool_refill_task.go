package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
)

// Common errors
var (
	ErrNilRefiller   = errors.New("pool refiller cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyCategory = errors.New("category ID cannot be zero")
	ErrInvalidCount  = errors.New("refill count must be positive")
)

// PoolRefiller generates new content items into a pool. Implemented by the
// content service so the task package stays free of generation details.
type PoolRefiller interface {
	// RefillPool generates up to count new items for the pool and reports
	// how many were actually created.
	RefillPool(ctx context.Context, categoryID int64, lessonID *int64, kind domain.ContentKind, count int) (int, error)
}

// PoolRefillPayload is the serialized data stored with a refill task.
type PoolRefillPayload struct {
	CategoryID int64  `json:"category_id"`
	LessonID   *int64 `json:"lesson_id,omitempty"`
	Kind       string `json:"kind"`
	Count      int    `json:"count"`
}

// PoolRefillTask implements the Task interface for replenishing a content
// pool with freshly generated items.
type PoolRefillTask struct {
	id       uuid.UUID
	payload  PoolRefillPayload
	refiller PoolRefiller
	logger   *slog.Logger
	status   TaskStatus
}

// NewPoolRefillTask creates a new pool refill task.
func NewPoolRefillTask(
	payload PoolRefillPayload,
	refiller PoolRefiller,
	logger *slog.Logger,
) (*PoolRefillTask, error) {
	if refiller == nil {
		return nil, ErrNilRefiller
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if payload.CategoryID == 0 {
		return nil, ErrEmptyCategory
	}
	if payload.Count <= 0 {
		return nil, ErrInvalidCount
	}

	return &PoolRefillTask{
		id:       uuid.New(),
		payload:  payload,
		refiller: refiller,
		logger: logger.With(
			"task_type", TaskTypePoolRefill,
			"category_id", payload.CategoryID,
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *PoolRefillTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *PoolRefillTask) Type() string {
	return TaskTypePoolRefill
}

// Payload returns the task data as a byte slice
func (t *PoolRefillTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *PoolRefillTask) Status() TaskStatus {
	return t.status
}

// Execute generates new items into the pool. Partial success is still
// success: any items that made it into the pool shrink the next refill.
func (t *PoolRefillTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting pool refill task", "count", t.payload.Count)

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	created, err := t.refiller.RefillPool(
		ctx,
		t.payload.CategoryID,
		t.payload.LessonID,
		domain.ContentKind(t.payload.Kind),
		t.payload.Count,
	)
	if err != nil {
		if created > 0 {
			t.logger.Warn("pool refill partially succeeded",
				"created", created,
				"requested", t.payload.Count,
				"error", err)
			t.status = TaskStatusCompleted
			return nil
		}
		t.status = TaskStatusFailed
		t.logger.Error("pool refill failed", "error", err)
		return fmt.Errorf("failed to refill pool: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("pool refill task completed", "created", created)
	return nil
}
