package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingualab/lingua-api/internal/events"
)

// PoolRefillEventHandler implements the events.EventHandler interface to
// turn pool refill request events into persisted, queued tasks.
type PoolRefillEventHandler struct {
	factory *PoolRefillTaskFactory
	runner  *TaskRunner
	logger  *slog.Logger
}

// NewPoolRefillEventHandler creates an event handler that uses the given
// factory to create refill tasks and submits them to the runner.
func NewPoolRefillEventHandler(
	factory *PoolRefillTaskFactory,
	runner *TaskRunner,
	logger *slog.Logger,
) *PoolRefillEventHandler {
	return &PoolRefillEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "pool_refill_event_handler"),
	}
}

// Ensure PoolRefillEventHandler implements events.EventHandler
var _ events.EventHandler = (*PoolRefillEventHandler)(nil)

// HandleEvent processes pool refill request events by creating and
// submitting tasks. Events of other types are ignored.
func (h *PoolRefillEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypePoolRefill {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload PoolRefillPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	t, err := h.factory.CreateTask(payload)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"category_id", payload.CategoryID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("pool refill task created and submitted",
		"task_id", t.ID(),
		"category_id", payload.CategoryID,
		"event_id", event.ID)
	return nil
}
