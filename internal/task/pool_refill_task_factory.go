package task

import (
	"log/slog"
)

// PoolRefillTaskFactory creates PoolRefillTask instances with their
// dependencies injected, so event handlers only need a payload.
type PoolRefillTaskFactory struct {
	refiller PoolRefiller
	logger   *slog.Logger
}

// NewPoolRefillTaskFactory creates a new factory for pool refill tasks.
func NewPoolRefillTaskFactory(
	refiller PoolRefiller,
	logger *slog.Logger,
) *PoolRefillTaskFactory {
	return &PoolRefillTaskFactory{
		refiller: refiller,
		logger:   logger,
	}
}

// CreateTask builds a new PoolRefillTask for the given payload.
func (f *PoolRefillTaskFactory) CreateTask(payload PoolRefillPayload) (*PoolRefillTask, error) {
	return NewPoolRefillTask(payload, f.refiller, f.logger)
}
