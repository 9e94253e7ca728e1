package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingualab/lingua-api/internal/api"
	"github.com/lingualab/lingua-api/internal/config"
	"github.com/lingualab/lingua-api/internal/events"
	"github.com/lingualab/lingua-api/internal/platform/gemini"
	"github.com/lingualab/lingua-api/internal/platform/pexels"
	"github.com/lingualab/lingua-api/internal/platform/postgres"
	"github.com/lingualab/lingua-api/internal/service"
	"github.com/lingualab/lingua-api/internal/session"
	"github.com/lingualab/lingua-api/internal/task"
)

// application bundles the wired components of the running server so that
// startup and shutdown share one view of the world.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	contentHandler  *api.ContentHandler
	progressHandler *api.ProgressHandler

	taskRunner *task.TaskRunner
}

// newApplication wires stores, services, handlers and the background task
// runner. Dependency construction is ordered so that anything the task
// hydrator needs exists before the runner's recovery pass.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	contentStore := postgres.NewPostgresContentStore(db, logger)
	situationStore := postgres.NewPostgresSituationStore(db, logger)
	attemptStore := postgres.NewPostgresAttemptStore(db, logger)
	historyStore := postgres.NewPostgresUsageHistoryStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db)

	generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create content generator: %w", err)
	}

	images := pexels.NewClient(cfg.Image, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	scopes := session.NewRegistry()

	contentService, err := service.NewContentService(
		db,
		contentStore,
		situationStore,
		historyStore,
		generator,
		images,
		emitter,
		scopes,
		cfg.Task.MinPoolSize,
		cfg.Task.RefillBatchSize,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content service: %w", err)
	}

	progressService, err := service.NewProgressService(db, contentStore, attemptStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress service: %w", err)
	}

	runner, err := setupTaskRunner(cfg, logger, taskStore, contentService, emitter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up task runner: %w", err)
	}

	return &application{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		contentHandler:  api.NewContentHandler(contentService, logger),
		progressHandler: api.NewProgressHandler(progressService, logger),
		taskRunner:      runner,
	}, nil
}

// setupTaskRunner builds the background runner, registers the pool refill
// event handler with the emitter, and installs the hydrator that rebinds
// execution logic onto tasks recovered from the database after a restart.
func setupTaskRunner(
	cfg *config.Config,
	logger *slog.Logger,
	taskStore *postgres.PostgresTaskStore,
	refiller task.PoolRefiller,
	emitter *events.InMemoryEventEmitter,
) (*task.TaskRunner, error) {
	factory := task.NewPoolRefillTaskFactory(refiller, logger)

	taskStore.SetHydrator(func(taskType string, payload []byte) (func(ctx context.Context) error, error) {
		if taskType != task.TaskTypePoolRefill {
			return nil, fmt.Errorf("unknown task type: %s", taskType)
		}
		var p task.PoolRefillPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode pool refill payload: %w", err)
		}
		t, err := factory.CreateTask(p)
		if err != nil {
			return nil, err
		}
		return t.Execute, nil
	})

	runnerConfig := task.DefaultTaskRunnerConfig()
	if cfg.Task.WorkerCount > 0 {
		runnerConfig.WorkerCount = cfg.Task.WorkerCount
	}
	if cfg.Task.QueueSize > 0 {
		runnerConfig.QueueSize = cfg.Task.QueueSize
	}
	if cfg.Task.StuckTaskAgeMinutes > 0 {
		runnerConfig.StuckTaskAge = time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute
	}

	runner := task.NewTaskRunner(taskStore, runnerConfig, logger)

	handler := task.NewPoolRefillEventHandler(factory, runner, logger)
	emitter.RegisterHandler(handler)

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	return runner, nil
}

// cleanup releases resources on shutdown. Safe to call once.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection",
				slog.String("error", err.Error()))
		}
	}
}

// Run starts the HTTP server and blocks until shutdown completes.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	return app.startHTTPServer(ctx, app.setupRouter())
}
