package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/recipe"
	"backoffice/pkg/logger"
)

// CostPropagator runs recipe propagation for one material.
// Satisfied by *inventory.Service.
type CostPropagator interface {
	PropagateCostChange(ctx context.Context, materialID id.ID) (recipe.Result, error)
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpt    asynq.RedisConnOpt
	Concurrency int
	Propagator  CostPropagator

	// BaseContext seeds every task context, typically with the process logger.
	BaseContext func() context.Context
}

// Worker wraps the asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker constructs a Worker with the propagation handler registered.
func NewWorker(cfg WorkerConfig) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(cfg.RedisOpt, asynq.Config{
		Concurrency: concurrency,
		BaseContext: cfg.BaseContext,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error(ctx, "task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPropagateCost, HandlePropagateCost(cfg.Propagator))

	return &Worker{server: srv, mux: mux}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// HandlePropagateCost returns the handler for TaskPropagateCost.
// Malformed payloads and unknown materials are not retried.
func HandlePropagateCost(p CostPropagator) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		ctx = appctx.WithTrace(ctx, appctx.NewTrace(ctx, taskID, ""))
		ctx = appctx.WithOperation(ctx, t.Type())

		payload, err := ParsePropagateCostPayload(t.Payload())
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		res, err := p.PropagateCostChange(ctx, payload.MaterialID)
		if err != nil {
			if apperror.IsNotFound(err) {
				logger.Warn(ctx, "propagation skipped for unknown material", "material_id", payload.MaterialID)
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			return err
		}

		logger.Info(ctx, "cost propagated",
			"material_id", payload.MaterialID,
			"recipes", res.UpdatedRecipes,
			"ingredients", res.UpdatedIngredients,
		)
		return nil
	}
}

// IsSkipRetry reports whether err tells asynq not to retry.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
