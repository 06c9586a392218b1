package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/dispatcher"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/queue"
)

// Runtime hosts the worker transforms behind the queue. Delivery is
// at-least-once, so every path through HandleTask must be safe to repeat:
// already-terminal and reaped tasks are acked without execution, and
// result blobs are write-once.
type Runtime struct {
	tasks      dao.TaskJobDao
	dispatcher *dispatcher.Dispatcher
	workers    map[model.WorkerKind]Worker
	logger     *zap.Logger
}

func NewRuntime(tasks dao.TaskJobDao, disp *dispatcher.Dispatcher, logger *zap.Logger, workers ...Worker) *Runtime {
	byKind := make(map[model.WorkerKind]Worker, len(workers))
	for _, w := range workers {
		byKind[w.Kind()] = w
	}
	return &Runtime{
		tasks:      tasks,
		dispatcher: disp,
		workers:    byKind,
		logger:     logger,
	}
}

func (r *Runtime) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeTaskExecute, r.HandleTask)
}

func (r *Runtime) HandleTask(ctx context.Context, t *asynq.Task) error {
	var msg queue.TaskMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		r.logger.Error("malformed task message", zap.Error(err))
		return fmt.Errorf("malformed task message: %v: %w", err, asynq.SkipRetry)
	}

	task, err := r.tasks.GetByID(ctx, msg.TenantID, msg.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// reaped by retention while queued; ack and move on
			r.logger.Info("task gone, acking", zap.String("task_id", msg.TaskID))
			return nil
		}
		return err
	}
	if task.Status.Terminal() {
		// duplicate delivery
		r.logger.Info("task already terminal, acking",
			zap.String("task_id", task.ID), zap.String("status", string(task.Status)))
		return nil
	}

	if err := r.tasks.IncrementAttempts(ctx, task.TenantID, task.ID); err != nil {
		return err
	}
	task.Attempts++

	w, ok := r.workers[task.Worker]
	if !ok {
		r.logger.Error("unsupported worker kind",
			zap.String("task_id", task.ID), zap.String("worker", string(task.Worker)))
		return r.fail(ctx, task)
	}

	result, err := w.Execute(ctx, task)
	if err != nil {
		var execErr *ExecutionError
		canRetry := errors.As(err, &execErr) && execErr.Retryable

		if canRetry && task.Attempts < task.MaxAttempts {
			r.logger.Warn("task attempt failed, redelivering",
				zap.String("task_id", task.ID),
				zap.Int("attempt", task.Attempts),
				zap.Error(err))
			return err
		}

		r.logger.Error("task failed terminally",
			zap.String("task_id", task.ID),
			zap.Int("attempts", task.Attempts),
			zap.Error(err))
		if ferr := r.fail(ctx, task); ferr != nil {
			return ferr
		}
		if canRetry {
			// attempts exhausted; archive instead of redelivering
			return fmt.Errorf("attempts exhausted: %v: %w", err, asynq.SkipRetry)
		}
		return nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %v: %w", err, asynq.SkipRetry)
	}
	return r.dispatcher.OnTaskTerminal(ctx, task.TenantID, task.ID, model.StatusSuccess, string(raw))
}

func (r *Runtime) fail(ctx context.Context, task *model.TaskJob) error {
	return r.dispatcher.OnTaskTerminal(ctx, task.TenantID, task.ID, model.StatusFailed, "")
}
