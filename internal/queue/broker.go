package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

// Broker is the dispatcher's side of the queue contract: durable,
// at-least-once, deduplicated on task ID so re-enqueueing an already-queued
// task is a no-op.
type Broker interface {
	Enqueue(ctx context.Context, task *model.TaskJob) error
	Close() error
}

type asynqBroker struct {
	client *asynq.Client
}

func NewAsynqBroker(redisAddr, redisPassword string) Broker {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
	})
	return &asynqBroker{client: client}
}

func (b *asynqBroker) Enqueue(ctx context.Context, task *model.TaskJob) error {
	queueName, err := QueueFor(task.Worker)
	if err != nil {
		return err
	}

	msg := TaskMessage{
		TaskID:      task.ID,
		MasterJobID: task.MasterJobID,
		TenantID:    task.TenantID,
		Worker:      task.Worker,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	maxRetry := task.MaxAttempts - 1
	if maxRetry < 0 {
		maxRetry = 0
	}

	_, err = b.client.EnqueueContext(ctx,
		asynq.NewTask(TypeTaskExecute, payload),
		asynq.Queue(queueName),
		asynq.TaskID(task.ID),
		asynq.MaxRetry(maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// already enqueued by a concurrent advance
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

func (b *asynqBroker) Close() error {
	return b.client.Close()
}
