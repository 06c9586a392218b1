package queue

import (
	"errors"
	"math"
	"time"

	"github.com/hibiken/asynq"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

// TypeTaskExecute is the single asynq task type; the queue name carries the
// worker kind.
const TypeTaskExecute = "task:execute"

// TaskMessage is the envelope put on the wire. The TaskJob row stays the
// source of truth; the message is only a pointer to it.
type TaskMessage struct {
	TaskID      string           `json:"task_id"`
	MasterJobID string           `json:"master_job_id"`
	TenantID    string           `json:"tenant_id"`
	Worker      model.WorkerKind `json:"worker"`
}

var workerQueues = map[model.WorkerKind]string{
	model.WorkerTranscribe: "transcribe",
	model.WorkerMeaning:    "meaning",
	model.WorkerDocument:   "document",
	model.WorkerCodegen:    "codegen",
}

var ErrUnknownWorker = errors.New("unknown worker kind")

func QueueFor(w model.WorkerKind) (string, error) {
	q, ok := workerQueues[w]
	if !ok {
		return "", ErrUnknownWorker
	}
	return q, nil
}

// Queues is the worker server's queue map, all equal priority (plain FIFO
// per queue).
func Queues() map[string]int {
	queues := make(map[string]int, len(workerQueues))
	for _, q := range workerQueues {
		queues[q] = 1
	}
	return queues
}

const (
	retryBaseDelay = 5 * time.Second
	retryMaxDelay  = 10 * time.Minute
)

// RetryDelay is the broker backoff: base * 2^n, capped.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	d := time.Duration(float64(retryBaseDelay) * math.Pow(2, float64(n)))
	if d > retryMaxDelay || d < 0 {
		return retryMaxDelay
	}
	return d
}
