package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
)

// ExecutionError classifies a worker failure before it crosses back into
// the dispatcher: retryable (transient blob/completion trouble) or not
// (bad input, missing blob, unsupported worker).
type ExecutionError struct {
	Retryable bool
	Err       error
}

func (e *ExecutionError) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s worker error: %v", kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func retryable(err error) error {
	return &ExecutionError{Retryable: true, Err: err}
}

func nonRetryable(err error) error {
	return &ExecutionError{Retryable: false, Err: err}
}

// Result is the envelope written to the TaskJob row. The full typed output
// lives in the blob at OutputKey. PromptVersion traces the generation back
// to the template wording that produced it; zero means a caller-supplied
// prompt was used instead of a pack template.
type Result struct {
	OutputKey     string   `json:"outputKey"`
	Confidence    float64  `json:"confidence"`
	PromptVersion int      `json:"promptVersion,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Worker executes one task kind's transform. Pure with respect to the job
// store: it touches only the blob store and the completion service.
type Worker interface {
	Kind() model.WorkerKind
	Execute(ctx context.Context, task *model.TaskJob) (*Result, error)
}

// fetchBlob classifies blob-store reads: missing input is non-retryable,
// anything else is transient.
func fetchBlob(ctx context.Context, blobs storage.BlobStore, key string) ([]byte, error) {
	data, err := blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nonRetryable(fmt.Errorf("input blob %s missing", key))
		}
		return nil, retryable(err)
	}
	return data, nil
}

// putJSONOnce writes a result blob unless the key already exists; result
// keys are write-once so redeliveries never overwrite.
func putJSONOnce(ctx context.Context, blobs storage.BlobStore, key string, v any) error {
	exists, err := blobs.Exists(ctx, key)
	if err != nil {
		return retryable(err)
	}
	if exists {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nonRetryable(err)
	}
	if err := blobs.Put(ctx, key, raw, "application/json"); err != nil {
		return retryable(err)
	}
	return nil
}

// complete classifies completion-service calls; langchaingo failures are
// transient by definition here.
func complete(ctx context.Context, completer llm.Completer, prompt string, opts llm.Options) (string, error) {
	text, err := completer.Complete(ctx, prompt, opts)
	if err != nil {
		return "", retryable(err)
	}
	return text, nil
}
