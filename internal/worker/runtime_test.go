package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/dispatcher"
	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/pipeline"
	"github.com/systematicfunnels/smartX-v0.1/internal/queue"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
	"github.com/systematicfunnels/smartX-v0.1/internal/worker"
)

type fakeBroker struct {
	enqueued []string
}

func (b *fakeBroker) Enqueue(ctx context.Context, task *model.TaskJob) error {
	b.enqueued = append(b.enqueued, task.ID)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type runtimeFixture struct {
	runtime   *worker.Runtime
	masters   dao.MasterJobDao
	tasks     dao.TaskJobDao
	blobs     *storage.MemoryStore
	completer *fakeCompleter
}

func setupRuntime(t *testing.T) *runtimeFixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, dao.AutoMigrate(db))

	masters := dao.NewMasterJobDao(db)
	tasks := dao.NewTaskJobDao(db)
	disp := dispatcher.New(masters, tasks, pipeline.NewRegistry(), &fakeBroker{}, zap.NewNop())

	blobs := storage.NewMemoryStore()
	completer := &fakeCompleter{}
	prompts := worker.DefaultPrompts()

	runtime := worker.NewRuntime(tasks, disp, zap.NewNop(),
		worker.NewTranscribeWorker(blobs, completer, prompts),
		worker.NewMeaningWorker(blobs, completer, prompts),
		worker.NewDocumentWorker(blobs, completer, prompts),
		worker.NewCodegenWorker(blobs, completer, prompts),
	)
	return &runtimeFixture{
		runtime:   runtime,
		masters:   masters,
		tasks:     tasks,
		blobs:     blobs,
		completer: completer,
	}
}

// seedTranscribeTask creates a RUNNING master with one dispatched transcribe
// task, as the dispatcher would leave them after an enqueue.
func (f *runtimeFixture) seedTranscribeTask(t *testing.T, maxAttempts int) *model.TaskJob {
	ctx := context.Background()
	master := &model.MasterJob{
		TenantID:  "t1",
		ProjectID: "p1",
		Type:      model.MeetingPipeline,
		Status:    model.StatusRunning,
	}
	require.NoError(t, f.masters.Create(ctx, master))

	task := &model.TaskJob{
		MasterJobID: master.ID,
		TenantID:    "t1",
		Worker:      model.WorkerTranscribe,
		Status:      model.StatusRunning,
		Payload:     `{"fileKey":"uploads/t1/audio.mp3","meetingId":"m-1"}`,
		MaxAttempts: maxAttempts,
	}
	require.NoError(t, f.tasks.CreateBatch(ctx, []*model.TaskJob{task}))
	return task
}

func deliver(t *testing.T, f *runtimeFixture, task *model.TaskJob) error {
	msg := queue.TaskMessage{
		TaskID:      task.ID,
		MasterJobID: task.MasterJobID,
		TenantID:    task.TenantID,
		Worker:      task.Worker,
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return f.runtime.HandleTask(context.Background(), asynq.NewTask(queue.TypeTaskExecute, payload))
}

func TestHandleTaskSuccess(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	f.completer.response = `{"text":"hello world","language":"en","segments":[],"confidence":0.95}`

	require.NoError(t, deliver(t, f, task))

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Equal(t, 1, got.Attempts)

	var result worker.Result
	require.NoError(t, json.Unmarshal([]byte(got.Result), &result))
	assert.Equal(t, "transcripts/t1/m-1.json", result.OutputKey)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, 1, result.PromptVersion)
	assert.Empty(t, result.Warnings)

	data, err := f.blobs.Get(ctx, result.OutputKey)
	require.NoError(t, err)
	var output worker.TranscriptOutput
	require.NoError(t, json.Unmarshal(data, &output))
	assert.Equal(t, "hello world", output.Text)

	master, err := f.masters.GetByID(ctx, "t1", task.MasterJobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, master.Status)
}

func TestHandleTaskMalformedCompletion(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	f.completer.response = "I am unable to produce JSON today."

	// a malformed generation degrades the result, it does not fail the task
	require.NoError(t, deliver(t, f, task))

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, got.Status)

	var result worker.Result
	require.NoError(t, json.Unmarshal([]byte(got.Result), &result))
	assert.Less(t, result.Confidence, 0.8)
	assert.NotEmpty(t, result.Warnings)
}

func TestHandleTaskMissingInputBlob(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	// no audio blob uploaded; non-retryable, acked after marking FAILED
	require.NoError(t, deliver(t, f, task))

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)

	master, err := f.masters.GetByID(ctx, "t1", task.MasterJobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, master.Status)
}

func TestHandleTaskDuplicateDelivery(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	f.completer.response = `{"text":"hello","language":"en","segments":[],"confidence":0.9}`

	require.NoError(t, deliver(t, f, task))
	require.NoError(t, deliver(t, f, task))

	// the second delivery was acked without re-executing
	assert.Equal(t, 1, f.completer.calls)

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
}

func TestHandleTaskRetryableFailure(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	f.completer.err = errors.New("provider timeout")

	// attempts remain, so the error propagates for redelivery
	err := deliver(t, f, task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestHandleTaskAttemptsExhausted(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 1)

	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	f.completer.err = errors.New("provider timeout")

	err := deliver(t, f, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	got, err := f.tasks.GetByID(ctx, "t1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestHandleTaskGoneTask(t *testing.T) {
	f := setupRuntime(t)
	task := &model.TaskJob{
		ID:          "no-such-task",
		MasterJobID: "no-such-job",
		TenantID:    "t1",
		Worker:      model.WorkerTranscribe,
	}

	// reaped while queued; acked
	require.NoError(t, deliver(t, f, task))
}

func TestHandleTaskMalformedMessage(t *testing.T) {
	f := setupRuntime(t)

	err := f.runtime.HandleTask(context.Background(), asynq.NewTask(queue.TypeTaskExecute, []byte("not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestResultBlobWriteOnce(t *testing.T) {
	f := setupRuntime(t)
	ctx := context.Background()
	task := f.seedTranscribeTask(t, 3)

	// a prior delivery already wrote the result blob
	require.NoError(t, f.blobs.Put(ctx, "uploads/t1/audio.mp3", []byte("audio"), "audio/mpeg"))
	require.NoError(t, f.blobs.Put(ctx, "transcripts/t1/m-1.json",
		[]byte(`{"text":"original","language":"en","confidence":0.9}`), "application/json"))
	f.completer.response = `{"text":"different","language":"en","segments":[],"confidence":0.9}`

	require.NoError(t, deliver(t, f, task))

	data, err := f.blobs.Get(ctx, "transcripts/t1/m-1.json")
	require.NoError(t, err)
	var output worker.TranscriptOutput
	require.NoError(t, json.Unmarshal(data, &output))
	assert.Equal(t, "original", output.Text)
}
