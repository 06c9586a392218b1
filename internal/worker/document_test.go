package worker_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
	"github.com/systematicfunnels/smartX-v0.1/internal/worker"
)

func documentTask(payload string) *model.TaskJob {
	return &model.TaskJob{
		ID:          "task-doc",
		MasterJobID: "j-1",
		TenantID:    "t1",
		Worker:      model.WorkerDocument,
		Status:      model.StatusRunning,
		Payload:     payload,
		MaxAttempts: 3,
	}
}

func TestDocumentWorkerMetadata(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStore()
	completer := &fakeCompleter{
		response: `{"title":"Launch Plan","content":"# Launch Plan\n...","sections":[{"title":"Overview","content":"...","level":1}],"confidence":0.9}`,
	}
	w := worker.NewDocumentWorker(blobs, completer, worker.DefaultPrompts())

	require.NoError(t, blobs.Put(ctx, "meaning/t1/m-1.json", []byte(`{"summary":"launch"}`), "application/json"))

	result, err := w.Execute(ctx, documentTask(`{"meaningKey":"meaning/t1/m-1.json","documentType":"PRD"}`))
	require.NoError(t, err)
	assert.Equal(t, "documents/t1/j-1.json", result.OutputKey)
	assert.Equal(t, 1, result.PromptVersion)

	data, err := blobs.Get(ctx, result.OutputKey)
	require.NoError(t, err)
	var output worker.DocumentOutput
	require.NoError(t, json.Unmarshal(data, &output))
	assert.Equal(t, "Launch Plan", output.Metadata.Title)
	assert.Equal(t, "SmartX AI", output.Metadata.Author)
	assert.Equal(t, "PRD", output.Metadata.DocumentType)
	assert.Equal(t, "1.0", output.Metadata.Version)
	assert.NotEmpty(t, output.Metadata.CreatedAt)
}

func TestDocumentWorkerFallback(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStore()
	completer := &fakeCompleter{response: "sorry, no JSON from me"}
	w := worker.NewDocumentWorker(blobs, completer, worker.DefaultPrompts())

	require.NoError(t, blobs.Put(ctx, "meaning/t1/m-1.json", []byte(`{"summary":"launch"}`), "application/json"))

	result, err := w.Execute(ctx, documentTask(`{"meaningKey":"meaning/t1/m-1.json","documentType":"Report"}`))
	require.NoError(t, err)
	assert.Less(t, result.Confidence, 0.8)
	assert.NotEmpty(t, result.Warnings)

	data, err := blobs.Get(ctx, result.OutputKey)
	require.NoError(t, err)
	var output worker.DocumentOutput
	require.NoError(t, json.Unmarshal(data, &output))
	assert.Equal(t, "Report Document", output.Metadata.Title)
	assert.Equal(t, "Report", output.Metadata.DocumentType)
	require.NotEmpty(t, output.Sections)
	assert.Equal(t, "Introduction", output.Sections[0].Title)
	assert.Equal(t, "sorry, no JSON from me", output.Content)
}
