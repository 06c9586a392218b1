package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
)

type transcribePayload struct {
	FileKey   string `json:"fileKey"`
	MeetingID string `json:"meetingId"`
	Language  string `json:"language"`
}

type TranscriptOutput struct {
	Text       string              `json:"text"`
	Language   string              `json:"language"`
	Segments   []TranscriptSegment `json:"segments"`
	Confidence float64             `json:"confidence"`
}

type TranscriptSegment struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
}

// TranscribeWorker turns an uploaded audio blob into a transcript via the
// completion service.
type TranscribeWorker struct {
	blobs     storage.BlobStore
	completer llm.Completer
	prompts   *PromptPack
}

func NewTranscribeWorker(blobs storage.BlobStore, completer llm.Completer, prompts *PromptPack) *TranscribeWorker {
	return &TranscribeWorker{blobs: blobs, completer: completer, prompts: prompts}
}

func (w *TranscribeWorker) Kind() model.WorkerKind {
	return model.WorkerTranscribe
}

func (w *TranscribeWorker) Execute(ctx context.Context, task *model.TaskJob) (*Result, error) {
	var in transcribePayload
	if err := json.Unmarshal([]byte(task.Payload), &in); err != nil {
		return nil, nonRetryable(fmt.Errorf("transcribe payload: %w", err))
	}
	if in.Language == "" {
		in.Language = "en"
	}

	audio, err := fetchBlob(ctx, w.blobs, in.FileKey)
	if err != nil {
		return nil, err
	}

	prompt := w.prompts.Render(PromptTranscribe, map[string]string{
		"audioBytes": strconv.Itoa(len(audio)),
		"language":   in.Language,
	})
	raw, err := complete(ctx, w.completer, prompt, llm.Options{Temperature: 0.3, MaxTokens: 1500})
	if err != nil {
		return nil, err
	}

	output, ok := parseOrFallback(raw, TranscriptOutput{
		Text:       raw,
		Language:   in.Language,
		Confidence: fallbackConfidence,
	})
	var warnings []string
	if !ok {
		output.Confidence = fallbackConfidence
		warnings = append(warnings, malformedWarning)
	}

	outputKey := fmt.Sprintf("transcripts/%s/%s.json", task.TenantID, in.MeetingID)
	if err := putJSONOnce(ctx, w.blobs, outputKey, output); err != nil {
		return nil, err
	}

	return &Result{
		OutputKey:     outputKey,
		Confidence:    output.Confidence,
		PromptVersion: w.prompts.Version(PromptTranscribe),
		Warnings:      warnings,
	}, nil
}
