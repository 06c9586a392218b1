package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
)

type meaningPayload struct {
	TranscriptKey  string `json:"transcriptKey"`
	MeetingID      string `json:"meetingId"`
	PromptTemplate string `json:"promptTemplate"`
}

type MeaningOutput struct {
	Goals        []string `json:"goals"`
	Requirements []string `json:"requirements"`
	ActionItems  []string `json:"actionItems"`
	Decisions    []string `json:"decisions"`
	KeyPoints    []string `json:"keyPoints"`
	Summary      string   `json:"summary"`
	Confidence   float64  `json:"confidence"`
}

// MeaningWorker extracts structured meaning from a transcript produced by
// the transcribe task.
type MeaningWorker struct {
	blobs     storage.BlobStore
	completer llm.Completer
	prompts   *PromptPack
}

func NewMeaningWorker(blobs storage.BlobStore, completer llm.Completer, prompts *PromptPack) *MeaningWorker {
	return &MeaningWorker{blobs: blobs, completer: completer, prompts: prompts}
}

func (w *MeaningWorker) Kind() model.WorkerKind {
	return model.WorkerMeaning
}

func (w *MeaningWorker) Execute(ctx context.Context, task *model.TaskJob) (*Result, error) {
	var in meaningPayload
	if err := json.Unmarshal([]byte(task.Payload), &in); err != nil {
		return nil, nonRetryable(fmt.Errorf("meaning payload: %w", err))
	}

	raw, err := fetchBlob(ctx, w.blobs, in.TranscriptKey)
	if err != nil {
		return nil, err
	}
	var transcript TranscriptOutput
	if err := json.Unmarshal(raw, &transcript); err != nil {
		return nil, nonRetryable(fmt.Errorf("transcript blob %s corrupt: %w", in.TranscriptKey, err))
	}

	prompt := in.PromptTemplate
	promptVersion := 0
	if prompt == "" {
		prompt = w.prompts.Render(PromptMeaning, map[string]string{
			"transcript": transcript.Text,
		})
		promptVersion = w.prompts.Version(PromptMeaning)
	}
	response, err := complete(ctx, w.completer, prompt, llm.Options{Temperature: 0.3, MaxTokens: 1500})
	if err != nil {
		return nil, err
	}

	output, ok := parseOrFallback(response, fallbackMeaning())
	var warnings []string
	if !ok {
		output.Confidence = fallbackConfidence
		warnings = append(warnings, malformedWarning)
	}

	outputKey := fmt.Sprintf("meaning/%s/%s.json", task.TenantID, in.MeetingID)
	if err := putJSONOnce(ctx, w.blobs, outputKey, output); err != nil {
		return nil, err
	}

	return &Result{
		OutputKey:     outputKey,
		Confidence:    output.Confidence,
		PromptVersion: promptVersion,
		Warnings:      warnings,
	}, nil
}

func fallbackMeaning() MeaningOutput {
	return MeaningOutput{
		Goals:        []string{"Improve team collaboration", "Increase productivity"},
		Requirements: []string{"Weekly status updates", "Clear documentation"},
		ActionItems:  []string{"Schedule follow-up meeting", "Create project plan"},
		Decisions:    []string{"Adopt new workflow"},
		KeyPoints:    []string{"Team needs better communication", "Current process is inefficient"},
		Summary:      "The meeting discussed collaboration and productivity improvements.",
		Confidence:   fallbackConfidence,
	}
}
