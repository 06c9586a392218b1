package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
)

type codegenPayload struct {
	DocumentKey    string   `json:"documentKey"`
	TargetLanguage string   `json:"targetLanguage"`
	Framework      string   `json:"framework"`
	Requirements   []string `json:"requirements"`
}

type CodegenOutput struct {
	Files      []CodegenFile `json:"files"`
	Structure  string        `json:"structure"`
	Summary    string        `json:"summary"`
	Confidence float64       `json:"confidence"`
}

type CodegenFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// CodegenWorker generates source files from a document artifact.
type CodegenWorker struct {
	blobs     storage.BlobStore
	completer llm.Completer
	prompts   *PromptPack
}

func NewCodegenWorker(blobs storage.BlobStore, completer llm.Completer, prompts *PromptPack) *CodegenWorker {
	return &CodegenWorker{blobs: blobs, completer: completer, prompts: prompts}
}

func (w *CodegenWorker) Kind() model.WorkerKind {
	return model.WorkerCodegen
}

func (w *CodegenWorker) Execute(ctx context.Context, task *model.TaskJob) (*Result, error) {
	var in codegenPayload
	if err := json.Unmarshal([]byte(task.Payload), &in); err != nil {
		return nil, nonRetryable(fmt.Errorf("codegen payload: %w", err))
	}

	document, err := fetchBlob(ctx, w.blobs, in.DocumentKey)
	if err != nil {
		return nil, err
	}

	framework := in.Framework
	if framework == "" {
		framework = "none specified"
	}
	requirements := "- no specific requirements"
	if len(in.Requirements) > 0 {
		requirements = "- " + strings.Join(in.Requirements, "\n- ")
	}

	prompt := w.prompts.Render(PromptCodegen, map[string]string{
		"document":       string(document),
		"targetLanguage": in.TargetLanguage,
		"framework":      framework,
		"requirements":   requirements,
	})
	response, err := complete(ctx, w.completer, prompt, llm.Options{Temperature: 0.3, MaxTokens: 3000})
	if err != nil {
		return nil, err
	}

	output, ok := parseOrFallback(response, CodegenOutput{
		Files: []CodegenFile{{
			Path:     "README.md",
			Content:  response,
			Language: "markdown",
		}},
		Structure:  "README.md",
		Summary:    "generation could not be parsed into files",
		Confidence: fallbackConfidence,
	})
	var warnings []string
	if !ok {
		output.Confidence = fallbackConfidence
		warnings = append(warnings, malformedWarning)
	}

	outputKey := fmt.Sprintf("codegen/%s/%s.json", task.TenantID, task.MasterJobID)
	if err := putJSONOnce(ctx, w.blobs, outputKey, output); err != nil {
		return nil, err
	}

	return &Result{
		OutputKey:     outputKey,
		Confidence:    output.Confidence,
		PromptVersion: w.prompts.Version(PromptCodegen),
		Warnings:      warnings,
	}, nil
}
