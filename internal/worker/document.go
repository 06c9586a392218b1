package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
)

type documentPayload struct {
	MeaningKey   string `json:"meaningKey"`
	DocumentType string `json:"documentType"`
	Template     string `json:"template"`
}

type DocumentOutput struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Metadata   DocumentMetadata  `json:"metadata"`
	Sections   []DocumentSection `json:"sections"`
	Confidence float64           `json:"confidence"`
}

type DocumentMetadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	CreatedAt    string `json:"createdAt"`
	DocumentType string `json:"documentType"`
	Version      string `json:"version"`
}

type DocumentSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Level   int    `json:"level"`
}

var documentTemplates = map[string]string{
	"PRD": `# Product Requirements Document
## 1. Overview
## 2. Goals
## 3. Requirements
## 4. User Stories
## 5. Technical Specifications
## 6. Success Metrics`,
	"TechnicalSpec": `# Technical Specification
## 1. System Overview
## 2. API Specifications
## 3. Data Models
## 4. Infrastructure
## 5. Security Considerations`,
	"Report": `# Report
## 1. Summary
## 2. Findings
## 3. Recommendations
## 4. Next Steps`,
}

// DocumentWorker generates a structured document from a meaning artifact.
type DocumentWorker struct {
	blobs     storage.BlobStore
	completer llm.Completer
	prompts   *PromptPack
}

func NewDocumentWorker(blobs storage.BlobStore, completer llm.Completer, prompts *PromptPack) *DocumentWorker {
	return &DocumentWorker{blobs: blobs, completer: completer, prompts: prompts}
}

func (w *DocumentWorker) Kind() model.WorkerKind {
	return model.WorkerDocument
}

func (w *DocumentWorker) Execute(ctx context.Context, task *model.TaskJob) (*Result, error) {
	var in documentPayload
	if err := json.Unmarshal([]byte(task.Payload), &in); err != nil {
		return nil, nonRetryable(fmt.Errorf("document payload: %w", err))
	}

	meaning, err := fetchBlob(ctx, w.blobs, in.MeaningKey)
	if err != nil {
		return nil, err
	}

	template := in.Template
	if template == "" {
		template = documentTemplates[in.DocumentType]
	}
	if template == "" {
		template = documentTemplates["Report"]
	}

	prompt := w.prompts.Render(PromptDocument, map[string]string{
		"documentType": in.DocumentType,
		"meaning":      string(meaning),
		"template":     template,
	})
	response, err := complete(ctx, w.completer, prompt, llm.Options{Temperature: 0.2, MaxTokens: 2500})
	if err != nil {
		return nil, err
	}

	output, ok := parseOrFallback(response, fallbackDocument(in.DocumentType, response))
	var warnings []string
	if !ok {
		output.Confidence = fallbackConfidence
		warnings = append(warnings, malformedWarning)
	}

	title := output.Title
	if title == "" {
		title = in.DocumentType + " Document"
	}
	output.Metadata = DocumentMetadata{
		Title:        title,
		Author:       "SmartX AI",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		DocumentType: in.DocumentType,
		Version:      "1.0",
	}

	outputKey := fmt.Sprintf("documents/%s/%s.json", task.TenantID, task.MasterJobID)
	if err := putJSONOnce(ctx, w.blobs, outputKey, output); err != nil {
		return nil, err
	}

	return &Result{
		OutputKey:     outputKey,
		Confidence:    output.Confidence,
		PromptVersion: w.prompts.Version(PromptDocument),
		Warnings:      warnings,
	}, nil
}

func fallbackDocument(documentType, response string) DocumentOutput {
	return DocumentOutput{
		Title:   documentType + " Document",
		Content: response,
		Sections: []DocumentSection{{
			Title:   "Introduction",
			Content: "This document was generated as a fallback.",
			Level:   1,
		}},
		Confidence: fallbackConfidence,
	}
}
