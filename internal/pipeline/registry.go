package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

var ErrUnknownPipelineType = errors.New("unknown pipeline type")

// OutputRefScheme marks a payload value as a symbolic reference to an
// upstream task's output blob key. Definitions emit index-based references
// ("task-output://#1"); the dispatcher rewrites them to task IDs when the
// graph is materialized and substitutes the real key once the upstream task
// has succeeded.
const OutputRefScheme = "task-output://"

func OutputRef(index int) string {
	return fmt.Sprintf("%s#%d", OutputRefScheme, index)
}

// TaskSpec is one node of a pipeline template. DependsOn holds indices into
// the definition's task list.
type TaskSpec struct {
	Worker    model.WorkerKind
	Payload   map[string]any
	DependsOn []int
}

// Definition expands a master-job payload into the task graph. Pure: no I/O.
type Definition func(payload json.RawMessage) ([]TaskSpec, error)

type Registry struct {
	defs map[model.JobType]Definition
}

// NewRegistry returns a registry with the three built-in pipelines.
func NewRegistry() *Registry {
	return &Registry{defs: map[model.JobType]Definition{
		model.MeetingPipeline:  meetingDefinition,
		model.DocumentPipeline: documentDefinition,
		model.CodePipeline:     codeDefinition,
	}}
}

func (r *Registry) DefinitionFor(t model.JobType) (Definition, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipelineType, t)
	}
	return def, nil
}

type MeetingInput struct {
	AudioFileKey   string `json:"audioFileKey"`
	MeetingID      string `json:"meetingId"`
	Language       string `json:"language,omitempty"`
	PromptTemplate string `json:"promptTemplate,omitempty"`
}

type DocumentInput struct {
	MeaningKey   string `json:"meaningKey"`
	DocumentType string `json:"documentType"`
	Template     string `json:"template,omitempty"`
}

type CodeInput struct {
	DocumentKey    string   `json:"documentKey"`
	TargetLanguage string   `json:"targetLanguage"`
	Framework      string   `json:"framework,omitempty"`
	Requirements   []string `json:"requirements,omitempty"`
}

func meetingDefinition(payload json.RawMessage) ([]TaskSpec, error) {
	var in MeetingInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("meeting pipeline payload: %w", err)
	}
	if in.AudioFileKey == "" || in.MeetingID == "" {
		return nil, errors.New("meeting pipeline payload: audioFileKey and meetingId are required")
	}

	return []TaskSpec{
		{
			Worker: model.WorkerTranscribe,
			Payload: map[string]any{
				"fileKey":   in.AudioFileKey,
				"meetingId": in.MeetingID,
				"language":  in.Language,
			},
		},
		{
			Worker: model.WorkerMeaning,
			Payload: map[string]any{
				"transcriptKey":  OutputRef(0),
				"meetingId":      in.MeetingID,
				"promptTemplate": in.PromptTemplate,
			},
			DependsOn: []int{0},
		},
	}, nil
}

func documentDefinition(payload json.RawMessage) ([]TaskSpec, error) {
	var in DocumentInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("document pipeline payload: %w", err)
	}
	if in.MeaningKey == "" {
		return nil, errors.New("document pipeline payload: meaningKey is required")
	}
	if in.DocumentType == "" {
		in.DocumentType = "Report"
	}

	return []TaskSpec{
		{
			Worker: model.WorkerDocument,
			Payload: map[string]any{
				"meaningKey":   in.MeaningKey,
				"documentType": in.DocumentType,
				"template":     in.Template,
			},
		},
	}, nil
}

func codeDefinition(payload json.RawMessage) ([]TaskSpec, error) {
	var in CodeInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("code pipeline payload: %w", err)
	}
	if in.DocumentKey == "" || in.TargetLanguage == "" {
		return nil, errors.New("code pipeline payload: documentKey and targetLanguage are required")
	}

	return []TaskSpec{
		{
			Worker: model.WorkerCodegen,
			Payload: map[string]any{
				"documentKey":    in.DocumentKey,
				"targetLanguage": in.TargetLanguage,
				"framework":      in.Framework,
				"requirements":   in.Requirements,
			},
		},
	}, nil
}
