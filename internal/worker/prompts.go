package worker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompt templates are versioned so a generation can always be traced back
// to the exact wording that produced it. Defaults are compiled in; a YAML
// pack file can override individual templates.
type PromptTemplate struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`
	Body    string `yaml:"body"`
}

type PromptPack struct {
	templates map[string]PromptTemplate
}

const (
	PromptTranscribe = "transcribe"
	PromptMeaning    = "meaning"
	PromptDocument   = "document"
	PromptCodegen    = "codegen"
)

var defaultTemplates = []PromptTemplate{
	{
		Name:    PromptTranscribe,
		Version: 1,
		Body: `Transcribe the recorded meeting audio ({{audioBytes}} bytes, language: {{language}}).
Produce a JSON object with fields:
"text" (full transcript), "language", "segments" (array of {"text","startSec","endSec"}), "confidence" (0-1).
Respond with valid JSON only.`,
	},
	{
		Name:    PromptMeaning,
		Version: 1,
		Body: `Analyze the following meeting transcription and extract structured meaning.

Transcription:
{{transcript}}

Provide a JSON object with fields:
"goals" (3-5 key goals), "requirements" (3-5 requirements), "actionItems" (3-5 action items with owners),
"decisions" (3-5 decisions made), "keyPoints" (5-10 key points), "summary" (brief executive summary),
"confidence" (0-1).
Respond with valid JSON only.`,
	},
	{
		Name:    PromptDocument,
		Version: 1,
		Body: `Generate a professional {{documentType}} document based on the following meaning data.

MEANING DATA:
{{meaning}}

TEMPLATE:
{{template}}

Follow the template, include all relevant sections, use professional language.
Provide a JSON object with fields:
"content" (full document text), "title", "sections" (array of {"title","content","level"}), "confidence" (0-1).
Respond with valid JSON only.`,
	},
	{
		Name:    PromptCodegen,
		Version: 1,
		Body: `Generate production-ready code based on the following document.

DOCUMENT:
{{document}}

REQUIREMENTS:
- Target language: {{targetLanguage}}
- Framework: {{framework}}
- Specific requirements:
{{requirements}}

Provide a JSON object with fields:
"files" (array of {"path","content","language"}), "structure" (file tree as text),
"summary" (implementation summary), "confidence" (0-1).
Respond with valid JSON only.`,
	},
}

func DefaultPrompts() *PromptPack {
	pack := &PromptPack{templates: make(map[string]PromptTemplate)}
	for _, t := range defaultTemplates {
		pack.templates[t.Name] = t
	}
	return pack
}

// LoadPrompts applies overrides from a YAML pack file on top of the
// defaults. An empty path returns the defaults.
func LoadPrompts(path string) (*PromptPack, error) {
	pack := DefaultPrompts()
	if path == "" {
		return pack, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt pack: %w", err)
	}
	var overrides []PromptTemplate
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompt pack: %w", err)
	}
	for _, t := range overrides {
		if _, ok := pack.templates[t.Name]; !ok {
			return nil, fmt.Errorf("prompt pack overrides unknown template %q", t.Name)
		}
		pack.templates[t.Name] = t
	}
	return pack, nil
}

// Render substitutes {{var}} placeholders. Deterministic: same template
// version and vars always produce the same prompt.
func (p *PromptPack) Render(name string, vars map[string]string) string {
	t, ok := p.templates[name]
	if !ok {
		return ""
	}
	body := t.Body
	for key, value := range vars {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}
	return body
}

func (p *PromptPack) Version(name string) int {
	return p.templates[name].Version
}
