package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	pack := DefaultPrompts()
	prompt := pack.Render(PromptMeaning, map[string]string{
		"transcript": "we agreed to ship on friday",
	})
	assert.Contains(t, prompt, "we agreed to ship on friday")
	assert.NotContains(t, prompt, "{{transcript}}")
}

func TestRenderUnknownTemplate(t *testing.T) {
	pack := DefaultPrompts()
	assert.Empty(t, pack.Render("summarize", nil))
}

func TestLoadPromptsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	override := `
- name: meaning
  version: 2
  body: "Extract meaning from: {{transcript}}"
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	pack, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, 2, pack.Version(PromptMeaning))
	assert.Equal(t, "Extract meaning from: hi", pack.Render(PromptMeaning, map[string]string{"transcript": "hi"}))

	// untouched templates keep their defaults
	assert.Equal(t, 1, pack.Version(PromptTranscribe))
}

func TestLoadPromptsUnknownTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: summarize\n  version: 1\n  body: x\n"), 0o644))

	_, err := LoadPrompts(path)
	assert.Error(t, err)
}

func TestLoadPromptsEmptyPath(t *testing.T) {
	pack, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, 1, pack.Version(PromptCodegen))
}
