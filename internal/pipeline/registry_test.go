package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

func TestDefinitionForUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.DefinitionFor(model.JobType("VIDEO_PIPELINE"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPipelineType)
}

func TestMeetingDefinition(t *testing.T) {
	r := NewRegistry()
	def, err := r.DefinitionFor(model.MeetingPipeline)
	require.NoError(t, err)

	specs, err := def(json.RawMessage(`{"audioFileKey":"uploads/t1/audio.mp3","meetingId":"m-1","language":"de"}`))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, model.WorkerTranscribe, specs[0].Worker)
	assert.Empty(t, specs[0].DependsOn)
	assert.Equal(t, "uploads/t1/audio.mp3", specs[0].Payload["fileKey"])
	assert.Equal(t, "de", specs[0].Payload["language"])

	assert.Equal(t, model.WorkerMeaning, specs[1].Worker)
	assert.Equal(t, []int{0}, specs[1].DependsOn)
	assert.Equal(t, OutputRef(0), specs[1].Payload["transcriptKey"])
}

func TestMeetingDefinitionMissingFields(t *testing.T) {
	r := NewRegistry()
	def, err := r.DefinitionFor(model.MeetingPipeline)
	require.NoError(t, err)

	_, err = def(json.RawMessage(`{"meetingId":"m-1"}`))
	assert.Error(t, err)

	_, err = def(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestDocumentDefinitionDefaultType(t *testing.T) {
	r := NewRegistry()
	def, err := r.DefinitionFor(model.DocumentPipeline)
	require.NoError(t, err)

	specs, err := def(json.RawMessage(`{"meaningKey":"meaning/t1/m-1.json"}`))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, model.WorkerDocument, specs[0].Worker)
	assert.Equal(t, "Report", specs[0].Payload["documentType"])
}

func TestCodeDefinitionValidation(t *testing.T) {
	r := NewRegistry()
	def, err := r.DefinitionFor(model.CodePipeline)
	require.NoError(t, err)

	_, err = def(json.RawMessage(`{"documentKey":"documents/t1/j-1.json"}`))
	assert.Error(t, err)

	specs, err := def(json.RawMessage(`{"documentKey":"documents/t1/j-1.json","targetLanguage":"go"}`))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, model.WorkerCodegen, specs[0].Worker)
}

func TestOutputRef(t *testing.T) {
	assert.Equal(t, "task-output://#2", OutputRef(2))
}
