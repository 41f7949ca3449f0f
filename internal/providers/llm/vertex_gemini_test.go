package llm

import (
	"strings"
	"testing"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/legalease/internal/models"
)

func TestToContentsMapsRolesAndAudio(t *testing.T) {
	history := []models.Turn{
		{Role: models.RoleUser, Text: "grounding"},
		{Role: models.RoleAssistant, Text: "Understood."},
		models.AudioTurn([]byte{1, 2, 3}, ""),
	}

	got := ToContents(history)
	require.Len(t, got, 3)

	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, []vertexgenai.Part{vertexgenai.Text("Understood.")}, got[1].Parts)

	require.Len(t, got[2].Parts, 2)
	assert.Equal(t, vertexgenai.Text(models.SpokenQuestionInstruction), got[2].Parts[0])
	assert.Equal(t, vertexgenai.Blob{MIMEType: "audio/wav", Data: []byte{1, 2, 3}}, got[2].Parts[1])
}

func TestWriteTextStreamsOnlyText(t *testing.T) {
	var chunks []string
	var sb strings.Builder
	writeText(&sb, &vertexgenai.Content{Parts: []vertexgenai.Part{
		vertexgenai.Text("Rent is "),
		vertexgenai.Blob{MIMEType: "image/png"},
		vertexgenai.Text("$1000."),
	}}, func(s string) { chunks = append(chunks, s) })

	assert.Equal(t, "Rent is $1000.", sb.String())
	assert.Equal(t, []string{"Rent is ", "$1000."}, chunks)

	writeText(&sb, nil, nil)
	assert.Equal(t, "Rent is $1000.", sb.String())
}
