package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/yoockh/legalease/internal/models"
)

const DefaultModel = "gemini-1.5-flash"

var ErrEmptyResponse = errors.New("model returned no text")

type VertexGemini struct {
	client  *vertexgenai.Client
	model   *vertexgenai.GenerativeModel
	timeout time.Duration
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, timeout time.Duration) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultModel
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m, timeout: timeout}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		writeText(&sb, cand.Content, nil)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (v *VertexGemini) Chat(ctx context.Context, history []models.Turn, onChunk func(string)) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	contents := ToContents(history)
	cs := v.model.StartChat()
	cs.History = contents[:len(contents)-1]

	var sb strings.Builder
	it := cs.SendMessageStream(ctx, contents[len(contents)-1].Parts...)
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", err
		}
		for _, cand := range resp.Candidates {
			writeText(&sb, cand.Content, onChunk)
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (v *VertexGemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

func writeText(sb *strings.Builder, c *vertexgenai.Content, onChunk func(string)) {
	if c == nil {
		return
	}
	for _, part := range c.Parts {
		if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
			sb.WriteString(string(t))
			if onChunk != nil {
				onChunk(string(t))
			}
		}
	}
}

// ToContents maps conversation turns to Gemini contents. Assistant turns use
// the "model" role; audio turns carry their instruction text and the clip.
func ToContents(history []models.Turn) []*vertexgenai.Content {
	out := make([]*vertexgenai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		var parts []vertexgenai.Part
		if t.Text != "" {
			parts = append(parts, vertexgenai.Text(t.Text))
		}
		if t.IsAudio() {
			parts = append(parts, vertexgenai.Blob{MIMEType: t.Audio.MIMEType, Data: t.Audio.Data})
		}
		out = append(out, &vertexgenai.Content{Role: role, Parts: parts})
	}
	return out
}
