package llm

import (
	"context"

	"github.com/yoockh/legalease/internal/models"
)

type Provider interface {
	// Generate answers a single prompt with no conversation state.
	Generate(ctx context.Context, prompt string) (string, error)
	// Chat sends history, whose last entry is the pending user turn, and
	// returns the full reply. onChunk receives incremental text when non-nil.
	Chat(ctx context.Context, history []models.Turn, onChunk func(string)) (string, error)
	Close() error
}
