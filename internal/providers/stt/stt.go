package stt

import (
	"context"

	"github.com/yoockh/legalease/internal/models"
)

// Provider renders a spoken question as text for display.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string, lang models.Language) (text string, confidence float64, err error)
	Close() error
}
