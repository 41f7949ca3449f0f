package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		fileName string
		want     DocumentType
	}{
		{"plain text", "text/plain", "lease.txt", DocumentTypePlainText},
		{"plain text with charset", "text/plain; charset=utf-8", "lease", DocumentTypePlainText},
		{"pdf", "application/pdf", "lease.pdf", DocumentTypePDF},
		{"octet stream falls back to extension", "application/octet-stream", "Lease.PDF", DocumentTypePDF},
		{"missing mime uses extension", "", "notes.txt", DocumentTypePlainText},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "a.docx", DocumentTypeUnsupported},
		{"unknown extension", "", "image.png", DocumentTypeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDocumentType(tt.mimeType, tt.fileName))
		})
	}
}

func TestParseLanguage(t *testing.T) {
	l, ok := ParseLanguage(" spanish ")
	assert.True(t, ok)
	assert.Equal(t, LanguageSpanish, l)

	l, ok = ParseLanguage("ja-JP")
	assert.True(t, ok)
	assert.Equal(t, LanguageJapanese, l)

	_, ok = ParseLanguage("Klingon")
	assert.False(t, ok)

	assert.Equal(t, "hi-IN", LanguageHindi.SpeechCode())
}

func TestTurnDisplayText(t *testing.T) {
	assert.Equal(t, "What is the rent?", TextTurn("What is the rent?").DisplayText())

	audio := AudioTurn([]byte{1, 2, 3}, "")
	assert.Equal(t, "audio/wav", audio.Audio.MIMEType)
	assert.Equal(t, SpokenQuestionInstruction, audio.Text)
	assert.Equal(t, "[User sent an audio question]", audio.DisplayText())

	audio.Transcript = "what is the rent"
	assert.Equal(t, "what is the rent", audio.DisplayText())
}

func TestDocumentPreview(t *testing.T) {
	d := &Document{Text: "héllo world"}
	assert.Equal(t, "héllo...", d.Preview(5))
	assert.Equal(t, "héllo world", d.Preview(100))

	var nilDoc *Document
	assert.Equal(t, "", nilDoc.Preview(10))
}
