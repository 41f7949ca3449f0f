package stt

import (
	"context"
	"mime"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yoockh/legalease/internal/models"
)

type GoogleSpeech struct {
	c *speech.Client

	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c, SampleRateHz: 16000}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, mimeType string, lang models.Language) (string, float64, error) {
	enc := EncodingFor(mimeType)
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   enc,
		LanguageCode:               lang.SpeechCode(),
		EnableAutomaticPunctuation: true,
	}
	// wav and compressed containers carry their own rate
	if enc == speechpb.RecognitionConfig_LINEAR16 && !strings.Contains(mimeType, "wav") {
		cfg.SampleRateHertz = g.SampleRateHz
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	var parts []string
	var conf float64
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 || r.Alternatives[0].Transcript == "" {
			continue
		}
		best := r.Alternatives[0]
		parts = append(parts, strings.TrimSpace(best.Transcript))
		conf += float64(best.Confidence)
	}
	if len(parts) == 0 {
		return "", 0, nil
	}
	return strings.Join(parts, " "), conf / float64(len(parts)), nil
}

// EncodingFor maps a recording MIME type to a recognizer encoding.
func EncodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mt {
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC
	case "audio/mpeg", "audio/mp3":
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
