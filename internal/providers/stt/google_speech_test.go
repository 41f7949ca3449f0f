package stt

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
)

func TestEncodingFor(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/wav":              speechpb.RecognitionConfig_LINEAR16,
		"audio/webm;codecs=opus": speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/ogg":              speechpb.RecognitionConfig_OGG_OPUS,
		"AUDIO/FLAC":             speechpb.RecognitionConfig_FLAC,
		"audio/mpeg":             speechpb.RecognitionConfig_MP3,
		"":                       speechpb.RecognitionConfig_LINEAR16,
	}
	for in, want := range cases {
		assert.Equal(t, want, EncodingFor(in), in)
	}
}
