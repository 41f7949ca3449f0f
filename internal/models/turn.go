package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SpokenQuestionInstruction accompanies an audio question sent to the model.
const SpokenQuestionInstruction = "Please answer this spoken question."

// AudioPart is a recorded question forwarded to the model as-is.
type AudioPart struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Turn is one entry of a conversation history.
type Turn struct {
	Role  Role       `json:"role"`
	Text  string     `json:"text"`
	Audio *AudioPart `json:"audio,omitempty"`

	// Transcript is the speech-to-text rendering of Audio, display only.
	Transcript string `json:"transcript,omitempty"`

	// Failed marks a user turn whose answer could not be generated. Failed
	// turns stay in the transcript but are not sent to the model again.
	Failed bool `json:"failed,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// TextTurn builds a typed question.
func TextTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AudioTurn builds a spoken question.
func AudioTurn(data []byte, mimeType string) Turn {
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return Turn{
		Role:  RoleUser,
		Text:  SpokenQuestionInstruction,
		Audio: &AudioPart{MIMEType: mimeType, Data: data},
	}
}

// IsAudio reports whether the turn carries a recorded question.
func (t Turn) IsAudio() bool { return t.Audio != nil && len(t.Audio.Data) > 0 }

// DisplayText is what a transcript shows for the turn.
func (t Turn) DisplayText() string {
	if !t.IsAudio() {
		return t.Text
	}
	if t.Transcript != "" {
		return t.Transcript
	}
	return "[User sent an audio question]"
}
