package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// QueuedQuestion is a question received over the websocket and answered by
// the question workers. Rows expire through a TTL index.
type QueuedQuestion struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QuestionID string             `bson:"question_id" json:"question_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Kind       string             `bson:"kind" json:"kind"` // text|audio

	Text        string  `bson:"text,omitempty" json:"text,omitempty"`
	AudioBase64 *string `bson:"audio_base64,omitempty" json:"-"`
	MIMEType    string  `bson:"mime_type,omitempty" json:"mime_type,omitempty"`

	Transcript string `bson:"transcript,omitempty" json:"transcript,omitempty"`
	STTStatus  string `bson:"stt_status,omitempty" json:"stt_status,omitempty"`

	LLMStatus   string `bson:"llm_status" json:"llm_status"` // pending|processing|done|failed
	LLMResponse string `bson:"llm_response,omitempty" json:"llm_response,omitempty"`
	SessionID   string `bson:"session_id,omitempty" json:"session_id,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
