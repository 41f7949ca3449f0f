package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionStatusActive = "active"
	SessionStatusStale  = "stale"
)

// SessionRecord tracks the lifecycle of a grounded chat session.
type SessionRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`       // uuid from Supabase Auth

	DocumentID   string `bson:"document_id" json:"document_id"`
	DocumentName string `bson:"document_name" json:"document_name"`
	Language     string `bson:"language" json:"language"`
	Status       string `bson:"status" json:"status"` // active|stale

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
