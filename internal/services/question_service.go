package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/legalease/internal/models"
	mongorepo "github.com/yoockh/legalease/internal/repositories/mongo"
	"github.com/yoockh/legalease/internal/utils"
)

// QuestionService tracks questions queued for asynchronous answering.
type QuestionService interface {
	Enqueue(ctx context.Context, userID string, q models.Turn) (*models.QueuedQuestion, error)
	Get(ctx context.Context, questionID string) (*models.QueuedQuestion, error)
	MarkTranscript(ctx context.Context, questionID, transcript, status string) error
	MarkAnswer(ctx context.Context, questionID, sessionID, response, status string, processingMS int64) error
}

type questionService struct {
	questions mongorepo.QuestionRepository
	ttl       time.Duration
}

func NewQuestionService(questions mongorepo.QuestionRepository, ttl time.Duration) QuestionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &questionService{questions: questions, ttl: ttl}
}

func (s *questionService) Enqueue(ctx context.Context, userID string, q models.Turn) (*models.QueuedQuestion, error) {
	const op = "QuestionService.Enqueue"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if !q.IsAudio() && strings.TrimSpace(q.Text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question text or audio is required", nil)
	}

	now := time.Now().UTC()
	doc := &models.QueuedQuestion{
		QuestionID: uuid.NewString(),
		UserID:     userID,
		Kind:       "text",
		Text:       q.Text,
		LLMStatus:  models.StatusPending,
		Timestamp:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if q.IsAudio() {
		enc := base64.StdEncoding.EncodeToString(q.Audio.Data)
		doc.Kind = "audio"
		doc.Text = ""
		doc.AudioBase64 = &enc
		doc.MIMEType = q.Audio.MIMEType
		doc.STTStatus = models.StatusPending
	}

	if err := s.questions.Insert(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert question", err)
	}
	return doc, nil
}

func (s *questionService) Get(ctx context.Context, questionID string) (*models.QueuedQuestion, error) {
	const op = "QuestionService.Get"

	if questionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question_id is required", nil)
	}
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get question", err)
	}
	return q, nil
}

func (s *questionService) MarkTranscript(ctx context.Context, questionID, transcript, status string) error {
	const op = "QuestionService.MarkTranscript"

	if questionID == "" || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "question_id and status are required", nil)
	}
	if err := s.questions.UpdateSTT(ctx, questionID, transcript, status); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update stt fields", err)
	}
	return nil
}

func (s *questionService) MarkAnswer(ctx context.Context, questionID, sessionID, response, status string, processingMS int64) error {
	const op = "QuestionService.MarkAnswer"

	if questionID == "" || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "question_id and status are required", nil)
	}
	if err := s.questions.UpdateLLM(ctx, questionID, sessionID, response, status, processingMS); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update llm fields", err)
	}
	return nil
}

// QuestionTurn rebuilds the conversation turn of a queued question.
func QuestionTurn(q *models.QueuedQuestion) (models.Turn, error) {
	if q.Kind != "audio" {
		return models.TextTurn(q.Text), nil
	}
	if q.AudioBase64 == nil {
		return models.Turn{}, errors.New("audio question has no payload")
	}
	data, err := base64.StdEncoding.DecodeString(*q.AudioBase64)
	if err != nil {
		return models.Turn{}, err
	}
	return models.AudioTurn(data, q.MIMEType), nil
}

// QuestionEvent is published to a user's response channel while a queued
// question is processed.
type QuestionEvent struct {
	Type       string `json:"type"` // queued|status|llm_chunk|answer|error
	QuestionID string `json:"question_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Seq        int64  `json:"seq,omitempty"`
	Chunk      string `json:"chunk,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`

	ProcessingTimeMS int64 `json:"processing_time_ms,omitempty"`
}

// ResponseChannel is the pub/sub channel carrying a user's QuestionEvents.
func ResponseChannel(userID string) string {
	return "workspace:" + userID + ":response"
}
