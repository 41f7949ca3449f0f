package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yoockh/legalease/internal/models"
	pgrepo "github.com/yoockh/legalease/internal/repositories/postgres"
	"github.com/yoockh/legalease/internal/utils"
)

// Exchange is one answered question.
type Exchange struct {
	UserID     string
	SessionID  string
	DocumentID string
	Language   models.Language
	Question   models.Turn
	Answer     string
}

type ConversationService interface {
	Record(ctx context.Context, ex Exchange) ([]models.ConversationLog, error)
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
}

type conversationService struct {
	convos pgrepo.ConversationRepo
}

func NewConversationService(convos pgrepo.ConversationRepo) ConversationService {
	return &conversationService{convos: convos}
}

func (s *conversationService) Record(ctx context.Context, ex Exchange) ([]models.ConversationLog, error) {
	const op = "ConversationService.Record"

	if ex.UserID == "" || ex.SessionID == "" || ex.Answer == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id, session_id, and answer are required", nil)
	}

	kind := "text"
	if ex.Question.IsAudio() {
		kind = "audio"
	}
	md, err := json.Marshal(map[string]any{
		"kind":     kind,
		"language": ex.Language,
	})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode metadata", err)
	}

	now := time.Now().UTC()
	askedAt := ex.Question.Timestamp
	if askedAt.IsZero() {
		askedAt = now
	}
	rows := []models.ConversationLog{
		{
			ID:         uuid.NewString(),
			UserID:     ex.UserID,
			SessionID:  ex.SessionID,
			DocumentID: ex.DocumentID,
			Role:       string(models.RoleUser),
			Content:    ex.Question.DisplayText(),
			Timestamp:  askedAt,
			Metadata:   datatypes.JSON(md),
		},
		{
			ID:         uuid.NewString(),
			UserID:     ex.UserID,
			SessionID:  ex.SessionID,
			DocumentID: ex.DocumentID,
			Role:       string(models.RoleAssistant),
			Content:    ex.Answer,
			Timestamp:  now,
			Metadata:   datatypes.JSON(md),
		},
	}

	if err := s.convos.InsertBatch(ctx, rows); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert conversation log", err)
	}
	return rows, nil
}

func (s *conversationService) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.ListBySession"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}
