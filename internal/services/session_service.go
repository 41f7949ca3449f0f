package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/legalease/internal/models"
	mongorepo "github.com/yoockh/legalease/internal/repositories/mongo"
	"github.com/yoockh/legalease/internal/utils"
	"github.com/yoockh/legalease/internal/workspace"
)

// SessionService records conversation session lifecycles. It is the
// workspace.SessionObserver used in production.
type SessionService interface {
	workspace.SessionObserver
	Get(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionRecord, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
}

func NewSessionService(sessions mongorepo.SessionRepository) SessionService {
	return &sessionService{sessions: sessions}
}

func (s *sessionService) SessionStarted(ctx context.Context, userID string, sess *workspace.Session, doc *models.Document) error {
	const op = "SessionService.SessionStarted"

	if userID == "" || sess == nil || doc == nil {
		return utils.E(utils.CodeInvalidArgument, op, "user_id, session, and document are required", nil)
	}

	rec := &models.SessionRecord{
		SessionID:    sess.ID,
		UserID:       userID,
		DocumentID:   sess.DocumentID,
		DocumentName: doc.FileName,
		Language:     string(sess.Language),
		Status:       models.SessionStatusActive,
		CreatedAt:    sess.CreatedAt,
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return nil
}

func (s *sessionService) SessionInvalidated(ctx context.Context, userID, sessionID string) error {
	const op = "SessionService.SessionInvalidated"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if err := s.sessions.MarkStale(ctx, sessionID, time.Now().UTC()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to mark session stale", err)
	}
	return nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionRecord, error) {
	const op = "SessionService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}
