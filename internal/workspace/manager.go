package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
)

// Generator answers a conversation. history ends with the pending user turn.
// onChunk, when non-nil, receives incremental text as it arrives.
type Generator interface {
	Chat(ctx context.Context, history []models.Turn, onChunk func(string)) (string, error)
}

// SessionObserver is told about session lifecycle transitions.
type SessionObserver interface {
	SessionStarted(ctx context.Context, userID string, s *Session, doc *models.Document) error
	SessionInvalidated(ctx context.Context, userID, sessionID string) error
}

type Manager struct {
	gen      Generator
	observer SessionObserver
	logger   *logrus.Logger

	now   func() time.Time
	newID func() string
}

// NewManager builds a Manager. observer may be nil.
func NewManager(gen Generator, observer SessionObserver, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		gen:      gen,
		observer: observer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// SetDocument loads doc into ws, invalidating the session when the document
// identity changes.
func (m *Manager) SetDocument(ctx context.Context, ws *Workspace, doc *models.Document) {
	m.invalidated(ctx, ws.UserID, ws.SetDocument(doc))
}

// SetLanguage switches the output language; the session is always rebuilt.
func (m *Manager) SetLanguage(ctx context.Context, ws *Workspace, lang models.Language) {
	m.invalidated(ctx, ws.UserID, ws.SetLanguage(lang))
}

// Reset discards the current session so the next question starts fresh.
func (m *Manager) Reset(ctx context.Context, ws *Workspace) {
	m.invalidated(ctx, ws.UserID, ws.ResetSession())
}

// EnsureSession returns the session bound to the workspace's current
// (document, language) pair, seeding a new one when there is none. Repeated
// calls with an unchanged pair return the same session untouched.
func (m *Manager) EnsureSession(ctx context.Context, ws *Workspace) (*Session, error) {
	const op = "Manager.EnsureSession"

	ws.mu.Lock()
	doc, lang := ws.document, ws.language
	if doc == nil {
		ws.mu.Unlock()
		return nil, utils.E(utils.CodeFailedPrecondition, op, "upload a document first", utils.ErrNoDocument)
	}
	if cur := ws.session; cur != nil && cur.BoundTo(doc.Identity, lang) {
		ws.mu.Unlock()
		if err := cur.waitSeeded(ctx); err != nil {
			return nil, utils.E(utils.CodeTimeout, op, "conversation session is still being prepared", err)
		}
		return cur, nil
	}
	stale := ws.dropSessionLocked()
	sess := newSession(m.newID(), doc, lang, m.now())
	ws.session = sess
	ws.mu.Unlock()

	m.invalidated(ctx, ws.UserID, stale)

	if m.observer != nil {
		if err := m.observer.SessionStarted(ctx, ws.UserID, sess, doc); err != nil {
			m.logger.WithFields(logrus.Fields{"user_id": ws.UserID, "session_id": sess.ID}).
				WithError(err).Warn("failed to record session start")
		}
	}
	sess.markReady()

	m.logger.WithFields(logrus.Fields{
		"user_id":     ws.UserID,
		"session_id":  sess.ID,
		"document_id": doc.Identity,
		"language":    lang,
	}).Info("conversation session seeded")
	return sess, nil
}

// Ask appends q to the session, sends the accumulated history and appends the
// reply. If q repeats a question whose answer previously failed, that turn is
// reused instead of appended again.
func (m *Manager) Ask(ctx context.Context, sess *Session, q models.Turn, onChunk func(string)) (string, error) {
	const op = "Manager.Ask"

	q.Role = models.RoleUser
	q.Failed = false
	if !q.IsAudio() && strings.TrimSpace(q.Text) == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "question is empty", nil)
	}

	sess.mu.Lock()
	if err := askableLocked(op, sess); err != nil {
		sess.mu.Unlock()
		return "", err
	}
	idx := sess.lastFailedLocked()
	if idx >= 0 && sameQuestion(sess.history[idx], q) {
		sess.history[idx].Failed = false
	} else {
		q.Timestamp = m.now()
		sess.history = append(sess.history, q)
		idx = len(sess.history) - 1
	}
	sess.state = StateAnswering
	req := sess.requestLocked()
	sess.mu.Unlock()

	return m.answer(ctx, op, sess, idx, req, onChunk)
}

// Retry re-sends the trailing unanswered question.
func (m *Manager) Retry(ctx context.Context, sess *Session, onChunk func(string)) (string, error) {
	const op = "Manager.Retry"

	sess.mu.Lock()
	if err := askableLocked(op, sess); err != nil {
		sess.mu.Unlock()
		return "", err
	}
	idx := sess.lastFailedLocked()
	if idx < 0 {
		sess.mu.Unlock()
		return "", utils.E(utils.CodeNotFound, op, "no unanswered question to retry", utils.ErrNotFound)
	}
	sess.history[idx].Failed = false
	sess.state = StateAnswering
	req := sess.requestLocked()
	sess.mu.Unlock()

	return m.answer(ctx, op, sess, idx, req, onChunk)
}

func askableLocked(op string, sess *Session) error {
	switch sess.state {
	case StateReady:
		return nil
	case StateStale:
		return utils.E(utils.CodeConflict, op, "conversation session is stale", utils.ErrStaleSession)
	case StateSeeding:
		return utils.E(utils.CodeConflict, op, "conversation session is still being prepared", utils.ErrSessionSeeding)
	default:
		return utils.E(utils.CodeConflict, op, "a question is already being answered", utils.ErrSessionBusy)
	}
}

// answer performs the external call outside the session lock and applies the
// outcome only if the session is still current.
func (m *Manager) answer(ctx context.Context, op string, sess *Session, idx int, req []models.Turn, onChunk func(string)) (string, error) {
	start := time.Now()
	reply, err := m.gen.Chat(ctx, req, onChunk)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty response")
	}

	log := m.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"turns":      len(req),
		"latency_ms": time.Since(start).Milliseconds(),
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateStale {
		log.Info("discarding answer for stale session")
		return "", utils.E(utils.CodeConflict, op, "document or language changed while answering, ask again", utils.ErrAnswerDiscarded)
	}
	sess.state = StateReady

	if err != nil {
		sess.history[idx].Failed = true
		log.WithError(err).Warn("generation failed")
		code := utils.CodeUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = utils.CodeTimeout
		}
		return "", utils.E(code, op, "failed to generate answer", fmt.Errorf("%w: %w", utils.ErrGeneration, err))
	}

	sess.history = append(sess.history, models.Turn{
		Role:      models.RoleAssistant,
		Text:      reply,
		Timestamp: m.now(),
	})
	log.Debug("question answered")
	return reply, nil
}

func (m *Manager) invalidated(ctx context.Context, userID string, stale *Session) {
	if stale == nil {
		return
	}
	m.logger.WithFields(logrus.Fields{"user_id": userID, "session_id": stale.ID}).Info("conversation session invalidated")
	if m.observer == nil {
		return
	}
	if err := m.observer.SessionInvalidated(ctx, userID, stale.ID); err != nil {
		m.logger.WithFields(logrus.Fields{"user_id": userID, "session_id": stale.ID}).
			WithError(err).Warn("failed to record session invalidation")
	}
}
