package services

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
	"github.com/yoockh/legalease/internal/workspace"
)

// PreviewRunes is how much document text the workspace view carries.
const PreviewRunes = 2000

// Transcriber renders a spoken question for display.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string, lang models.Language) (string, float64, error)
}

// ChatReply is the outcome of one answered question.
type ChatReply struct {
	SessionID string        `json:"session_id"`
	Question  models.Turn   `json:"question"`
	Answer    string        `json:"answer"`
	Latency   time.Duration `json:"-"`
}

// WorkspaceView is the user-facing state of a workspace.
type WorkspaceView struct {
	Document     *models.Document  `json:"document,omitempty"`
	Preview      string            `json:"preview,omitempty"`
	Language     models.Language   `json:"language"`
	Languages    []models.Language `json:"languages"`
	SessionID    string            `json:"session_id,omitempty"`
	SessionState workspace.State   `json:"session_state,omitempty"`
	Turns        int               `json:"turns"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type AssistantService interface {
	OnUpload(ctx context.Context, userID string, up Upload) (*models.Document, error)
	OnLanguageChange(ctx context.Context, userID string, lang models.Language) error
	OnUserMessage(ctx context.Context, userID string, q models.Turn, onChunk func(string)) (*ChatReply, error)
	RetryLastMessage(ctx context.Context, userID string, onChunk func(string)) (*ChatReply, error)
	ResetChat(ctx context.Context, userID string)

	Summary(ctx context.Context, userID string) (*models.Report, error)
	ClauseAnalysis(ctx context.Context, userID string) (*models.Report, error)
	Comparison(ctx context.Context, userID string, other Upload) (*models.Report, error)
	CompareUploads(ctx context.Context, userID string, a, b Upload) (*models.Report, error)

	VisibleHistory(userID string) iter.Seq[models.Turn]
	Workspace(userID string) WorkspaceView
}

type AssistantDeps struct {
	Store         *workspace.Store
	Manager       *workspace.Manager
	Documents     DocumentService
	Reports       ReportService
	Conversations ConversationService // optional
	Transcriber   Transcriber         // optional
	Logger        *logrus.Logger
}

type assistantService struct {
	store         *workspace.Store
	manager       *workspace.Manager
	documents     DocumentService
	reports       ReportService
	conversations ConversationService
	stt           Transcriber
	logger        *logrus.Logger
}

func NewAssistantService(d AssistantDeps) AssistantService {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &assistantService{
		store:         d.Store,
		manager:       d.Manager,
		documents:     d.Documents,
		reports:       d.Reports,
		conversations: d.Conversations,
		stt:           d.Transcriber,
		logger:        d.Logger,
	}
}

// OnUpload extracts up and makes it the current document. A failed
// extraction leaves the workspace untouched.
func (s *assistantService) OnUpload(ctx context.Context, userID string, up Upload) (*models.Document, error) {
	const op = "AssistantService.OnUpload"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	doc, err := s.documents.Parse(ctx, up)
	if err != nil {
		return nil, err
	}

	ws := s.store.Get(userID)
	s.manager.SetDocument(ctx, ws, doc)

	if _, err := s.documents.Archive(ctx, userID, doc, up); err != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "document_id": doc.Identity}).
			WithError(err).Warn("failed to archive document")
	}
	return doc, nil
}

func (s *assistantService) OnLanguageChange(ctx context.Context, userID string, lang models.Language) error {
	const op = "AssistantService.OnLanguageChange"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	parsed, ok := models.ParseLanguage(string(lang))
	if !ok {
		return utils.E(utils.CodeInvalidArgument, op, "unsupported language", nil)
	}
	s.manager.SetLanguage(ctx, s.store.Get(userID), parsed)
	return nil
}

func (s *assistantService) OnUserMessage(ctx context.Context, userID string, q models.Turn, onChunk func(string)) (*ChatReply, error) {
	const op = "AssistantService.OnUserMessage"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	ws := s.store.Get(userID)
	if q.IsAudio() && q.Transcript == "" {
		q.Transcript = s.transcribe(ctx, userID, ws.Snapshot().Language, q)
	}

	return s.withSession(ctx, ws, q, func(sess *workspace.Session) (string, error) {
		return s.manager.Ask(ctx, sess, q, onChunk)
	})
}

func (s *assistantService) RetryLastMessage(ctx context.Context, userID string, onChunk func(string)) (*ChatReply, error) {
	const op = "AssistantService.RetryLastMessage"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	ws := s.store.Get(userID)
	sess := ws.Snapshot().Session
	if sess == nil {
		return nil, utils.E(utils.CodeNotFound, op, "no unanswered question to retry", utils.ErrNotFound)
	}

	var q models.Turn
	if h := sess.History(); len(h) > 0 {
		q = h[len(h)-1]
	}
	start := time.Now()
	answer, err := s.manager.Retry(ctx, sess, onChunk)
	if errors.Is(err, utils.ErrStaleSession) {
		return nil, utils.E(utils.CodeNotFound, op, "no unanswered question to retry", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	q.Failed = false
	return s.answered(ctx, ws, sess, q, answer, time.Since(start)), nil
}

// withSession runs ask against the current session. A session invalidated
// between EnsureSession and the ask is replaced once.
func (s *assistantService) withSession(ctx context.Context, ws *workspace.Workspace, q models.Turn, ask func(*workspace.Session) (string, error)) (*ChatReply, error) {
	for attempt := 0; ; attempt++ {
		sess, err := s.manager.EnsureSession(ctx, ws)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		answer, err := ask(sess)
		if errors.Is(err, utils.ErrStaleSession) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.answered(ctx, ws, sess, q, answer, time.Since(start)), nil
	}
}

func (s *assistantService) answered(ctx context.Context, ws *workspace.Workspace, sess *workspace.Session, q models.Turn, answer string, latency time.Duration) *ChatReply {
	if s.conversations != nil {
		_, err := s.conversations.Record(ctx, Exchange{
			UserID:     ws.UserID,
			SessionID:  sess.ID,
			DocumentID: sess.DocumentID,
			Language:   sess.Language,
			Question:   q,
			Answer:     answer,
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{"user_id": ws.UserID, "session_id": sess.ID}).
				WithError(err).Warn("failed to record conversation")
		}
	}
	return &ChatReply{SessionID: sess.ID, Question: q, Answer: answer, Latency: latency}
}

func (s *assistantService) transcribe(ctx context.Context, userID string, lang models.Language, q models.Turn) string {
	if s.stt == nil {
		return ""
	}
	text, _, err := s.stt.Transcribe(ctx, q.Audio.Data, q.Audio.MIMEType, lang)
	if err != nil {
		s.logger.WithField("user_id", userID).WithError(err).Warn("speech transcription failed")
		return ""
	}
	return text
}

func (s *assistantService) ResetChat(ctx context.Context, userID string) {
	s.manager.Reset(ctx, s.store.Get(userID))
}

func (s *assistantService) Summary(ctx context.Context, userID string) (*models.Report, error) {
	doc, lang, err := s.current("AssistantService.Summary", userID)
	if err != nil {
		return nil, err
	}
	return s.reports.Summary(ctx, doc.Text, lang)
}

func (s *assistantService) ClauseAnalysis(ctx context.Context, userID string) (*models.Report, error) {
	doc, lang, err := s.current("AssistantService.ClauseAnalysis", userID)
	if err != nil {
		return nil, err
	}
	return s.reports.ClauseAnalysis(ctx, doc.Text, lang)
}

// Comparison compares the current document (Document 1) with other.
func (s *assistantService) Comparison(ctx context.Context, userID string, other Upload) (*models.Report, error) {
	doc, lang, err := s.current("AssistantService.Comparison", userID)
	if err != nil {
		return nil, err
	}
	second, err := s.documents.Parse(ctx, other)
	if err != nil {
		return nil, err
	}
	return s.reports.Comparison(ctx, doc.Text, second.Text, lang)
}

// CompareUploads compares two fresh uploads without touching the workspace
// document.
func (s *assistantService) CompareUploads(ctx context.Context, userID string, a, b Upload) (*models.Report, error) {
	const op = "AssistantService.CompareUploads"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	first, err := s.documents.Parse(ctx, a)
	if err != nil {
		return nil, err
	}
	second, err := s.documents.Parse(ctx, b)
	if err != nil {
		return nil, err
	}
	return s.reports.Comparison(ctx, first.Text, second.Text, s.store.Get(userID).Snapshot().Language)
}

func (s *assistantService) current(op, userID string) (*models.Document, models.Language, error) {
	if userID == "" {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	snap := s.store.Get(userID).Snapshot()
	if snap.Document == nil {
		return nil, "", utils.E(utils.CodeFailedPrecondition, op, "upload a document first", utils.ErrNoDocument)
	}
	return snap.Document, snap.Language, nil
}

func (s *assistantService) VisibleHistory(userID string) iter.Seq[models.Turn] {
	sess := s.store.Get(userID).Snapshot().Session
	if sess == nil {
		return func(func(models.Turn) bool) {}
	}
	return sess.VisibleHistory()
}

func (s *assistantService) Workspace(userID string) WorkspaceView {
	snap := s.store.Get(userID).Snapshot()
	v := WorkspaceView{
		Document:  snap.Document,
		Preview:   snap.Document.Preview(PreviewRunes),
		Language:  snap.Language,
		Languages: models.Languages(),
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Session != nil {
		v.SessionID = snap.Session.ID
		v.SessionState = snap.Session.State()
		v.Turns = snap.Session.Len() - workspace.GroundingTurnCount
	}
	return v
}
