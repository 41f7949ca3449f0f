package workspace

import (
	"sync"
	"time"

	"github.com/yoockh/legalease/internal/models"
)

// Workspace is the per-user state: the loaded document, the output language
// and the conversation grounded in both. Every mutation that changes the
// (document, language) pair drops the current session in the same critical
// section, so a stale session is never reachable from a Workspace.
type Workspace struct {
	UserID string

	mu        sync.Mutex
	document  *models.Document
	language  models.Language
	session   *Session
	updatedAt time.Time
}

// Snapshot is a read-only view of a Workspace.
type Snapshot struct {
	UserID    string
	Document  *models.Document
	Language  models.Language
	Session   *Session
	UpdatedAt time.Time
}

// SetDocument replaces the document. The session is invalidated when the new
// document has a different identity; the invalidated session is returned.
func (w *Workspace) SetDocument(doc *models.Document) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	var stale *Session
	if w.document == nil || w.document.Identity != doc.Identity {
		stale = w.dropSessionLocked()
	}
	w.document = doc
	w.updatedAt = time.Now().UTC()
	return stale
}

// SetLanguage replaces the output language and always invalidates the
// session.
func (w *Workspace) SetLanguage(lang models.Language) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.language = lang
	w.updatedAt = time.Now().UTC()
	return w.dropSessionLocked()
}

// ResetSession drops the session without touching document or language.
func (w *Workspace) ResetSession() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropSessionLocked()
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		UserID:    w.UserID,
		Document:  w.document,
		Language:  w.language,
		Session:   w.session,
		UpdatedAt: w.updatedAt,
	}
}

func (w *Workspace) dropSessionLocked() *Session {
	s := w.session
	if s != nil {
		s.markStale()
	}
	w.session = nil
	return s
}

// Store holds one Workspace per user for the lifetime of the process.
type Store struct {
	mu              sync.RWMutex
	items           map[string]*Workspace
	defaultLanguage models.Language
}

func NewStore(defaultLanguage models.Language) *Store {
	if defaultLanguage == "" {
		defaultLanguage = models.DefaultLanguage
	}
	return &Store{
		items:           make(map[string]*Workspace),
		defaultLanguage: defaultLanguage,
	}
}

// Get returns the user's workspace, creating an empty one on first use.
func (s *Store) Get(userID string) *Workspace {
	s.mu.RLock()
	w, ok := s.items[userID]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.items[userID]; ok {
		return w
	}
	w = &Workspace{UserID: userID, language: s.defaultLanguage, updatedAt: time.Now().UTC()}
	s.items[userID] = w
	return w
}

// Remove ends the user's workspace; its session, if any, becomes stale.
func (s *Store) Remove(userID string) *Session {
	s.mu.Lock()
	w, ok := s.items[userID]
	delete(s.items, userID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return w.ResetSession()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
