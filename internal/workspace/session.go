package workspace

import (
	"bytes"
	"context"
	"iter"
	"sync"
	"time"

	"github.com/yoockh/legalease/internal/models"
)

type State string

const (
	StateSeeding   State = "seeding"
	StateReady     State = "ready"
	StateAnswering State = "answering"
	StateStale     State = "stale"
)

// Session is a multi-turn conversation bound to one (document, language)
// pair. Its history always begins with the grounding turns.
type Session struct {
	ID         string
	DocumentID string
	Language   models.Language
	CreatedAt  time.Time

	mu      sync.Mutex
	state   State
	history []models.Turn
	seeded  chan struct{} // closed when the session leaves StateSeeding
}

func newSession(id string, doc *models.Document, lang models.Language, now time.Time) *Session {
	grounding := BuildGroundingTurns(doc.Text, lang)
	history := make([]models.Turn, 0, 8)
	for _, t := range grounding {
		t.Timestamp = now
		history = append(history, t)
	}
	return &Session{
		ID:         id,
		DocumentID: doc.Identity,
		Language:   lang,
		CreatedAt:  now,
		state:      StateSeeding,
		history:    history,
		seeded:     make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BoundTo reports whether the session is usable for the given pair.
func (s *Session) BoundTo(documentID string, lang models.Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateStale && s.DocumentID == documentID && s.Language == lang
}

// History returns a copy of the full history, grounding turns included.
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Len is the number of turns including the grounding turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// VisibleHistory yields the user-facing transcript. Each iteration reads the
// history as it is at that moment.
func (s *Session) VisibleHistory() iter.Seq[models.Turn] {
	return func(yield func(models.Turn) bool) {
		for _, t := range s.History()[GroundingTurnCount:] {
			if !yield(t) {
				return
			}
		}
	}
}

// waitSeeded blocks until seeding has finished or ctx ends.
func (s *Session) waitSeeded(ctx context.Context) error {
	select {
	case <-s.seeded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) markStale() {
	s.mu.Lock()
	if s.state == StateSeeding {
		close(s.seeded)
	}
	s.state = StateStale
	s.mu.Unlock()
}

func (s *Session) markReady() {
	s.mu.Lock()
	if s.state == StateSeeding {
		s.state = StateReady
		close(s.seeded)
	}
	s.mu.Unlock()
}

// requestLocked is the history sent to the model: grounding turns, answered
// exchanges and the pending question. Callers hold s.mu.
func (s *Session) requestLocked() []models.Turn {
	out := make([]models.Turn, 0, len(s.history))
	for _, t := range s.history {
		if t.Failed {
			continue
		}
		out = append(out, t)
	}
	return out
}

// lastFailedLocked returns the index of a trailing failed user turn, or -1.
func (s *Session) lastFailedLocked() int {
	n := len(s.history)
	if n <= GroundingTurnCount {
		return -1
	}
	last := s.history[n-1]
	if last.Role == models.RoleUser && last.Failed {
		return n - 1
	}
	return -1
}

func sameQuestion(a, b models.Turn) bool {
	if a.IsAudio() != b.IsAudio() {
		return false
	}
	if a.IsAudio() {
		return bytes.Equal(a.Audio.Data, b.Audio.Data)
	}
	return a.Text == b.Text
}
