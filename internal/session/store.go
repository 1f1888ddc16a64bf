// Package session keeps per-document conversation history.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"pdf-chat-backend/models"
)

// ErrInvalidID is returned for an empty session id.
var ErrInvalidID = errors.New("session id is required")

// Session is the ordered history of one document's conversation.
// Turns is always a copy; appends go through the Store.
type Session struct {
	DocumentID string

	mu    sync.Mutex
	turns []models.Turn
}

func newSession(id string, turns []models.Turn) *Session {
	return &Session{DocumentID: id, turns: turns}
}

// Turns returns a snapshot of the history, oldest first.
func (s *Session) Turns() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Last returns up to n most recent turns.
func (s *Session) Last(n int) []models.Turn {
	turns := s.Turns()
	if n >= 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

func (s *Session) append(turns ...models.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turns...)
	s.mu.Unlock()
}

// Store maps document ids to sessions. Implementations are safe for concurrent use.
type Store interface {
	// GetOrCreate returns the session for id, creating an empty one when absent.
	// Concurrent first calls for the same id observe the same session.
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	// AppendTurn adds one turn to the end of the session.
	AppendTurn(ctx context.Context, id string, turn models.Turn) error
	// AppendExchange adds a user turn followed by an assistant turn as one unit.
	AppendExchange(ctx context.Context, id, user, assistant string) error
	// Clear drops the session. Clearing an unknown id is not an error.
	Clear(ctx context.Context, id string) error
}

func exchange(user, assistant string, now time.Time) []models.Turn {
	return []models.Turn{
		{Role: models.RoleUser, Content: user, CreatedAt: now},
		{Role: models.RoleAssistant, Content: assistant, CreatedAt: now},
	}
}
