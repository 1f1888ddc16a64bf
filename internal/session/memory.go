package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"pdf-chat-backend/models"
)

type MemoryOptions struct {
	// MaxSessions bounds the number of live sessions; the least recently
	// used one is evicted first. Zero means unbounded.
	MaxSessions int
	// IdleTTL expires sessions not touched for this long. Zero disables expiry.
	IdleTTL time.Duration
	Now     func() time.Time
}

type memoryEntry struct {
	id       string
	session  *Session
	lastUsed time.Time
}

// MemoryStore is an in-process Store with LRU eviction and idle expiry.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*list.Element
	lru      *list.List
	opts     MemoryOptions
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]*list.Element),
		lru:      list.New(),
		opts:     opts,
	}
}

func (m *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return m.opts.IdleTTL > 0 && now.Sub(e.lastUsed) > m.opts.IdleTTL
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	if el, ok := m.sessions[id]; ok {
		e := el.Value.(*memoryEntry)
		if !m.expired(e, now) {
			e.lastUsed = now
			m.lru.MoveToFront(el)
			return e.session, nil
		}
		m.removeElement(el)
	}

	e := &memoryEntry{id: id, session: newSession(id, nil), lastUsed: now}
	m.sessions[id] = m.lru.PushFront(e)

	for m.opts.MaxSessions > 0 && m.lru.Len() > m.opts.MaxSessions {
		m.removeElement(m.lru.Back())
	}
	return e.session, nil
}

func (m *MemoryStore) AppendTurn(ctx context.Context, id string, turn models.Turn) error {
	s, err := m.GetOrCreate(ctx, id)
	if err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = m.opts.Now()
	}
	s.append(turn)
	return nil
}

func (m *MemoryStore) AppendExchange(ctx context.Context, id, user, assistant string) error {
	s, err := m.GetOrCreate(ctx, id)
	if err != nil {
		return err
	}
	s.append(exchange(user, assistant, m.opts.Now())...)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.sessions[id]; ok {
		m.removeElement(el)
	}
	return nil
}

// Sweep drops every session idle at now and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for el := m.lru.Back(); el != nil; {
		prev := el.Prev()
		if !m.expired(el.Value.(*memoryEntry), now) {
			break
		}
		m.removeElement(el)
		removed++
		el = prev
	}
	return removed
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *MemoryStore) removeElement(el *list.Element) {
	e := el.Value.(*memoryEntry)
	delete(m.sessions, e.id)
	m.lru.Remove(el)
}
