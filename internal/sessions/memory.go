package sessions

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// Memory is an in-process Store. Sessions are kept as JSON so callers never
// share a *QuizSession with each other. Like the redis store, a session
// expires DefaultTTL after it was last saved.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]memoryEntry),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
}

func (m *Memory) Save(_ context.Context, session *domain.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Expired sessions are swept on each save.
	for id, entry := range m.sessions {
		if !now.Before(entry.expires) {
			delete(m.sessions, id)
		}
	}
	m.sessions[session.ID] = memoryEntry{data: data, expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.QuizSession, error) {
	now := m.now()
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !now.Before(entry.expires) {
		m.mu.Lock()
		if current, ok := m.sessions[id]; ok && !now.Before(current.expires) {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	var session domain.QuizSession
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

