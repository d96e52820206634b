package store

import (
	"context"
	"sync"

	"github.com/atarigo/goban-server/internal/domain"
)

// MemoryStore is the default single-process registry. Sessions are deep
// copied on the way in and out so callers never alias the stored value.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	byPlayer map[string]string // player id -> session id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		byPlayer: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return nil
	}
	m.put(session)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MemoryStore) FindByPlayer(ctx context.Context, playerID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return ErrConflict
	}
	session.Version++
	m.unindex(stored)
	m.put(session)
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(session.ID)
	return nil
}

func (m *MemoryStore) RemoveAll(ctx context.Context, sessions []*domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range sessions {
		m.remove(session.ID)
	}
	return nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		list = append(list, session.Clone())
	}
	return list, nil
}

// put stores a copy and indexes its players. Callers hold the write lock.
func (m *MemoryStore) put(session *domain.Session) {
	cp := session.Clone()
	m.sessions[cp.ID] = cp
	for _, p := range cp.Players {
		m.byPlayer[p.ID] = cp.ID
	}
}

func (m *MemoryStore) unindex(session *domain.Session) {
	for _, p := range session.Players {
		if m.byPlayer[p.ID] == session.ID {
			delete(m.byPlayer, p.ID)
		}
	}
}

func (m *MemoryStore) remove(id string) {
	session, ok := m.sessions[id]
	if !ok {
		return
	}
	m.unindex(session)
	delete(m.sessions, id)
}
