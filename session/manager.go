package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager owns all live sessions
type Manager struct {
	provider RouteProvider
	cfg      Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions route through provider
func NewManager(provider RouteProvider, cfg Config) *Manager {
	return &Manager{
		provider: provider,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session in destination selection
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.provider, m.cfg)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks a session up by id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete detaches and forgets a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Detach()
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
