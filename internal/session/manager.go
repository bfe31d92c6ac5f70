// Package session maps client session IDs to conversation stores. IDs
// travel in a cookie; stores live in process memory for the lifetime of
// the session and are dropped once the TTL elapses without activity.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dqassist/dqassist/internal/conversation"
)

type entry struct {
	store    *conversation.Store
	lastSeen time.Time
}

type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewID mints a fresh session identifier.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Store returns the conversation store for the session, creating it on
// first touch. Expired entries are swept opportunistically on access.
func (m *Manager) Store(sessionID string) *conversation.Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	e, ok := m.entries[sessionID]
	if !ok {
		e = &entry{store: conversation.NewStore()}
		m.entries[sessionID] = e
	}
	e.lastSeen = now
	return e.store
}

// Drop removes a session outright.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) sweepLocked(now time.Time) {
	for id, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, id)
		}
	}
}
