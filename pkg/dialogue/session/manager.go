// Package session manages per-conversation state and serializes turns
// for a given session identifier.
package session

import (
	"sync"

	"medical-assistant-be/internal/repository/memory"
	"medical-assistant-be/pkg/store"
)

// Manager wraps the in-memory session store with per-session locking:
// at most one turn is in flight for a session at a time, while turns
// for different sessions run fully concurrently.
type Manager struct {
	repo *memory.SessionRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(repo *memory.SessionRepository) *Manager {
	return &Manager{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the turn lock for a session and returns its release
// function. A second message arriving mid-turn blocks here instead of
// interleaving with the running turn.
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// LoadOrCreate retrieves a session's state, creating empty defaults on
// first use. Callers must hold the session lock.
func (m *Manager) LoadOrCreate(sessionID string) *store.ConversationState {
	state, found := m.repo.Get(sessionID)
	if !found {
		state = store.NewConversationState(sessionID)
	}
	return state
}

// Save persists the state back to the store, refreshing its idle TTL.
func (m *Manager) Save(state *store.ConversationState) {
	m.repo.Save(state)
}

// Clear resets a session to empty defaults. It acquires the session's
// turn lock first so an in-flight turn cannot save stale state over
// the wipe, and keeps the lock entry so queued turns stay serialized
// on the same mutex.
func (m *Manager) Clear(sessionID string) {
	unlock := m.Lock(sessionID)
	defer unlock()

	m.repo.Delete(sessionID)
}
