package session

import (
	"context"
	"sync"
	"time"

	"github.com/transmeralda/fleetdocs/constants"
)

// MemoryStore is an in-process Store for tests and for running without
// redis. Same transition rules as the redis implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[string]State
	deadline map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[string]State),
		deadline: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Init(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.Status = constants.StatusQueued
	state.UpdatedAt = time.Now().UTC()
	m.states[state.SessionID] = state
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[sessionID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	if dl, set := m.deadline[sessionID]; set && time.Now().After(dl) {
		return State{}, ErrSessionNotFound
	}
	return st, nil
}

func (m *MemoryStore) Advance(_ context.Context, sessionID string, status constants.SessionStatus, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	next, err := st.advance(status, progress, message, time.Now().UTC())
	if err != nil {
		return err
	}
	m.states[sessionID] = next
	return nil
}

func (m *MemoryStore) SetDocument(_ context.Context, sessionID string, processed int, progress int, category constants.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	next, err := st.advance(st.Status, progress, "", time.Now().UTC())
	if err != nil {
		return err
	}
	next.ProcessedCount = processed
	next.CurrentCategory = string(category)
	m.states[sessionID] = next
	return nil
}

func (m *MemoryStore) Fail(_ context.Context, sessionID string, errType constants.ErrorType, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	next, err := st.fail(errType, message, time.Now().UTC())
	if err != nil {
		return nil // already terminal
	}
	m.states[sessionID] = next
	return nil
}

func (m *MemoryStore) ExpireAfter(_ context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline[sessionID] = time.Now().Add(ttl)
	return nil
}
