// Package session holds the credential used to call the conveyancing API on behalf of a logged in user.
//
// The login and logout flows are the only writers. The request client only reads the store.
package session

import (
	"encoding/json"
	"errors"
	"sync"
)

var ErrNoSession = errors.New("no session")

// Session is the bearer token returned at login plus the user record the API returned with it.
type Session struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

// Store is implemented by the session stores. Get returns ErrNoSession when nothing is stored.
type Store interface {
	Get() (Session, error)
	Set(Session) error
	Clear() error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil || m.session.Token == "" {
		return Session{}, ErrNoSession
	}
	return *m.session, nil
}

func (m *MemoryStore) Set(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	return nil
}
