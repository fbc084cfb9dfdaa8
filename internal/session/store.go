package session

import (
	"sync"

	"github.com/dandantas/turnstile/internal/model"
	"github.com/google/uuid"
)

// Store is an in-memory registry of live sessions keyed by session ID
type Store struct {
	mu       sync.RWMutex
	defaults model.ParameterSet
	sessions map[string]*Session
}

// NewStore creates a new session store
func NewStore(defaults model.ParameterSet) *Store {
	return &Store{
		defaults: defaults,
		sessions: make(map[string]*Session),
	}
}

// Create creates a new idle session with default parameters
func (st *Store) Create() *Session {
	s := New(uuid.New().String(), st.defaults)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID()] = s
	return s
}

// Get retrieves a session by ID
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, exists := st.sessions[id]
	return s, exists
}

// Delete resets and removes a session
func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, exists := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if exists {
		s.Reset()
	}
}
