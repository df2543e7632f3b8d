package wizard

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the ephemeral progress of one user through the wizard.
type Session struct {
	ID       string
	State    State
	APIToken string
	ZoneID   string
	Domain   string
	TargetIP string
}

func newSession() Session {
	return Session{ID: uuid.NewString(), State: StateAwaitCredential}
}

// Store holds at most one session per user. Sessions are stored and
// returned by value, so callers never share mutable state.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]Session)}
}

// Put stores s for userID, replacing any session in progress.
func (s *Store) Put(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Get returns the session of userID, if any.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Update replaces the stored session only if it is still the one identified
// by sess.ID. It reports whether the write happened.
func (s *Store) Update(userID int64, sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[userID]
	if !ok || cur.ID != sess.ID {
		return false
	}
	s.sessions[userID] = sess
	return true
}

// Delete discards the session of userID and reports whether one existed.
func (s *Store) Delete(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// CompareAndDelete discards the session of userID only if its ID is id.
func (s *Store) CompareAndDelete(userID int64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[userID]
	if !ok || cur.ID != id {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Len returns the number of sessions in progress.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
