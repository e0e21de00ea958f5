package transport

import (
	"sync"

	"github.com/google/uuid"
)

// SessionManager maps session IDs to open sessions. Opening a session when
// the manager is at capacity closes and evicts the oldest one.
type SessionManager struct {
	sessions    map[string]*Session
	order       []string // oldest first
	maxSessions int
	buffer      int
	closed      bool
	mu          sync.RWMutex
}

// NewSessionManager creates a session manager holding at most maxSessions
// sessions, each with an outbound buffer of buffer events
func NewSessionManager(maxSessions, buffer int) *SessionManager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		buffer:      buffer,
	}
}

// Open creates and registers a new session. Sessions evicted to make room are
// returned already closed.
func (sm *SessionManager) Open() (*Session, []*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return nil, nil, ErrShuttingDown
	}

	var evicted []*Session
	for len(sm.order) >= sm.maxSessions {
		oldest := sm.order[0]
		sm.order = sm.order[1:]
		if session, ok := sm.sessions[oldest]; ok {
			delete(sm.sessions, oldest)
			session.Close()
			evicted = append(evicted, session)
		}
	}

	session := newSession(uuid.NewString(), sm.buffer)
	sm.sessions[session.id] = session
	sm.order = append(sm.order, session.id)
	return session, evicted, nil
}

// Get retrieves an open session by ID
func (sm *SessionManager) Get(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[sessionID]
	return session, ok
}

// Remove closes and forgets a session. It reports whether the session was
// still registered.
func (sm *SessionManager) Remove(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return false
	}
	delete(sm.sessions, sessionID)
	for i, id := range sm.order {
		if id == sessionID {
			sm.order = append(sm.order[:i], sm.order[i+1:]...)
			break
		}
	}
	session.Close()
	return true
}

// Count returns the number of open sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// IDs returns the open session IDs, oldest first
func (sm *SessionManager) IDs() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]string, len(sm.order))
	copy(out, sm.order)
	return out
}

// CloseAll closes every session and refuses new ones
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.closed = true
	for id, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, id)
	}
	sm.order = nil
}
