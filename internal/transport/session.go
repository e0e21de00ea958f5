package transport

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Event is one server-sent event
type Event struct {
	Name string
	Data []byte
}

// Session is one client bound to one open event stream. It implements
// mcp-go's server.ClientSession so protocol notifications reach the stream.
type Session struct {
	id        string
	createdAt time.Time

	events        chan Event
	notifications chan mcp.JSONRPCNotification
	inbox         chan json.RawMessage

	done        chan struct{}
	closeOnce   sync.Once
	initialized atomic.Bool
}

func newSession(id string, buffer int) *Session {
	return &Session{
		id:            id,
		createdAt:     time.Now(),
		events:        make(chan Event, buffer),
		notifications: make(chan mcp.JSONRPCNotification, buffer),
		inbox:         make(chan json.RawMessage, buffer),
		done:          make(chan struct{}),
	}
}

// SessionID returns the session identity
func (s *Session) SessionID() string {
	return s.id
}

// CreatedAt returns when the stream was opened
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// NotificationChannel is where the MCP server pushes notifications
func (s *Session) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

// Initialize marks the session as initialized by the client
func (s *Session) Initialize() {
	s.initialized.Store(true)
}

// Initialized reports whether the client completed the handshake
func (s *Session) Initialized() bool {
	return s.initialized.Load()
}

// Done is closed when the session closes
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the session has been closed
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Send queues an event for the stream. It blocks while the stream is backed
// up and fails once the session is closed.
func (s *Session) Send(ev Event) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// enqueue hands an inbound message to the session's consumer
func (s *Session) enqueue(msg json.RawMessage) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}
