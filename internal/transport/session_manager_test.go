package transport

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewSessionManager(t *testing.T) {
	manager := NewSessionManager(0, 0)
	if manager == nil {
		t.Fatal("Expected non-nil manager")
	}
	if manager.maxSessions != 1 {
		t.Errorf("Expected capacity to be clamped to 1, got %d", manager.maxSessions)
	}
	if count := manager.Count(); count != 0 {
		t.Errorf("Expected 0 sessions, got %d", count)
	}
}

func TestSessionManager_Open(t *testing.T) {
	manager := NewSessionManager(2, 4)

	session, evicted, err := manager.Open()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("Expected no evictions, got %d", len(evicted))
	}
	if session.SessionID() == "" {
		t.Error("Expected a session ID")
	}

	got, ok := manager.Get(session.SessionID())
	if !ok || got != session {
		t.Error("Expected session to be retrievable by ID")
	}
}

func TestSessionManager_Open_UniqueIDs(t *testing.T) {
	manager := NewSessionManager(10, 1)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		session, _, err := manager.Open()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if seen[session.SessionID()] {
			t.Fatalf("Duplicate session ID %s", session.SessionID())
		}
		seen[session.SessionID()] = true
	}
}

func TestSessionManager_Open_EvictsOldest(t *testing.T) {
	manager := NewSessionManager(2, 1)

	first, _, _ := manager.Open()
	second, _, _ := manager.Open()
	third, evicted, err := manager.Open()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(evicted) != 1 || evicted[0] != first {
		t.Fatalf("Expected the first session to be evicted, got %v", evicted)
	}
	if !first.Closed() {
		t.Error("Expected evicted session to be closed")
	}
	if _, ok := manager.Get(first.SessionID()); ok {
		t.Error("Expected evicted session to be gone")
	}

	ids := manager.IDs()
	if len(ids) != 2 || ids[0] != second.SessionID() || ids[1] != third.SessionID() {
		t.Errorf("Unexpected session order %v", ids)
	}
}

func TestSessionManager_Remove(t *testing.T) {
	manager := NewSessionManager(1, 1)
	session, _, _ := manager.Open()

	if !manager.Remove(session.SessionID()) {
		t.Error("Expected Remove to report the session")
	}
	if !session.Closed() {
		t.Error("Expected removed session to be closed")
	}
	if manager.Remove(session.SessionID()) {
		t.Error("Expected second Remove to be a no-op")
	}
	if count := manager.Count(); count != 0 {
		t.Errorf("Expected 0 sessions, got %d", count)
	}
}

func TestSessionManager_Remove_KeepsReplacement(t *testing.T) {
	manager := NewSessionManager(1, 1)
	old, _, _ := manager.Open()
	replacement, _, _ := manager.Open()

	// the old stream's cleanup runs after the replacement opened
	if manager.Remove(old.SessionID()) {
		t.Error("Expected evicted session to already be unregistered")
	}
	if _, ok := manager.Get(replacement.SessionID()); !ok {
		t.Error("Expected replacement session to survive")
	}
}

func TestSessionManager_CloseAll(t *testing.T) {
	manager := NewSessionManager(3, 1)
	a, _, _ := manager.Open()
	b, _, _ := manager.Open()

	manager.CloseAll()

	if !a.Closed() || !b.Closed() {
		t.Error("Expected all sessions to be closed")
	}
	if count := manager.Count(); count != 0 {
		t.Errorf("Expected 0 sessions, got %d", count)
	}
	if _, _, err := manager.Open(); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Expected ErrShuttingDown, got %v", err)
	}

	manager.CloseAll()
}

func TestSession_SendAfterClose(t *testing.T) {
	session := newSession("s", 1)

	if err := session.Send(Event{Name: "message", Data: []byte("{}")}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	session.Close()
	session.Close()

	if err := session.Send(Event{Name: "message"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if err := session.enqueue(json.RawMessage(`{}`)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_SendUnblocksOnClose(t *testing.T) {
	session := newSession("s", 1)
	_ = session.Send(Event{Name: "fill"})

	result := make(chan error, 1)
	go func() {
		result <- session.Send(Event{Name: "blocked"})
	}()

	session.Close()
	if err := <-result; !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_Initialize(t *testing.T) {
	session := newSession("s", 1)
	if session.Initialized() {
		t.Error("Expected new session to be uninitialized")
	}
	session.Initialize()
	if !session.Initialized() {
		t.Error("Expected session to be initialized")
	}
}
