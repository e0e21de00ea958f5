// Package transport bridges MCP's HTTP+SSE transport onto a message handler.
//
// A client opens a long-lived event stream (GET /sse) and receives the URL to
// post its messages to, which carries the session ID. Each posted message is
// acknowledged with 202 and processed asynchronously; its response is written
// back down the session's stream as a "message" event.
//
// Message processing starts in arrival order per session but runs
// concurrently, so responses are written in completion order. In-flight
// processing is never cancelled: if the session closes first, the response is
// dropped.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/run-tools-mcp/internal/config"
)

const (
	// DefaultSSEPath is the stream-open route
	DefaultSSEPath = "/sse"
	// DefaultMessagePath is the message-post route
	DefaultMessagePath = "/messages"

	sessionIDParam = "sessionId"
)

// MessageHandler processes protocol messages for sessions
type MessageHandler interface {
	RegisterSession(ctx context.Context, session *Session) error
	UnregisterSession(ctx context.Context, sessionID string)
	// HandleMessage returns the response to write to the session, or nil for
	// notifications
	HandleMessage(ctx context.Context, session *Session, message json.RawMessage) any
}

// Options configures a Transport
type Options struct {
	SSEPath         string
	MessagePath     string
	KeepAlive       time.Duration
	MaxSessions     int
	SessionBuffer   int
	MaxMessageBytes int64
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SSEPath == "" {
		o.SSEPath = DefaultSSEPath
	}
	if o.MessagePath == "" {
		o.MessagePath = DefaultMessagePath
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = config.DefaultKeepAliveInterval
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = config.DefaultMaxSessions
	}
	if o.SessionBuffer <= 0 {
		o.SessionBuffer = config.DefaultSessionBuffer
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = config.DefaultMaxMessageBytes
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Transport owns the sessions and routes messages to the handler
type Transport struct {
	opts     Options
	handler  MessageHandler
	sessions *SessionManager
	logger   *slog.Logger
}

// New creates a transport delivering messages to handler
func New(handler MessageHandler, opts Options) *Transport {
	opts = opts.withDefaults()
	return &Transport{
		opts:     opts,
		handler:  handler,
		sessions: NewSessionManager(opts.MaxSessions, opts.SessionBuffer),
		logger:   opts.Logger,
	}
}

// Sessions exposes the session manager
func (t *Transport) Sessions() *SessionManager {
	return t.sessions
}

// SSEPath returns the stream-open route
func (t *Transport) SSEPath() string {
	return t.opts.SSEPath
}

// MessagePath returns the message-post route
func (t *Transport) MessagePath() string {
	return t.opts.MessagePath
}

// HandleSSE opens a session and streams its events until the client
// disconnects, the session is replaced, or the transport shuts down.
func (t *Transport) HandleSSE(w http.ResponseWriter, r *http.Request) {
	ew, ok := newEventWriter(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	session, evicted, err := t.sessions.Open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	for _, old := range evicted {
		t.logger.Info("Replaced previous session", "session_id", old.SessionID(), "new_session_id", session.SessionID())
	}

	if err := t.handler.RegisterSession(r.Context(), session); err != nil {
		t.sessions.Remove(session.SessionID())
		t.logger.Error("Failed to register session", "session_id", session.SessionID(), "error", err)
		http.Error(w, "failed to register session", http.StatusInternalServerError)
		return
	}
	defer t.release(session)

	t.logger.Info("Session opened", "session_id", session.SessionID(), "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := ew.writeEvent(Event{Name: "endpoint", Data: []byte(t.endpointFor(session))}); err != nil {
		return
	}

	go t.consume(session)
	t.stream(r.Context(), ew, session)
}

// stream pumps session events to the response
func (t *Transport) stream(ctx context.Context, ew *eventWriter, session *Session) {
	keepAlive := time.NewTicker(t.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case ev := <-session.events:
			err = ew.writeEvent(ev)
		case notification := <-session.notifications:
			data, mErr := json.Marshal(notification)
			if mErr != nil {
				t.logger.Error("Failed to encode notification", "session_id", session.SessionID(), "error", mErr)
				continue
			}
			err = ew.writeEvent(Event{Name: "message", Data: data})
		case <-keepAlive.C:
			err = ew.writeComment("ping")
		case <-session.Done():
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			t.logger.Debug("Stream write failed", "session_id", session.SessionID(), "error", err)
			return
		}
	}
}

// consume starts processing of each inbound message in arrival order
func (t *Transport) consume(session *Session) {
	for {
		select {
		case msg := <-session.inbox:
			go t.process(session, msg)
		case <-session.Done():
			return
		}
	}
}

// process handles one message. Its context outlives both the HTTP request and
// the session, so in-flight backend calls are never cancelled.
func (t *Transport) process(session *Session, msg json.RawMessage) {
	response := t.handler.HandleMessage(context.Background(), session, msg)
	if response == nil {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		t.logger.Error("Failed to encode response", "session_id", session.SessionID(), "error", err)
		return
	}

	if err := session.Send(Event{Name: "message", Data: data}); err != nil {
		t.logger.Debug("Dropping response for closed session", "session_id", session.SessionID())
	}
}

func (t *Transport) release(session *Session) {
	t.sessions.Remove(session.SessionID())
	t.handler.UnregisterSession(context.Background(), session.SessionID())
	t.logger.Info("Session closed", "session_id", session.SessionID())
}

func (t *Transport) endpointFor(session *Session) string {
	return t.opts.MessagePath + "?" + sessionIDParam + "=" + url.QueryEscape(session.SessionID())
}

// HandleMessage accepts one posted protocol message for the session named in
// the query string
func (t *Transport) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get(sessionIDParam)
	session, ok := t.sessions.Get(sessionID)
	if !ok {
		t.logger.Warn("Message for no active session", "session_id", sessionID)
		writeRPCError(w, http.StatusNotFound, codeNoActiveSession, ErrNoActiveSession.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, t.opts.MaxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeRPCError(w, http.StatusRequestEntityTooLarge, mcp.INVALID_REQUEST, "message too large")
			return
		}
		writeRPCError(w, http.StatusBadRequest, mcp.PARSE_ERROR, "failed to read body")
		return
	}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		writeRPCError(w, http.StatusBadRequest, mcp.PARSE_ERROR, "Parse error")
		return
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "expected a single JSON-RPC message")
		return
	}

	if err := session.enqueue(json.RawMessage(trimmed)); err != nil {
		writeRPCError(w, http.StatusNotFound, codeNoActiveSession, ErrNoActiveSession.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, "Accepted")
}

// Shutdown closes every session and refuses new streams. Open streams return
// immediately; in-flight messages finish in the background and their
// responses are dropped.
func (t *Transport) Shutdown() {
	t.sessions.CloseAll()
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcErrorResponse struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Error   rpcErrorBody `json:"error"`
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      nil,
		Error:   rpcErrorBody{Code: code, Message: message},
	})
}
