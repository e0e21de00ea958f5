package config

import "time"

// Default timing configurations used throughout the server
const (
	// DefaultKeepAliveInterval is how often an idle event stream receives a comment line
	DefaultKeepAliveInterval = 30 * time.Second

	// DefaultRequestTimeout bounds a single backend API call
	DefaultRequestTimeout = 60 * time.Second

	// DefaultShutdownTimeout bounds the HTTP server shutdown
	DefaultShutdownTimeout = 2 * time.Second

	// DefaultReadHeaderTimeout guards the listener against slow clients
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Default sizing used by the session transport
const (
	// DefaultMaxSessions is the number of concurrently open streams
	DefaultMaxSessions = 1

	// DefaultSessionBuffer is the outbound event buffer per session
	DefaultSessionBuffer = 64

	// DefaultMaxMessageBytes caps a single posted message body
	DefaultMaxMessageBytes = 4 << 20
)
