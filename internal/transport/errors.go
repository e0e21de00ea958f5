package transport

import "errors"

var (
	// ErrNoActiveSession is returned when a message names no open session
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionClosed is returned when writing to a closed session
	ErrSessionClosed = errors.New("session closed")
	// ErrShuttingDown is returned when opening a session after shutdown
	ErrShuttingDown = errors.New("transport shutting down")
)

// codeNoActiveSession is the JSON-RPC error code sent with ErrNoActiveSession.
// It sits in the implementation-defined server error range.
const codeNoActiveSession = -32001
