package config

// Messages used throughout the server
const (
	// ErrMissingAccessToken is logged when the server is started without credentials
	ErrMissingAccessToken = "No access token found in the API client, failed to start the MCP server"
	// ErrInvalidPayload is the validation reason for a payload that is not JSON
	ErrInvalidPayload = "The payload must be a valid JSON string"
	// ErrNoActiveSession is returned to clients posting without an open stream
	ErrNoActiveSession = "no active session"
	// MsgServerRunning is logged once the listener is bound
	MsgServerRunning = "MCP server is now running"
	// MsgServerStopped is logged once the listener is closed
	MsgServerStopped = "MCP server is now stopped"
	// TaskRunURLFormat builds the dashboard link for a run: dashboard, project ref, run id
	TaskRunURLFormat = "%s/projects/v3/%s/runs/%s"
)
