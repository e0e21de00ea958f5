package tools

import (
	"context"
	"log/slog"
	"time"
)

// AuditEntry represents a logged tool event for provenance tracking
type AuditEntry struct {
	Timestamp time.Time
	SessionID string
	ToolName  string
	Arguments map[string]any
	Duration  time.Duration
	ErrorKind ErrorKind
	ErrorMsg  string
}

// AuditLogger handles audit logging for MCP tool calls
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogToolCall logs a tool invocation. Argument values are not logged, only
// their keys, since payloads may carry user data.
func (al *AuditLogger) LogToolCall(ctx context.Context, entry *AuditEntry) {
	keys := make([]string, 0, len(entry.Arguments))
	for k := range entry.Arguments {
		keys = append(keys, k)
	}
	al.logger.InfoContext(ctx, "tool_call",
		"session_id", entry.SessionID,
		"tool_name", entry.ToolName,
		"argument_keys", keys,
		"timestamp", entry.Timestamp,
	)
}

// LogToolResult logs a tool execution result
func (al *AuditLogger) LogToolResult(ctx context.Context, entry *AuditEntry) {
	if entry.ErrorMsg != "" {
		al.logger.ErrorContext(ctx, "tool_error",
			"session_id", entry.SessionID,
			"tool_name", entry.ToolName,
			"error_kind", string(entry.ErrorKind),
			"error", entry.ErrorMsg,
			"duration_ms", entry.Duration.Milliseconds(),
		)
		return
	}
	al.logger.InfoContext(ctx, "tool_result",
		"session_id", entry.SessionID,
		"tool_name", entry.ToolName,
		"duration_ms", entry.Duration.Milliseconds(),
	)
}
