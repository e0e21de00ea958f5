// Package runs provides the trigger-task, list-runs and get-run tool handlers
package runs

import (
	"context"

	"github.com/AltairaLabs/run-tools-mcp/internal/backend"
)

// Backend defines the task/run API operations the handlers need
type Backend interface {
	TriggerTask(ctx context.Context, taskID string, body backend.TriggerTaskBody) (backend.Record, error)
	ListRuns(ctx context.Context, filters backend.ListRunsFilters) (*backend.RunList, error)
	RetrieveRun(ctx context.Context, runID string) (backend.Record, error)
}

// Links builds user-facing dashboard URLs
type Links interface {
	TaskRunURL(runID string) string
}

// RunStatuses are the accepted values of the status filter
var RunStatuses = []string{
	"WAITING_FOR_DEPLOY",
	"QUEUED",
	"EXECUTING",
	"REATTEMPTING",
	"FROZEN",
	"COMPLETED",
	"CANCELED",
	"FAILED",
	"CRASHED",
	"INTERRUPTED",
	"SYSTEM_FAILURE",
	"DELAYED",
	"EXPIRED",
	"TIMED_OUT",
	"PENDING_VERSION",
	"DEQUEUED",
	"WAITING",
}
