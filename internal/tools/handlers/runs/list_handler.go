package runs

import (
	"context"
	"time"

	"github.com/AltairaLabs/run-tools-mcp/internal/backend"
	"github.com/AltairaLabs/run-tools-mcp/internal/config"
	"github.com/AltairaLabs/run-tools-mcp/internal/schema"
	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
)

// ListHandler handles list-runs requests
type ListHandler struct {
	backend Backend
}

// NewListHandler creates a new list-runs handler
func NewListHandler(b Backend) *ListHandler {
	return &ListHandler{backend: b}
}

// ListShape is the input of list-runs
var ListShape = schema.NewShape(
	schema.Field{
		Name:        "filters",
		Kind:        schema.Object,
		Required:    true,
		Description: "Parameters for listing task runs",
		Fields: []schema.Field{
			{
				Name:        "status",
				Kind:        schema.Enum,
				Values:      RunStatuses,
				Description: "The status of the run. Can be WAITING_FOR_DEPLOY, QUEUED, EXECUTING, REATTEMPTING, or FROZEN",
			},
			{
				Name:        "taskIdentifier",
				Kind:        schema.StringOrStrings,
				Description: "The identifier of the task that was run",
			},
			{
				Name:        "version",
				Kind:        schema.StringOrStrings,
				Description: "The version of the worker that executed the run",
			},
			{
				Name:        "from",
				Kind:        schema.NumberOrDate,
				Description: "Start date/time for filtering runs",
			},
			{
				Name:        "to",
				Kind:        schema.NumberOrDate,
				Description: "End date/time for filtering runs",
			},
			{
				Name:        "period",
				Kind:        schema.String,
				Description: "Time period for filtering runs",
			},
			{
				Name:        "bulkAction",
				Kind:        schema.String,
				Description: "The bulk action ID to filter the runs by (e.g., bulk_1234)",
			},
			{
				Name:        "tag",
				Kind:        schema.StringOrStrings,
				Description: "The tags that are attached to the run",
			},
			{
				Name:        "schedule",
				Kind:        schema.String,
				Description: "The schedule ID to filter the runs by (e.g., schedule_1234)",
			},
			{
				Name:        "isTest",
				Kind:        schema.Boolean,
				Description: "Whether the run is a test run or not",
			},
			{
				Name:        "batch",
				Kind:        schema.String,
				Description: "The batch identifier to filter runs by",
			},
		},
	},
)

// Definition returns the registry entry for list-runs
func (h *ListHandler) Definition() tools.Definition {
	return tools.Definition{
		Name:        config.ToolListRuns,
		Description: "List task runs. This returns a paginated list which shows the details of the runs, e.g., status, attempts, cost, etc.",
		Shape:       ListShape,
		Handler:     h.Handle,
	}
}

// Handle returns one page of runs as {data, pagination}
func (h *ListHandler) Handle(ctx context.Context, args map[string]any) (any, error) {
	filters, _ := args["filters"].(map[string]any)

	list, err := h.backend.ListRuns(ctx, FiltersFromArgs(filters))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"data":       list.Data,
		"pagination": list.Pagination,
	}, nil
}

// FiltersFromArgs converts validated list-runs filters to backend filters
func FiltersFromArgs(args map[string]any) backend.ListRunsFilters {
	var f backend.ListRunsFilters

	if status, ok := args["status"].(string); ok {
		f.Status = []string{status}
	}
	f.TaskIdentifier, _ = args["taskIdentifier"].([]string)
	f.Version, _ = args["version"].([]string)
	f.Tag, _ = args["tag"].([]string)

	if from, ok := args["from"].(time.Time); ok {
		f.From = &from
	}
	if to, ok := args["to"].(time.Time); ok {
		f.To = &to
	}

	f.Period, _ = args["period"].(string)
	f.BulkAction, _ = args["bulkAction"].(string)
	f.Schedule, _ = args["schedule"].(string)
	f.Batch, _ = args["batch"].(string)

	if isTest, ok := args["isTest"].(bool); ok {
		f.IsTest = &isTest
	}

	return f
}
