package runs

import (
	"context"

	"github.com/AltairaLabs/run-tools-mcp/internal/config"
	"github.com/AltairaLabs/run-tools-mcp/internal/schema"
	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
)

// GetHandler handles get-run requests
type GetHandler struct {
	backend Backend
}

// NewGetHandler creates a new get-run handler
func NewGetHandler(b Backend) *GetHandler {
	return &GetHandler{backend: b}
}

// GetShape is the input of get-run
var GetShape = schema.NewShape(
	schema.Field{
		Name:        "runId",
		Kind:        schema.String,
		Required:    true,
		Description: "The ID of the task run to get",
	},
)

// Definition returns the registry entry for get-run
func (h *GetHandler) Definition() tools.Definition {
	return tools.Definition{
		Name:        config.ToolGetRun,
		Description: "Retrieve the details of a task run, e.g., status, attempts, cost, etc.",
		Shape:       GetShape,
		Handler:     h.Handle,
	}
}

// Handle returns the run record unmodified
func (h *GetHandler) Handle(ctx context.Context, args map[string]any) (any, error) {
	runID, _ := args["runId"].(string)
	return h.backend.RetrieveRun(ctx, runID)
}
