package runs

import (
	"context"

	"github.com/AltairaLabs/run-tools-mcp/internal/backend"
	"github.com/AltairaLabs/run-tools-mcp/internal/config"
	"github.com/AltairaLabs/run-tools-mcp/internal/schema"
	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
)

// TriggerHandler handles trigger-task requests
type TriggerHandler struct {
	backend Backend
	links   Links
}

// NewTriggerHandler creates a new trigger handler
func NewTriggerHandler(b Backend, links Links) *TriggerHandler {
	return &TriggerHandler{
		backend: b,
		links:   links,
	}
}

// TriggerShape is the input of trigger-task
var TriggerShape = schema.NewShape(
	schema.Field{
		Name:        "id",
		Kind:        schema.String,
		Required:    true,
		Description: "The ID of the task to trigger",
	},
	schema.Field{
		Name:        "payload",
		Kind:        schema.String,
		Required:    true,
		Description: "The payload to pass to the task run, must be a valid JSON",
		Transform:   schema.ParseJSON,
	},
)

// Definition returns the registry entry for trigger-task
func (h *TriggerHandler) Definition() tools.Definition {
	return tools.Definition{
		Name:        config.ToolTriggerTask,
		Description: "Trigger a task",
		Shape:       TriggerShape,
		Handler:     h.Handle,
	}
}

// Handle triggers the task and adds the dashboard link of the new run
func (h *TriggerHandler) Handle(ctx context.Context, args map[string]any) (any, error) {
	id, _ := args["id"].(string)

	record, err := h.backend.TriggerTask(ctx, id, backend.TriggerTaskBody{Payload: args["payload"]})
	if err != nil {
		return nil, err
	}

	out := make(backend.Record, len(record)+1)
	for k, v := range record {
		out[k] = v
	}
	out["taskRunUrl"] = h.links.TaskRunURL(record.ID())
	return out, nil
}
