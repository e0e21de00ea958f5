package config

// Tool names exposed over MCP
const (
	// ToolTriggerTask is the trigger-task tool name
	ToolTriggerTask = "trigger-task"
	// ToolListRuns is the list-runs tool name
	ToolListRuns = "list-runs"
	// ToolGetRun is the get-run tool name
	ToolGetRun = "get-run"
)

// AllTools returns a slice of all available tool names
func AllTools() []string {
	return []string{
		ToolTriggerTask,
		ToolListRuns,
		ToolGetRun,
	}
}
