package runs

import (
	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
)

// Definitions returns the three run tools wired to b
func Definitions(b Backend, links Links) []tools.Definition {
	return []tools.Definition{
		NewTriggerHandler(b, links).Definition(),
		NewListHandler(b).Definition(),
		NewGetHandler(b).Definition(),
	}
}
