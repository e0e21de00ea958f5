// Package server wires the tool registry, backend client and session
// transport into a runnable MCP server.
package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
	"github.com/AltairaLabs/run-tools-mcp/internal/transport"
)

// MCPServer wraps the mcp-go server with the run tools
type MCPServer struct {
	server   *server.MCPServer
	registry *tools.Registry
}

// Info names the server during the initialize handshake
type Info struct {
	Name    string
	Version string
}

// NewMCPServer creates an mcp-go server declaring every tool in registry
func NewMCPServer(info Info, registry *tools.Registry) *MCPServer {
	mcpServer := server.NewMCPServer(
		info.Name,
		info.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	ms := &MCPServer{
		server:   mcpServer,
		registry: registry,
	}
	ms.registerTools()
	return ms
}

// registerTools declares the registry's tools so they appear in tools/list
func (ms *MCPServer) registerTools() {
	for _, tool := range ms.registry.Tools() {
		ms.server.AddTool(tool, ms.registry.MCPHandler(tool.Name))
	}
}

// Serve runs the server over stdio until stdin closes
func (ms *MCPServer) Serve() error {
	return server.ServeStdio(ms.server)
}

// RegisterSession makes the session known to the protocol layer
func (ms *MCPServer) RegisterSession(ctx context.Context, session *transport.Session) error {
	return ms.server.RegisterSession(ctx, session)
}

// UnregisterSession forgets a closed session
func (ms *MCPServer) UnregisterSession(ctx context.Context, sessionID string) {
	ms.server.UnregisterSession(ctx, sessionID)
}

// rpcRequest is the part of a JSON-RPC message needed for routing
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isToolCall reports whether req is a tools/call request expecting a response
func (req rpcRequest) isToolCall() bool {
	return req.JSONRPC == mcp.JSONRPC_VERSION &&
		req.Method == string(mcp.MethodToolsCall) &&
		len(req.ID) > 0 && string(req.ID) != "null"
}

type rpcResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type rpcError struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   rpcErrorDetail  `json:"error"`
}

type rpcErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleMessage answers one protocol message for session. tools/call requests
// go through the registry so that every failure, including an unknown tool
// name, comes back as a tool-level error result. Everything else is handled
// by mcp-go.
func (ms *MCPServer) HandleMessage(ctx context.Context, session *transport.Session, message json.RawMessage) any {
	ctx = ms.server.WithContext(ctx, session)

	var req rpcRequest
	if err := json.Unmarshal(message, &req); err == nil && req.isToolCall() {
		return ms.callTool(ctx, req)
	}

	return ms.server.HandleMessage(ctx, message)
}

func (ms *MCPServer) callTool(ctx context.Context, req rpcRequest) any {
	var params mcp.CallToolParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil || params.Name == "" {
		return rpcError{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Error:   rpcErrorDetail{Code: mcp.INVALID_PARAMS, Message: "tools/call requires a tool name"},
		}
	}

	args, _ := params.Arguments.(map[string]any)
	return rpcResult{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      req.ID,
		Result:  ms.registry.Call(ctx, tools.Invocation{Name: params.Name, Arguments: args}),
	}
}
