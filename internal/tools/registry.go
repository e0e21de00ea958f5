// Package tools maps tool names to schema-validated handlers and dispatches
// invocations to them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/run-tools-mcp/internal/schema"
)

// HandlerFunc handles a tool call with arguments already validated and
// coerced against the tool's shape. The returned value is serialized as
// indented JSON.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Definition describes one tool
type Definition struct {
	Name        string
	Description string
	Shape       schema.Shape
	Handler     HandlerFunc
}

// Invocation is one tool call as received from a client. Arguments are raw
// and unvalidated.
type Invocation struct {
	Name      string
	Arguments map[string]any
}

// Registry maps tool names to definitions. It is populated once at startup
// and only read afterwards.
type Registry struct {
	definitions map[string]Definition
	audit       *AuditLogger
}

// NewRegistry creates a registry holding defs
func NewRegistry(audit *AuditLogger, defs ...Definition) *Registry {
	if audit == nil {
		audit = NewAuditLogger(slog.Default())
	}
	r := &Registry{
		definitions: make(map[string]Definition, len(defs)),
		audit:       audit,
	}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register adds a definition. Registering a name twice is a programming error.
func (r *Registry) Register(def Definition) {
	if def.Name == "" || def.Handler == nil {
		panic("tools: definition needs a name and a handler")
	}
	if _, exists := r.definitions[def.Name]; exists {
		panic(fmt.Sprintf("tools: %s registered twice", def.Name))
	}
	r.definitions[def.Name] = def
}

// Lookup returns the definition registered under name
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// Names returns the registered tool names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the protocol-visible declaration of every tool
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.definitions))
	for _, name := range r.Names() {
		def := r.definitions[name]
		out = append(out, mcp.NewToolWithRawSchema(def.Name, def.Description, def.Shape.JSONSchema()))
	}
	return out
}

// Dispatch validates args against the named tool's shape and runs its
// handler. Failures are returned as *DispatchError; the handler is never
// called when validation fails.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	def, ok := r.definitions[name]
	if !ok {
		return nil, &DispatchError{Kind: UnknownTool, Tool: name, Err: ErrUnknownTool}
	}

	validated := schema.Validate(def.Shape, args)
	if !validated.OK() {
		return nil, &DispatchError{Kind: InvalidArguments, Tool: name, Err: validated.Err}
	}

	value, err := r.invoke(ctx, def, validated.Value)
	if err != nil {
		return nil, &DispatchError{Kind: HandlerFailure, Tool: name, Err: err}
	}

	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, &DispatchError{Kind: HandlerFailure, Tool: name, Err: fmt.Errorf("encoding result: %w", err)}
	}
	return mcp.NewToolResultText(string(text)), nil
}

// ToolResult dispatches and folds every failure into a tool-level error
// result, so errors reach the client as content rather than protocol errors.
func (r *Registry) ToolResult(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	entry := &AuditEntry{
		Timestamp: time.Now(),
		SessionID: sessionID(ctx),
		ToolName:  name,
		Arguments: args,
	}
	r.audit.LogToolCall(ctx, entry)

	result, err := r.Dispatch(ctx, name, args)
	entry.Duration = time.Since(entry.Timestamp)
	if err != nil {
		entry.ErrorKind = KindOf(err)
		entry.ErrorMsg = err.Error()
		r.audit.LogToolResult(ctx, entry)
		return mcp.NewToolResultError(err.Error())
	}

	r.audit.LogToolResult(ctx, entry)
	return result
}

// Call runs inv through ToolResult
func (r *Registry) Call(ctx context.Context, inv Invocation) *mcp.CallToolResult {
	return r.ToolResult(ctx, inv.Name, inv.Arguments)
}

// MCPHandler adapts the named tool to mcp-go's handler signature
func (r *Registry) MCPHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return r.Call(ctx, Invocation{Name: name, Arguments: request.GetArguments()}), nil
	}
}

// invoke runs the handler, turning a panic into an error confined to this call
func (r *Registry) invoke(ctx context.Context, def Definition, args map[string]any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "panic in tool handler", "tool_name", def.Name, "panic", p)
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return def.Handler(ctx, args)
}

// sessionID extracts the MCP session ID injected by the transport
func sessionID(ctx context.Context) string {
	if clientSession := server.ClientSessionFromContext(ctx); clientSession != nil {
		return clientSession.SessionID()
	}
	return ""
}
