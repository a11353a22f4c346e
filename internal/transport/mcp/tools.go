package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
)

// RegisterTools registers the fixed management tools. Agent tools are handled
// by the mirror, not here.
func RegisterTools(
	s *mcpserver.MCPServer,
	registrySvc *registrysvc.Service,
	cat *catalog.Service,
	dispatcher *dispatch.Service,
) {
	s.AddTool(mcpmcp.NewTool("list_tools",
		mcpmcp.WithDescription("List every tool the platform can dispatch: built-in server tools plus all registered agents' tools under qualified names."),
	), listToolsHandler(cat))

	s.AddTool(mcpmcp.NewTool("call_tool",
		mcpmcp.WithDescription("Invoke a tool by qualified name (e.g. FileAgent.search_file). Unqualified names hit the server's built-in tools."),
		mcpmcp.WithString("tool_name", mcpmcp.Required(), mcpmcp.Description("Qualified tool name")),
		mcpmcp.WithString("parameters_json", mcpmcp.Description("Tool parameters as a JSON object string")),
	), callToolHandler(dispatcher))

	s.AddTool(mcpmcp.NewTool("list_agents",
		mcpmcp.WithDescription("List registered agent instances with status and last-seen timestamps."),
	), listAgentsHandler(registrySvc))
}

func listToolsHandler(cat *catalog.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		entries, err := cat.List(ctx)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		data, _ := json.Marshal(map[string]any{"tools": entries, "total": len(entries)})
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func callToolHandler(dispatcher *dispatch.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		toolName := mcpmcp.ParseString(req, "tool_name", "")
		if toolName == "" {
			return mcpmcp.NewToolResultError("missing required field: tool_name"), nil
		}
		paramsJSON := mcpmcp.ParseString(req, "parameters_json", "{}")
		if !json.Valid([]byte(paramsJSON)) {
			return mcpmcp.NewToolResultError("invalid JSON in parameters_json"), nil
		}

		envelope, _ := dispatcher.Dispatch(ctx, toolName, json.RawMessage(paramsJSON))
		if !envelope.Success {
			return mcpmcp.NewToolResultError(envelope.Error), nil
		}
		return mcpmcp.NewToolResultText(string(envelope.Result)), nil
	}
}

func listAgentsHandler(registrySvc *registrysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		instances, err := registrySvc.List(ctx)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		data, _ := json.Marshal(map[string]any{"agents": instances, "total": len(instances)})
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

// toolMirror projects agent tool sets onto the MCP server as first-class
// tools, so MCP clients see "FileAgent.search_file" directly instead of going
// through call_tool.
type toolMirror struct {
	srv         *mcpserver.MCPServer
	registrySvc *registrysvc.Service
	dispatcher  *dispatch.Service

	mu        sync.Mutex
	byLogical map[string][]string // logical name -> qualified tool names currently mirrored
}

func newToolMirror(srv *mcpserver.MCPServer, registrySvc *registrysvc.Service, dispatcher *dispatch.Service) *toolMirror {
	return &toolMirror{
		srv:         srv,
		registrySvc: registrySvc,
		dispatcher:  dispatcher,
		byLogical:   make(map[string][]string),
	}
}

var defaultSchema = json.RawMessage(`{"type":"object"}`)

func (m *toolMirror) sync(ctx context.Context, logicalName string) {
	instances, err := m.registrySvc.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "mcp mirror: list agents failed", "agent", logicalName, "error", err)
		return
	}

	var names []string
	for _, inst := range instances {
		if inst.LogicalName != logicalName {
			continue
		}
		for _, t := range inst.Tools {
			qualified := logicalName + "." + t.Name
			schema := defaultSchema
			if t.Parameters != nil {
				if raw, err := json.Marshal(t.Parameters); err == nil {
					schema = raw
				}
			}
			m.srv.AddTool(
				mcpmcp.NewToolWithRawSchema(qualified, t.Description, schema),
				m.forward(qualified),
			)
			names = append(names, qualified)
		}
		break // one instance's tool set is the logical agent's tool set
	}

	m.mu.Lock()
	m.byLogical[logicalName] = names
	m.mu.Unlock()
}

func (m *toolMirror) drop(ctx context.Context, logicalName string) {
	// Other live instances of the same logical agent keep the tools mirrored.
	instances, err := m.registrySvc.List(ctx)
	if err == nil {
		for _, inst := range instances {
			if inst.LogicalName == logicalName {
				return
			}
		}
	}

	m.mu.Lock()
	names := m.byLogical[logicalName]
	delete(m.byLogical, logicalName)
	m.mu.Unlock()

	if len(names) > 0 {
		m.srv.DeleteTools(names...)
	}
}

func (m *toolMirror) forward(qualified string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		params, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcpmcp.NewToolResultError(fmt.Sprintf("encode arguments: %s", err)), nil
		}

		envelope, _ := m.dispatcher.Dispatch(ctx, qualified, params)
		if !envelope.Success {
			return mcpmcp.NewToolResultError(envelope.Error), nil
		}
		return mcpmcp.NewToolResultText(string(envelope.Result)), nil
	}
}
