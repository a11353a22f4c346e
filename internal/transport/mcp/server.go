// Package mcp exposes the aggregated tool catalog over the Model Context
// Protocol so MCP-speaking reasoning layers can drive dispatch directly.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/qwei/desk-mcp/internal/domain/event"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// Fixed management tools are registered in tools.go; agent tools are mirrored
// dynamically as registrations come and go.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	mcpSrv  *mcpserver.MCPServer
	mirror  *toolMirror
}

func New(
	registrySvc *registrysvc.Service,
	cat *catalog.Service,
	dispatcher *dispatch.Service,
) *Server {
	mcpSrv := mcpserver.NewMCPServer(
		"desk-mcp",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mirror := newToolMirror(mcpSrv, registrySvc, dispatcher)
	RegisterTools(mcpSrv, registrySvc, cat, dispatcher)

	return &Server{
		httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv),
		mcpSrv:  mcpSrv,
		mirror:  mirror,
	}
}

// Handler returns the http.Handler serving the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// WatchLifecycle keeps the mirrored tool set in sync with agent
// registrations. Call once after the event bus is wired.
func (s *Server) WatchLifecycle(ctx context.Context, bus porteventbus.EventBus) {
	if _, err := bus.Subscribe(ctx, event.ChannelLifecycle, func(ctx context.Context, e event.Event) {
		switch e.Type {
		case event.TypeAgentRegistered:
			s.mirror.sync(ctx, e.LogicalName)
		case event.TypeAgentUnregistered:
			s.mirror.drop(ctx, e.LogicalName)
		}
	}); err != nil {
		slog.Error("mcp: failed to subscribe to lifecycle channel", "error", err)
	}
}
