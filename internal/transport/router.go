package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qwei/desk-mcp/internal/domain/event"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
	mcptransport "github.com/qwei/desk-mcp/internal/transport/mcp"
	rpchandler "github.com/qwei/desk-mcp/internal/transport/rpc"
	wshandler "github.com/qwei/desk-mcp/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	registrySvc *registrysvc.Service,
	cat *catalog.Service,
	dispatcher *dispatch.Service,
	mcpServer *mcptransport.Server,
	eventBus porteventbus.EventBus,
	offlineAfter time.Duration,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	rpchandler.NewHandler(registrySvc, cat, dispatcher, offlineAfter).Register(r.Group("/rpc"))

	// MCP-speaking reasoning layers mount at /mcp; the bespoke surface stays
	// under /rpc for agents and operator tooling.
	r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
	r.Any("/mcp/*path", gin.WrapH(mcpServer.Handler()))

	hub := wshandler.NewHub()
	hub.Register(r.Group("/api/ws"))

	// Bridge: one subscription per domain channel. Everything in a channel is
	// forwarded; event.Type in the payload lets the client filter.
	for _, ch := range []event.Channel{
		event.ChannelLifecycle,
		event.ChannelLiveness,
		event.ChannelCalls,
	} {
		c := ch
		if _, err := eventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
