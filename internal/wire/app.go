package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qwei/desk-mcp/internal/adapter/httprpc"
	"github.com/qwei/desk-mcp/internal/adapter/memory"
	pgdb "github.com/qwei/desk-mcp/internal/adapter/postgres"
	pgeventbus "github.com/qwei/desk-mcp/internal/adapter/postgres/eventbus"
	pgregistry "github.com/qwei/desk-mcp/internal/adapter/postgres/registry"
	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/event"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	"github.com/qwei/desk-mcp/internal/service/liveness"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
	"github.com/qwei/desk-mcp/internal/transport"
	mcptransport "github.com/qwei/desk-mcp/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool        *pgxpool.Pool // nil with the memory backend
	Server      *http.Server
	RegistrySvc *registrysvc.Service
	Dispatcher  *dispatch.Service
	Broadcaster *liveness.Broadcaster
}

// Build is the composition root: the only place concrete types are wired to
// their interface dependencies.
func Build(ctx context.Context) (*App, error) {
	livenessCfg := liveness.Config{
		Tick:         envDuration("LIVENESS_TICK_SECONDS", 3*time.Second),
		BusyAfter:    envDuration("BUSY_AFTER_SECONDS", 10*time.Second),
		OfflineAfter: envDuration("OFFLINE_AFTER_SECONDS", 60*time.Second),
		PingTimeout:  envDuration("PING_TIMEOUT_SECONDS", 2*time.Second),
	}
	callTimeout := envDuration("CALL_TIMEOUT_SECONDS", 15*time.Second)

	// ── Storage & bus ────────────────────────────────────────────────────────
	var (
		reg  portregistry.Registry
		bus  porteventbus.EventBus
		pool *pgxpool.Pool
	)

	backend := os.Getenv("REGISTRY_BACKEND")
	if backend == "" {
		if os.Getenv("DATABASE_URL") != "" {
			backend = "postgres"
		} else {
			backend = "memory"
		}
	}

	switch backend {
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return nil, fmt.Errorf("REGISTRY_BACKEND=postgres but DATABASE_URL not set")
		}
		p, err := pgdb.Connect(ctx, dbURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		pool = p
		reg = pgregistry.New(pool)
		bus = pgeventbus.New(pool)
	case "memory":
		reg = memory.NewRegistry()
		bus = memory.NewEventBus()
	default:
		return nil, fmt.Errorf("unknown REGISTRY_BACKEND %q", backend)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	caller := httprpc.NewClient(callTimeout)

	registrySvcInstance := registrysvc.NewService(reg, bus)
	catalogSvc := catalog.NewService(reg)
	if err := registerBuiltins(catalogSvc); err != nil {
		return nil, fmt.Errorf("registering built-in tools: %w", err)
	}

	dispatcher := dispatch.NewService(reg, catalogSvc, caller, dispatch.LastReported{}, bus)
	broadcaster := liveness.NewBroadcaster(reg, caller, bus, livenessCfg)

	mcpServer := mcptransport.New(registrySvcInstance, catalogSvc, dispatcher)
	mcpServer.WatchLifecycle(ctx, bus)

	// Drop the broadcast cache entry when an instance unregisters so a fresh
	// instance reusing the id starts from a clean edge.
	if _, err := bus.Subscribe(ctx, event.ChannelLifecycle, func(_ context.Context, e event.Event) {
		if e.Type == event.TypeAgentUnregistered {
			broadcaster.Forget(e.InstanceID)
		}
	}); err != nil {
		slog.Error("failed to subscribe broadcaster to lifecycle channel", "error", err)
	}

	// ── Transport ────────────────────────────────────────────────────────────
	router := transport.NewRouter(
		ctx,
		registrySvcInstance,
		catalogSvc,
		dispatcher,
		mcpServer,
		bus,
		livenessCfg.OfflineAfter,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8600"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	slog.Info("application wired", "port", port, "registry_backend", backend)

	app := &App{
		Pool:        pool,
		Server:      server,
		RegistrySvc: registrySvcInstance,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
	}

	go broadcaster.Run(ctx)

	return app, nil
}

// registerBuiltins installs the server's own tools on the catalog.
func registerBuiltins(cat *catalog.Service) error {
	return cat.AddLocal(domainagent.Tool{
		Name:        "echo",
		Description: "Echo back the provided message",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The message to echo",
				},
			},
			"required": []string{"message"},
		},
	}, func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		return json.Marshal(map[string]any{
			"echo":      in.Message,
			"timestamp": time.Now().UTC().Unix(),
		})
	})
}
