// Package agentrt is the runtime adaptor shared by every capability agent:
// it serves the agent's own RPC endpoint, registers with the coordination
// server (retrying until it appears), reports status periodically, and
// unregisters on shutdown.
package agentrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/rpc"
	"github.com/qwei/desk-mcp/internal/port/loadmetric"
)

// ToolHandler executes one of the agent's tools. Returning an error produces
// a tool-level failure envelope; it never looks like an unreachable agent.
type ToolHandler func(ctx context.Context, toolName string, params json.RawMessage) (json.RawMessage, error)

type Config struct {
	LogicalName string
	ServerURL   string // coordination server base URL
	ListenAddr  string // local bind address, e.g. ":9301"
	Advertise   string // endpoint advertised at registration; defaults to http://127.0.0.1+ListenAddr
	Tools       []domainagent.Tool
	Handler     ToolHandler

	// ReportInterval is the cadence of UpdateAgentStatus pushes. Zero
	// disables reporting (liveness then relies on server-side pings).
	ReportInterval time.Duration
	Sampler        loadmetric.Sampler
}

type Runtime struct {
	cfg        Config
	client     *serverClient
	httpSrv    *http.Server
	instanceID string
}

func New(cfg Config) (*Runtime, error) {
	if cfg.LogicalName == "" {
		return nil, errors.New("agentrt: LogicalName is required")
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("agentrt: ServerURL is required")
	}
	if cfg.Handler == nil {
		return nil, errors.New("agentrt: Handler is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, errors.New("agentrt: at least one tool must be declared")
	}
	if cfg.Advertise == "" {
		cfg.Advertise = "http://127.0.0.1" + cfg.ListenAddr
	}
	if cfg.Sampler == nil {
		cfg.Sampler = SelfSampler()
	}

	return &Runtime{
		cfg:    cfg,
		client: newServerClient(cfg.ServerURL),
	}, nil
}

// InstanceID returns the id issued at registration, empty before Run
// registers successfully.
func (rt *Runtime) InstanceID() string { return rt.instanceID }

// Run serves the agent endpoint and blocks until ctx is cancelled, then
// unregisters and shuts the endpoint down.
func (rt *Runtime) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/rpc/ToolsCall", rt.handleToolsCall)
	r.POST("/rpc/Ping", rt.handlePing)
	r.GET("/rpc/Ping", rt.handlePing)

	rt.httpSrv = &http.Server{Addr: rt.cfg.ListenAddr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("agent endpoint listening", "agent", rt.cfg.LogicalName, "addr", rt.cfg.ListenAddr)
		if err := rt.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if err := rt.registerWithRetry(ctx); err != nil {
		rt.shutdown()
		return err
	}

	if rt.cfg.ReportInterval > 0 {
		go rt.reportLoop(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("agent endpoint: %w", err)
		}
	}

	rt.unregister()
	rt.shutdown()
	return nil
}

// registerWithRetry registers with exponential backoff capped at 30s. Agents
// routinely start before the server does; they keep trying until it appears.
func (rt *Runtime) registerWithRetry(ctx context.Context) error {
	backoff := time.Second
	for {
		instanceID, err := rt.client.register(ctx, registerPayload{
			Name:    rt.cfg.LogicalName,
			Service: rt.cfg.Advertise,
			Tools:   rt.cfg.Tools,
		})
		if err == nil {
			rt.instanceID = instanceID
			slog.Info("registered with server",
				"agent", rt.cfg.LogicalName, "instance_id", instanceID, "server", rt.cfg.ServerURL)
			return nil
		}

		slog.Warn("registration failed, retrying",
			"agent", rt.cfg.LogicalName, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (rt *Runtime) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(rt.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load, err := rt.cfg.Sampler.Sample(ctx)
			if err != nil {
				load = loadmetric.NeutralLoad
			}
			if err := rt.client.updateStatus(ctx, rt.instanceID, string(domainagent.StatusOnline), load); err != nil {
				slog.Warn("status report failed", "agent", rt.cfg.LogicalName, "error", err)
			}
		}
	}
}

func (rt *Runtime) unregister() {
	if rt.instanceID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.client.unregister(ctx, rt.instanceID); err != nil {
		slog.Warn("unregister failed", "agent", rt.cfg.LogicalName, "error", err)
		return
	}
	slog.Info("unregistered from server", "agent", rt.cfg.LogicalName, "instance_id", rt.instanceID)
}

func (rt *Runtime) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.httpSrv.Shutdown(ctx); err != nil {
		slog.Error("agent endpoint shutdown error", "error", err)
	}
}

func (rt *Runtime) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Unix(),
		"service":   rt.cfg.LogicalName,
	})
}

func (rt *Runtime) handleToolsCall(c *gin.Context) {
	var req rpc.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, rpc.Fail("invalid JSON body: "+err.Error()))
		return
	}

	if !rt.hasTool(req.ToolName) {
		c.JSON(http.StatusOK, rpc.Fail(fmt.Sprintf("tool %q not found", req.ToolName)))
		return
	}

	result, err := rt.cfg.Handler(c.Request.Context(), req.ToolName, req.Parameters)
	if err != nil {
		c.JSON(http.StatusOK, rpc.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, rpc.Ok(result))
}

func (rt *Runtime) hasTool(name string) bool {
	for _, t := range rt.cfg.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
