// echo-agent is a minimal capability agent built on the runtime adaptor.
// It is useful for smoke-testing dispatch without any OS integration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/qwei/desk-mcp/internal/agentrt"
	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	serverURL := os.Getenv("MCP_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://127.0.0.1:8600"
	}
	listenAddr := os.Getenv("AGENT_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":9301"
	}

	rt, err := agentrt.New(agentrt.Config{
		LogicalName: "EchoAgent",
		ServerURL:   serverURL,
		ListenAddr:  listenAddr,
		Tools: []domainagent.Tool{
			{
				Name:        "echo",
				Description: "Echo back the provided message",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message": map[string]any{"type": "string"},
					},
					"required": []string{"message"},
				},
				Permission: domainagent.PermissionNormal,
			},
			{
				Name:        "shout",
				Description: "Echo back the provided message in upper case",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message": map[string]any{"type": "string"},
					},
					"required": []string{"message"},
				},
				Permission: domainagent.PermissionNormal,
			},
		},
		Handler:        handleTool,
		ReportInterval: 5 * time.Second,
	})
	if err != nil {
		slog.Error("failed to build agent runtime", "error", err)
		os.Exit(1)
	}

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("agent runtime error", "error", err)
		os.Exit(1)
	}
	slog.Info("echo-agent stopped")
}

func handleTool(_ context.Context, toolName string, params json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if in.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	msg := in.Message
	if toolName == "shout" {
		msg = strings.ToUpper(msg)
	}
	return json.Marshal(map[string]any{
		"echo":      msg,
		"timestamp": time.Now().UTC().Unix(),
	})
}
