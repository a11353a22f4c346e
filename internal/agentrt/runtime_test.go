package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/rpc"
)

func init() { gin.SetMode(gin.TestMode) }

func testRuntime(t *testing.T, handler ToolHandler) *Runtime {
	t.Helper()
	rt, err := New(Config{
		LogicalName: "EchoAgent",
		ServerURL:   "http://127.0.0.1:8600",
		ListenAddr:  ":9301",
		Tools:       []domainagent.Tool{{Name: "echo", Description: "Echo back the message"}},
		Handler:     handler,
	})
	require.NoError(t, err)
	return rt
}

func serveToolsCall(rt *Runtime, body string) rpc.CallResponse {
	r := gin.New()
	r.POST("/rpc/ToolsCall", rt.handleToolsCall)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "/rpc/ToolsCall", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var envelope rpc.CallResponse
	json.Unmarshal(w.Body.Bytes(), &envelope) //nolint:errcheck
	return envelope
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantText string
	}{
		{"missing logical name", func(c *Config) { c.LogicalName = "" }, "LogicalName"},
		{"missing server url", func(c *Config) { c.ServerURL = "" }, "ServerURL"},
		{"missing handler", func(c *Config) { c.Handler = nil }, "Handler"},
		{"no tools", func(c *Config) { c.Tools = nil }, "tool"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{
				LogicalName: "EchoAgent",
				ServerURL:   "http://127.0.0.1:8600",
				Tools:       []domainagent.Tool{{Name: "echo"}},
				Handler:     func(context.Context, string, json.RawMessage) (json.RawMessage, error) { return nil, nil },
			}
			tc.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantText)
		})
	}
}

func TestNew_DefaultsAdvertiseFromListenAddr(t *testing.T) {
	rt := testRuntime(t, func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})
	assert.Equal(t, "http://127.0.0.1:9301", rt.cfg.Advertise)
}

func TestHandleToolsCall_Echo(t *testing.T) {
	rt := testRuntime(t, func(_ context.Context, toolName string, params json.RawMessage) (json.RawMessage, error) {
		assert.Equal(t, "echo", toolName)
		return params, nil
	})

	envelope := serveToolsCall(rt, `{"tool_name":"echo","parameters":{"message":"hi"}}`)
	assert.True(t, envelope.Success)
	assert.JSONEq(t, `{"message":"hi"}`, string(envelope.Result))
}

func TestHandleToolsCall_UndeclaredTool(t *testing.T) {
	rt := testRuntime(t, func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		t.Fatal("handler must not run for undeclared tools")
		return nil, nil
	})

	envelope := serveToolsCall(rt, `{"tool_name":"shred_disk","parameters":{}}`)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "shred_disk")
}

func TestHandleToolsCall_HandlerError(t *testing.T) {
	rt := testRuntime(t, func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("file does not exist")
	})

	envelope := serveToolsCall(rt, `{"tool_name":"echo","parameters":{}}`)
	assert.False(t, envelope.Success)
	assert.Equal(t, "file does not exist", envelope.Error)
}

func TestHandlePing(t *testing.T) {
	rt := testRuntime(t, func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	r := gin.New()
	r.GET("/rpc/Ping", rt.handlePing)
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/rpc/Ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "EchoAgent", got["service"])
}
