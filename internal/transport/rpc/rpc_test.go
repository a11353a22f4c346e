package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/qwei/desk-mcp/internal/adapter/memory"
	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	domainrpc "github.com/qwei/desk-mcp/internal/domain/rpc"
	"github.com/qwei/desk-mcp/internal/mocks"
	portcaller "github.com/qwei/desk-mcp/internal/port/caller"
	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
	"github.com/qwei/desk-mcp/internal/testutil"
	transportrpc "github.com/qwei/desk-mcp/internal/transport/rpc"
)

func init() { gin.SetMode(gin.TestMode) }

type env struct {
	router *gin.Engine
	store  *memory.Registry
	caller *mocks.MockAgentCaller
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memory.NewRegistry()
	bus := &testutil.CaptureBus{}
	caller := mocks.NewMockAgentCaller(ctrl)

	regSvc := registrysvc.NewService(store, bus)
	cat := catalog.NewService(store)
	require.NoError(t, cat.AddLocal(domainagent.Tool{Name: "echo", Description: "Echo back the message"},
		func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
			return params, nil
		}))
	dispatcher := dispatch.NewService(store, cat, caller, dispatch.LastReported{}, bus)

	r := gin.New()
	transportrpc.NewHandler(regSvc, cat, dispatcher, 60*time.Second).Register(r.Group("/rpc"))
	return env{router: r, store: store, caller: caller}
}

func post(t *testing.T, r *gin.Engine, path string, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "every method answers 200; body: %s", w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func registerBody(name string) map[string]any {
	return map[string]any{
		"name":    name,
		"service": "http://127.0.0.1:9301",
		"tools": []map[string]any{
			{"name": "search_file", "description": "Search for files"},
		},
	}
}

// ── Ping ──────────────────────────────────────────────────────────────────────

func TestPing(t *testing.T) {
	e := newEnv(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/rpc/Ping", nil)
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, transportrpc.ServiceName, got["service"])
	assert.NotZero(t, got["timestamp"])
}

// ── AgentRegister ─────────────────────────────────────────────────────────────

func TestAgentRegister(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))
	assert.Equal(t, true, got["success"])
	assert.NotEmpty(t, got["instance_id"])
	assert.Contains(t, got["message"], "FileAgent")
}

func TestAgentRegister_FieldErrors(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name     string
		body     map[string]any
		fragment string
	}{
		{"missing name", map[string]any{"service": "http://x", "tools": []map[string]any{{"name": "t"}}}, "name"},
		{"missing service", map[string]any{"name": "A", "tools": []map[string]any{{"name": "t"}}}, "service"},
		{"missing tools", map[string]any{"name": "A", "service": "http://x"}, "tools"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := post(t, e.router, "/rpc/AgentRegister", tc.body)
			assert.Equal(t, false, got["success"])
			assert.Contains(t, got["error"], tc.fragment)
		})
	}
}

func TestAgentRegister_SynonymFields(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/AgentRegister", map[string]any{
		"agent_name": "FileAgent",
		"bus_name":   "http://127.0.0.1:9301",
		"tools":      []map[string]any{{"name": "search_file"}},
	})
	assert.Equal(t, true, got["success"])
}

// ── AgentUnregister ───────────────────────────────────────────────────────────

func TestAgentUnregister(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))
	instanceID := reg["instance_id"].(string)

	got := post(t, e.router, "/rpc/AgentUnregister", map[string]any{"instance_id": instanceID})
	assert.Equal(t, true, got["success"])

	// Unregistering again reports the miss instead of silently succeeding.
	got = post(t, e.router, "/rpc/AgentUnregister", map[string]any{"instance_id": instanceID})
	assert.Equal(t, false, got["success"])
}

// ── ToolsList / ToolsCall ─────────────────────────────────────────────────────

func TestToolsList(t *testing.T) {
	e := newEnv(t)
	post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))

	got := post(t, e.router, "/rpc/ToolsList", map[string]any{})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, float64(2), got["total"])

	tools := got["tools"].([]any)
	names := make([]string, 0, len(tools))
	for _, raw := range tools {
		names = append(names, raw.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"FileAgent.search_file", "echo"}, names)
}

func TestToolsCall_LocalEcho(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{
		"tool_name":  "echo",
		"parameters": map[string]any{"message": "hi"},
	})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, map[string]any{"message": "hi"}, got["result"])
}

func TestToolsCall_ParametersJSONForm(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{
		"tool_name":       "echo",
		"parameters_json": `{"message":"hi"}`,
	})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, map[string]any{"message": "hi"}, got["result"])
}

func TestToolsCall_MissingToolName(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{"parameters": map[string]any{}})
	assert.Equal(t, false, got["success"])
	assert.Contains(t, got["error"], "tool_name")
}

func TestToolsCall_RoutesToAgent(t *testing.T) {
	e := newEnv(t)
	post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))

	e.caller.EXPECT().
		CallTool(gomock.Any(), gomock.Any(), "search_file", gomock.Any()).
		Return(domainrpc.Ok(json.RawMessage(`{"files":["a.txt"]}`)), nil)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{
		"tool_name":  "FileAgent.search_file",
		"parameters": map[string]any{"keyword": "a"},
	})
	assert.Equal(t, true, got["success"])
}

func TestToolsCall_UnknownTool(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{
		"tool_name":  "UnknownAgent.do_thing",
		"parameters": map[string]any{},
	})
	assert.Equal(t, false, got["success"])
	assert.NotEmpty(t, got["error"])
}

// ── AgentsList / status ───────────────────────────────────────────────────────

func TestAgentsList(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))

	got := post(t, e.router, "/rpc/AgentsList", map[string]any{})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, float64(1), got["total"])

	row := got["agents"].([]any)[0].(map[string]any)
	assert.Equal(t, "FileAgent", row["name"])
	assert.Equal(t, reg["instance_id"], row["instance_id"])
	assert.Equal(t, "http://127.0.0.1:9301", row["service"])
	assert.Equal(t, float64(1), row["tools_count"])
	assert.Equal(t, true, row["is_alive"])
}

func TestAgentsList_StaleInstanceNotAlive(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))
	instanceID := reg["instance_id"].(string)

	stored, err := e.store.GetByInstanceID(context.Background(), instanceID)
	require.NoError(t, err)
	stored.LastSeen = time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, e.store.Upsert(context.Background(), stored))

	got := post(t, e.router, "/rpc/AgentsList", map[string]any{})
	row := got["agents"].([]any)[0].(map[string]any)
	assert.Equal(t, false, row["is_alive"])
}

func TestAgentsList_FailedOverInstanceNotAlive(t *testing.T) {
	e := newEnv(t)

	bodyA := registerBody("FileAgent")
	regA := post(t, e.router, "/rpc/AgentRegister", bodyA)
	bodyB := registerBody("FileAgent")
	bodyB["service"] = "http://127.0.0.1:9302"
	regB := post(t, e.router, "/rpc/AgentRegister", bodyB)

	// A reports the lower load, so it takes the call first.
	post(t, e.router, "/rpc/UpdateAgentStatus", map[string]any{
		"instance_id": regA["instance_id"], "status": "online", "cpu_usage": 5.0,
	})
	post(t, e.router, "/rpc/UpdateAgentStatus", map[string]any{
		"instance_id": regB["instance_id"], "status": "online", "cpu_usage": 80.0,
	})

	gomock.InOrder(
		e.caller.EXPECT().
			CallTool(gomock.Any(), domainagent.Address{Endpoint: "http://127.0.0.1:9301"}, "search_file", gomock.Any()).
			Return(domainrpc.CallResponse{}, fmt.Errorf("%w: connection refused", portcaller.ErrUnreachable)),
		e.caller.EXPECT().
			CallTool(gomock.Any(), domainagent.Address{Endpoint: "http://127.0.0.1:9302"}, "search_file", gomock.Any()).
			Return(domainrpc.Ok(json.RawMessage(`{"files":[]}`)), nil),
	)

	got := post(t, e.router, "/rpc/ToolsCall", map[string]any{
		"tool_name":  "FileAgent.search_file",
		"parameters": map[string]any{"keyword": "a"},
	})
	assert.Equal(t, true, got["success"])

	// The instance that failed over reports dead right away, fresh last_seen
	// notwithstanding.
	list := post(t, e.router, "/rpc/AgentsList", map[string]any{})
	for _, raw := range list["agents"].([]any) {
		row := raw.(map[string]any)
		if row["instance_id"] == regA["instance_id"] {
			assert.Equal(t, string(domainagent.StatusOffline), row["status"])
			assert.Equal(t, false, row["is_alive"])
		} else {
			assert.Equal(t, true, row["is_alive"])
		}
	}

	status := post(t, e.router, "/rpc/GetAgentStatus", map[string]any{"instance_id": regA["instance_id"]})
	assert.Equal(t, false, status["is_alive"])
}

func TestGetAgentStatus(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))

	got := post(t, e.router, "/rpc/GetAgentStatus", map[string]any{"instance_id": reg["instance_id"]})
	assert.Equal(t, true, got["success"])
	assert.Equal(t, string(domainagent.StatusOnline), got["status"])
	assert.Equal(t, true, got["is_alive"])
}

func TestGetAgentStatus_Unknown(t *testing.T) {
	e := newEnv(t)

	got := post(t, e.router, "/rpc/GetAgentStatus", map[string]any{"instance_id": "nope"})
	assert.Equal(t, false, got["success"])
	assert.Contains(t, got["error"], "not found")
}

func TestUpdateAgentStatus(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))
	instanceID := reg["instance_id"].(string)

	got := post(t, e.router, "/rpc/UpdateAgentStatus", map[string]any{
		"instance_id": instanceID,
		"status":      "busy",
		"cpu_usage":   35.5,
	})
	assert.Equal(t, true, got["success"])

	status := post(t, e.router, "/rpc/GetAgentStatus", map[string]any{"instance_id": instanceID})
	assert.Equal(t, string(domainagent.StatusBusy), status["status"])
	assert.Equal(t, 35.5, status["cpu_usage"])
}

func TestUpdateAgentStatus_InvalidStatus(t *testing.T) {
	e := newEnv(t)
	reg := post(t, e.router, "/rpc/AgentRegister", registerBody("FileAgent"))

	got := post(t, e.router, "/rpc/UpdateAgentStatus", map[string]any{
		"instance_id": reg["instance_id"],
		"status":      "sleeping",
	})
	assert.Equal(t, false, got["success"])
	assert.Contains(t, got["error"], "status")
}
