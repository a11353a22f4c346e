// Package rpc exposes the server's method surface over HTTP. Every method
// answers 200 with a JSON envelope; errors live inside the envelope so
// callers inspect success/error uniformly instead of juggling status codes.
package rpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/service/catalog"
	"github.com/qwei/desk-mcp/internal/service/dispatch"
	registrysvc "github.com/qwei/desk-mcp/internal/service/registry"
)

// ServiceName is reported by Ping.
const ServiceName = "desk-mcp"

type Handler struct {
	registry     *registrysvc.Service
	catalog      *catalog.Service
	dispatcher   *dispatch.Service
	offlineAfter time.Duration
}

func NewHandler(registry *registrysvc.Service, cat *catalog.Service, dispatcher *dispatch.Service, offlineAfter time.Duration) *Handler {
	return &Handler{
		registry:     registry,
		catalog:      cat,
		dispatcher:   dispatcher,
		offlineAfter: offlineAfter,
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/Ping", h.ping)
	rg.POST("/Ping", h.ping)
	rg.GET("/ToolsList", h.toolsList)
	rg.POST("/ToolsList", h.toolsList)
	rg.POST("/ToolsCall", h.toolsCall)
	rg.POST("/AgentRegister", h.agentRegister)
	rg.POST("/AgentUnregister", h.agentUnregister)
	rg.GET("/AgentsList", h.agentsList)
	rg.POST("/AgentsList", h.agentsList)
	rg.POST("/GetAgentStatus", h.getAgentStatus)
	rg.POST("/UpdateAgentStatus", h.updateAgentStatus)
}

func fail(c *gin.Context, reason string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "error": reason})
}

func (h *Handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Unix(),
		"service":   ServiceName,
	})
}

func (h *Handler) toolsList(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		fail(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tools":   entries,
		"total":   len(entries),
	})
}

type toolsCallReq struct {
	ToolName string `json:"tool_name"`
	// Parameters is the structured form; ParametersJSON the legacy
	// string-encoded form. Exactly one is expected.
	Parameters     json.RawMessage `json:"parameters"`
	ParametersJSON string          `json:"parameters_json"`
}

func (h *Handler) toolsCall(c *gin.Context) {
	var req toolsCallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.ToolName == "" {
		fail(c, "missing required field: tool_name")
		return
	}

	params := req.Parameters
	if len(params) == 0 && req.ParametersJSON != "" {
		if !json.Valid([]byte(req.ParametersJSON)) {
			fail(c, "invalid JSON in parameters_json")
			return
		}
		params = json.RawMessage(req.ParametersJSON)
	}

	envelope, _ := h.dispatcher.Dispatch(c.Request.Context(), req.ToolName, params)
	c.JSON(http.StatusOK, envelope)
}

func (h *Handler) agentRegister(c *gin.Context) {
	var in registrysvc.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, "invalid JSON agent info: "+err.Error())
		return
	}

	reg, err := h.registry.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Agent '" + reg.LogicalName + "' registered successfully",
		"instance_id": reg.InstanceID,
	})
}

type identifierReq struct {
	InstanceID string `json:"instance_id"`
	AgentName  string `json:"agent_name"`
	Name       string `json:"name"`
}

func (r identifierReq) identifier() string {
	switch {
	case r.InstanceID != "":
		return r.InstanceID
	case r.AgentName != "":
		return r.AgentName
	default:
		return r.Name
	}
}

func (h *Handler) agentUnregister(c *gin.Context) {
	var req identifierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid JSON body: "+err.Error())
		return
	}
	id := req.identifier()
	if id == "" {
		fail(c, "missing required field: instance_id or agent_name")
		return
	}

	if err := h.registry.Unregister(c.Request.Context(), id); err != nil {
		fail(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent '" + id + "' unregistered successfully",
	})
}

func (h *Handler) agentsList(c *gin.Context) {
	instances, err := h.registry.List(c.Request.Context())
	if err != nil {
		fail(c, err.Error())
		return
	}

	agents := make([]gin.H, 0, len(instances))
	for _, inst := range instances {
		agents = append(agents, gin.H{
			"name":        inst.LogicalName,
			"instance_id": inst.InstanceID,
			"service":     inst.Address.Endpoint,
			"path":        inst.Address.Path,
			"interface":   inst.Address.Interface,
			"tools":       inst.Tools,
			"tools_count": len(inst.Tools),
			"status":      inst.Status,
			"last_seen":   inst.LastSeen,
			"is_alive":    inst.IsAlive(h.offlineAfter),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"agents":  agents,
		"total":   len(agents),
	})
}

func (h *Handler) getAgentStatus(c *gin.Context) {
	var req identifierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.InstanceID == "" {
		fail(c, "missing required field: instance_id")
		return
	}

	reg, err := h.registry.GetStatus(c.Request.Context(), req.InstanceID)
	if err != nil {
		fail(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    reg.Status,
		"is_alive":  reg.IsAlive(h.offlineAfter),
		"last_seen": reg.LastSeen,
		"cpu_usage": reg.CPUUsage,
	})
}

type updateStatusReq struct {
	InstanceID string  `json:"instance_id"`
	Status     string  `json:"status"`
	CPUUsage   float64 `json:"cpu_usage"`
}

func (h *Handler) updateAgentStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.InstanceID == "" {
		fail(c, "missing required field: instance_id")
		return
	}
	if req.Status == "" {
		fail(c, "missing required field: status")
		return
	}

	err := h.registry.UpdateStatus(c.Request.Context(), req.InstanceID, domainagent.Status(req.Status), req.CPUUsage)
	if err != nil {
		fail(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "status updated",
	})
}
