package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// PermissionLevel gates which tools the reasoning layer may invoke without
// an explicit user confirmation step.
type PermissionLevel string

const (
	PermissionNormal    PermissionLevel = "normal"
	PermissionSensitive PermissionLevel = "sensitive"
)

// Address is the transport endpoint triple an instance is reachable at.
// Endpoint is the HTTP base URL; Path and Interface are carried through for
// transports that need them and for parity with what agents advertise.
type Address struct {
	Endpoint  string `json:"service"`
	Path      string `json:"path,omitempty"`
	Interface string `json:"interface,omitempty"`
}

// Tool is one named operation an agent advertises at registration time.
// Name is unqualified here; the catalog qualifies it with the logical name.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  map[string]any  `json:"parameters,omitempty"`
	Permission  PermissionLevel `json:"permission_level,omitempty"`
}

// Registration is one running instance of a logical agent.
type Registration struct {
	LogicalName string    `json:"name"`
	InstanceID  string    `json:"instance_id"`
	Address     Address   `json:"address"`
	Tools       []Tool    `json:"tools"`
	Status      Status    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	CPUUsage    float64   `json:"cpu_usage"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds a Registration with a freshly minted instance id.
// The uuid suffix keeps ids distinct when two instances of the same logical
// agent register within the same millisecond.
func New(logicalName string, addr Address, tools []Tool) Registration {
	now := time.Now().UTC()
	return Registration{
		LogicalName: logicalName,
		InstanceID:  fmt.Sprintf("%s_%d_%s", logicalName, now.UnixMilli(), uuid.NewString()[:8]),
		Address:     addr,
		Tools:       tools,
		Status:      StatusOnline,
		LastSeen:    now,
		CreatedAt:   now,
	}
}

// NormalizeName canonicalizes a logical name once at the registration
// boundary. Dispatch does exact-match lookup on the result; no substring
// matching downstream.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

func (r *Registration) Touch() {
	r.LastSeen = time.Now().UTC()
}

// IsAlive reports whether the instance counts as reachable: not marked
// offline and seen within the offline window. An instance the dispatcher
// marked offline after a failed call is dead immediately, without waiting
// for the window to lapse.
func (r *Registration) IsAlive(offlineAfter time.Duration) bool {
	return r.Status != StatusOffline && time.Since(r.LastSeen) < offlineAfter
}

// DecayedStatus recomputes status from elapsed time since LastSeen.
// "busy" is a display approximation (recently seen, not in the last few
// seconds), not true concurrency tracking.
func (r *Registration) DecayedStatus(busyAfter, offlineAfter time.Duration) Status {
	elapsed := time.Since(r.LastSeen)
	switch {
	case elapsed >= offlineAfter:
		return StatusOffline
	case elapsed >= busyAfter:
		return StatusBusy
	default:
		return StatusOnline
	}
}

// HasTool reports whether the instance advertised the (unqualified) tool.
func (r *Registration) HasTool(name string) bool {
	for _, t := range r.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
