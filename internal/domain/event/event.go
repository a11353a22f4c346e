package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAgentRegistered   Type = "agent_registered"
	TypeAgentUnregistered Type = "agent_unregistered"
	TypeStatusChanged     Type = "agent_status_changed"
	TypeToolCall          Type = "tool_call"
)

// Channel is a domain-scoped broadcast channel. All event types within a
// domain share one LISTEN connection on the Postgres bus.
type Channel string

const (
	ChannelLifecycle Channel = "lifecycle"
	ChannelLiveness  Channel = "liveness"
	ChannelCalls     Channel = "calls"
)

var typeToChannel = map[Type]Channel{
	TypeAgentRegistered:   ChannelLifecycle,
	TypeAgentUnregistered: ChannelLifecycle,
	TypeStatusChanged:     ChannelLiveness,
	TypeToolCall:          ChannelCalls,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event identifies what happened to which instance. Fields beyond the id pair
// are optional context for display; subscribers needing fresh state read the
// registry.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        Type      `json:"type"`
	InstanceID  string    `json:"instance_id"`
	LogicalName string    `json:"agent,omitempty"`
	Status      string    `json:"status,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func New(eventType Type, instanceID, logicalName string) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		InstanceID:  instanceID,
		LogicalName: logicalName,
		Timestamp:   time.Now().UTC(),
	}
}

// StatusChange builds the liveness transition event broadcast once per edge.
func StatusChange(instanceID, logicalName, status string) Event {
	e := New(TypeStatusChanged, instanceID, logicalName)
	e.Status = status
	return e
}
