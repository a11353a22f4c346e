package caller

import (
	"context"
	"encoding/json"
	"errors"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/rpc"
)

// ErrUnreachable marks transport-level failures (connection refused, timeout).
// The dispatcher treats it as grounds for failover; tool-level errors inside a
// CallResponse never are.
var ErrUnreachable = errors.New("agent unreachable")

// AgentCaller performs remote calls against a single agent instance.
// CallTool sends the bare (unqualified) tool name; the envelope it returns is
// the agent's own verdict and is passed through verbatim.
type AgentCaller interface {
	CallTool(ctx context.Context, addr domainagent.Address, toolName string, params json.RawMessage) (rpc.CallResponse, error)
	Ping(ctx context.Context, addr domainagent.Address) error
}
