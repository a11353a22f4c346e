// Package dispatch resolves qualified tool names to live agent instances and
// executes the call with load balancing and single-hop failover.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/event"
	"github.com/qwei/desk-mcp/internal/domain/rpc"
	portcaller "github.com/qwei/desk-mcp/internal/port/caller"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	"github.com/qwei/desk-mcp/internal/port/loadmetric"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
	"github.com/qwei/desk-mcp/internal/service/catalog"
)

// Dispatch error taxonomy. Not-found is permanent; offline and exhausted
// failover are transient and callers may retry later.
var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrAgentOffline      = errors.New("agent offline")
	ErrFailoverExhausted = errors.New("all instances unreachable, failover exhausted")
)

// InstanceLoad ranks instances during selection. Implementations are
// best-effort; an error falls back to loadmetric.NeutralLoad.
type InstanceLoad interface {
	Load(ctx context.Context, reg domainagent.Registration) (float64, error)
}

// LastReported reads the load figure the agent last pushed via its status
// report. The default provider: no process-table scanning on the server side.
type LastReported struct{}

func (LastReported) Load(_ context.Context, reg domainagent.Registration) (float64, error) {
	return reg.CPUUsage, nil
}

type Service struct {
	reg    portregistry.Registry
	local  LocalResolver
	caller portcaller.AgentCaller
	loads  InstanceLoad
	bus    porteventbus.EventBus
}

// LocalResolver is the slice of the catalog the dispatcher needs: built-in
// tool lookup for unqualified names.
type LocalResolver interface {
	Local(name string) (catalog.LocalTool, bool)
}

func NewService(reg portregistry.Registry, local LocalResolver, caller portcaller.AgentCaller, loads InstanceLoad, bus porteventbus.EventBus) *Service {
	if loads == nil {
		loads = LastReported{}
	}
	return &Service{reg: reg, local: local, caller: caller, loads: loads, bus: bus}
}

// Dispatch routes one tool call. The returned envelope always has exactly one
// of result/error set. The error return carries the infrastructure taxonomy
// (ErrToolNotFound, ErrAgentOffline, ErrFailoverExhausted) for callers that
// branch on it; tool-level failures come back as a populated envelope with a
// nil error, and never trigger failover.
func (s *Service) Dispatch(ctx context.Context, toolName string, params json.RawMessage) (rpc.CallResponse, error) {
	logicalName, bareName, qualified := strings.Cut(toolName, ".")
	if !qualified {
		return s.dispatchLocal(ctx, toolName, params)
	}

	candidates, err := s.reg.GetByLogicalName(ctx, logicalName)
	if err != nil {
		err = fmt.Errorf("resolve agent %q: %w", logicalName, err)
		return rpc.Fail(err.Error()), err
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("%w: no agent registered for %q", ErrToolNotFound, toolName)
		return rpc.Fail(err.Error()), err
	}

	live := make([]domainagent.Registration, 0, len(candidates))
	for _, c := range candidates {
		if c.Status != domainagent.StatusOffline {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		err := fmt.Errorf("%w: all %d instances of %q are offline", ErrAgentOffline, len(candidates), logicalName)
		return rpc.Fail(err.Error()), err
	}

	s.rankByLoad(ctx, live)

	// Primary attempt, then at most one failover hop to the next-best
	// instance. Only transport-level unreachability moves on; a tool-level
	// failure from the agent is final.
	for attempt, inst := range live {
		if attempt > 1 {
			break
		}

		envelope, callErr := s.caller.CallTool(ctx, inst.Address, bareName, params)
		if callErr == nil {
			if err := s.reg.Touch(ctx, inst.InstanceID); err != nil {
				slog.WarnContext(ctx, "failed to refresh last_seen", "instance_id", inst.InstanceID, "error", err)
			}
			s.publishCall(ctx, inst, toolName, envelope.Success)
			return envelope, nil
		}

		if !errors.Is(callErr, portcaller.ErrUnreachable) {
			callErr = fmt.Errorf("call %s on %s: %w", bareName, inst.InstanceID, callErr)
			return rpc.Fail(callErr.Error()), callErr
		}

		slog.WarnContext(ctx, "instance unreachable, marking offline",
			"agent", logicalName, "instance_id", inst.InstanceID, "error", callErr)
		s.markOffline(ctx, inst)
	}

	err = fmt.Errorf("%w: %q", ErrFailoverExhausted, toolName)
	return rpc.Fail(err.Error()), err
}

func (s *Service) dispatchLocal(ctx context.Context, toolName string, params json.RawMessage) (rpc.CallResponse, error) {
	lt, ok := s.local.Local(toolName)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrToolNotFound, toolName)
		return rpc.Fail(err.Error()), err
	}

	result, err := lt.Handler(ctx, params)
	if err != nil {
		// Local handler failure is application-level, same as a remote
		// tool reporting its own error.
		return rpc.Fail(err.Error()), nil
	}
	return rpc.Ok(result), nil
}

// rankByLoad orders live instances by sampled load, lowest first. Ordering is
// deterministic: ties fall back to instance id.
func (s *Service) rankByLoad(ctx context.Context, live []domainagent.Registration) {
	if len(live) < 2 {
		return
	}

	loads := make(map[string]float64, len(live))
	for _, inst := range live {
		load, err := s.loads.Load(ctx, inst)
		if err != nil {
			load = loadmetric.NeutralLoad
		}
		loads[inst.InstanceID] = load
	}

	sort.Slice(live, func(i, j int) bool {
		li, lj := loads[live[i].InstanceID], loads[live[j].InstanceID]
		if li != lj {
			return li < lj
		}
		return live[i].InstanceID < live[j].InstanceID
	})
}

func (s *Service) markOffline(ctx context.Context, inst domainagent.Registration) {
	if err := s.reg.UpdateStatus(ctx, inst.InstanceID, domainagent.StatusOffline); err != nil {
		slog.ErrorContext(ctx, "failed to mark instance offline", "instance_id", inst.InstanceID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, event.StatusChange(inst.InstanceID, inst.LogicalName, string(domainagent.StatusOffline))); err != nil {
		slog.ErrorContext(ctx, "failed to publish StatusChanged event", "instance_id", inst.InstanceID, "error", err)
	}
}

// publishCall emits the execution trace consumed by the trajectory store.
func (s *Service) publishCall(ctx context.Context, inst domainagent.Registration, toolName string, success bool) {
	e := event.New(event.TypeToolCall, inst.InstanceID, inst.LogicalName)
	e.Detail = toolName
	if !success {
		e.Status = "error"
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish ToolCall event", "tool", toolName, "error", err)
	}
}
