// Package registry implements the agent lifecycle: registration with boundary
// normalization, unregistration, and status bookkeeping.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/event"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

// Field-specific validation errors. The RPC surface returns these messages
// verbatim so callers can tell which field was missing.
var (
	ErrMissingName    = errors.New("missing required field: name or agent_name")
	ErrMissingService = errors.New("missing required field: service or bus_name")
	ErrMissingTools   = errors.New("missing required field: tools")

	ErrUnknownAgent  = errors.New("agent not found")
	ErrInvalidStatus = errors.New("invalid status value")
)

// RegisterInput is the loose wire shape accepted at the registration boundary.
// Agents written against older servers send agent_name/bus_name/object_path;
// normalization to the canonical Registration happens here, once, and the
// synonyms never appear past this package.
type RegisterInput struct {
	Name       string             `json:"name"`
	AgentName  string             `json:"agent_name"`
	Service    string             `json:"service"`
	BusName    string             `json:"bus_name"`
	Path       string             `json:"path"`
	ObjectPath string             `json:"object_path"`
	Interface  string             `json:"interface"`
	Tools      []domainagent.Tool `json:"tools"`
}

func (in RegisterInput) normalize() (string, domainagent.Address, error) {
	name := domainagent.NormalizeName(in.Name)
	if name == "" {
		name = domainagent.NormalizeName(in.AgentName)
	}
	if name == "" {
		return "", domainagent.Address{}, ErrMissingName
	}

	endpoint := in.Service
	if endpoint == "" {
		endpoint = in.BusName
	}
	if endpoint == "" {
		return "", domainagent.Address{}, ErrMissingService
	}

	path := in.Path
	if path == "" {
		path = in.ObjectPath
	}

	return name, domainagent.Address{Endpoint: endpoint, Path: path, Interface: in.Interface}, nil
}

type Service struct {
	reg portregistry.Registry
	bus porteventbus.EventBus
}

func NewService(reg portregistry.Registry, bus porteventbus.EventBus) *Service {
	return &Service{reg: reg, bus: bus}
}

// Register validates and stores a new instance, returning it with a freshly
// minted instance id. The registry is never touched on validation failure.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domainagent.Registration, error) {
	name, addr, err := in.normalize()
	if err != nil {
		return domainagent.Registration{}, err
	}
	if len(in.Tools) == 0 {
		return domainagent.Registration{}, ErrMissingTools
	}

	reg := domainagent.New(name, addr, in.Tools)
	if err := s.reg.Upsert(ctx, reg); err != nil {
		return domainagent.Registration{}, fmt.Errorf("register agent: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeAgentRegistered, reg.InstanceID, reg.LogicalName)); err != nil {
		slog.ErrorContext(ctx, "failed to publish AgentRegistered event", "instance_id", reg.InstanceID, "error", err)
	}

	slog.InfoContext(ctx, "agent registered",
		"agent", reg.LogicalName, "instance_id", reg.InstanceID, "tools", len(reg.Tools))
	return reg, nil
}

// Unregister removes an instance by id, or every instance of a logical name
// when no instance matches the identifier. Unlike Registry.Remove this is not
// idempotent: an unknown identifier is an explicit error, so operator tooling
// can tell whether the unregister did anything.
func (s *Service) Unregister(ctx context.Context, identifier string) error {
	if _, err := s.reg.GetByInstanceID(ctx, identifier); err == nil {
		return s.removeOne(ctx, identifier)
	} else if !errors.Is(err, portregistry.ErrNotFound) {
		return fmt.Errorf("unregister agent: %w", err)
	}

	instances, err := s.reg.GetByLogicalName(ctx, domainagent.NormalizeName(identifier))
	if err != nil {
		return fmt.Errorf("unregister agent: %w", err)
	}
	if len(instances) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, identifier)
	}
	for _, inst := range instances {
		if err := s.removeOne(ctx, inst.InstanceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) removeOne(ctx context.Context, instanceID string) error {
	reg, err := s.reg.GetByInstanceID(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("unregister agent: %w", err)
	}
	if err := s.reg.Remove(ctx, instanceID); err != nil {
		return fmt.Errorf("unregister agent: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeAgentUnregistered, instanceID, reg.LogicalName)); err != nil {
		slog.ErrorContext(ctx, "failed to publish AgentUnregistered event", "instance_id", instanceID, "error", err)
	}

	slog.InfoContext(ctx, "agent unregistered", "agent", reg.LogicalName, "instance_id", instanceID)
	return nil
}

func (s *Service) List(ctx context.Context) ([]domainagent.Registration, error) {
	instances, err := s.reg.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return instances, nil
}

func (s *Service) GetStatus(ctx context.Context, instanceID string) (domainagent.Registration, error) {
	reg, err := s.reg.GetByInstanceID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, portregistry.ErrNotFound) {
			return domainagent.Registration{}, fmt.Errorf("%w: %q", ErrUnknownAgent, instanceID)
		}
		return domainagent.Registration{}, fmt.Errorf("get agent status: %w", err)
	}
	return reg, nil
}

// UpdateStatus is the inbound status report: the agent pushes its own status
// and load figure. Any report counts as activity, so last_seen is refreshed.
func (s *Service) UpdateStatus(ctx context.Context, instanceID string, status domainagent.Status, cpuUsage float64) error {
	switch status {
	case domainagent.StatusOnline, domainagent.StatusBusy, domainagent.StatusOffline, domainagent.StatusError:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.reg.UpdateStatus(ctx, instanceID, status); err != nil {
		if errors.Is(err, portregistry.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, instanceID)
		}
		return fmt.Errorf("update agent status: %w", err)
	}
	if err := s.reg.UpdateLoad(ctx, instanceID, cpuUsage); err != nil {
		return fmt.Errorf("update agent load: %w", err)
	}
	if err := s.reg.Touch(ctx, instanceID); err != nil {
		return fmt.Errorf("refresh last_seen: %w", err)
	}
	return nil
}
