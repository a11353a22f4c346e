package memory

import (
	"context"
	"sync"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

// Registry is the in-process registry backend. Registry size stays in the
// tens of entries, so one coarse RWMutex is enough.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]domainagent.Registration
}

var _ portregistry.Registry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]domainagent.Registration),
	}
}

func (r *Registry) Upsert(_ context.Context, reg domainagent.Registration) error {
	r.mu.Lock()
	r.entries[reg.InstanceID] = reg
	r.mu.Unlock()
	return nil
}

func (r *Registry) Remove(_ context.Context, instanceID string) error {
	r.mu.Lock()
	delete(r.entries, instanceID)
	r.mu.Unlock()
	return nil
}

func (r *Registry) ListAll(_ context.Context) ([]domainagent.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainagent.Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg)
	}
	return out, nil
}

func (r *Registry) GetByLogicalName(_ context.Context, name string) ([]domainagent.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainagent.Registration
	for _, reg := range r.entries {
		if reg.LogicalName == name {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r *Registry) GetByInstanceID(_ context.Context, instanceID string) (domainagent.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[instanceID]
	if !ok {
		return domainagent.Registration{}, portregistry.ErrNotFound
	}
	return reg, nil
}

func (r *Registry) UpdateStatus(_ context.Context, instanceID string, status domainagent.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[instanceID]
	if !ok {
		return portregistry.ErrNotFound
	}
	reg.Status = status
	r.entries[instanceID] = reg
	return nil
}

func (r *Registry) Touch(_ context.Context, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[instanceID]
	if !ok {
		return portregistry.ErrNotFound
	}
	reg.Touch()
	r.entries[instanceID] = reg
	return nil
}

func (r *Registry) UpdateLoad(_ context.Context, instanceID string, cpuUsage float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[instanceID]
	if !ok {
		return portregistry.ErrNotFound
	}
	reg.CPUUsage = cpuUsage
	r.entries[instanceID] = reg
	return nil
}
