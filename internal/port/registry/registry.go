package registry

import (
	"context"
	"errors"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
)

var ErrNotFound = errors.New("registry: instance not found")

// Registry is the bookkeeping store for agent instances, keyed by instance id.
// Implementations must keep reads safe during concurrent writes; readers never
// observe a partially written entry.
type Registry interface {
	// Upsert inserts or replaces by instance id. Required-field presence is
	// the caller's responsibility.
	Upsert(ctx context.Context, reg domainagent.Registration) error
	// Remove deletes the entry. Idempotent: removing an absent id is not an
	// error. The lifecycle service layers not-found semantics on top.
	Remove(ctx context.Context, instanceID string) error
	ListAll(ctx context.Context) ([]domainagent.Registration, error)
	// GetByLogicalName returns every instance of one logical agent, for
	// load-balancing candidate selection. Exact match only.
	GetByLogicalName(ctx context.Context, name string) ([]domainagent.Registration, error)
	GetByInstanceID(ctx context.Context, instanceID string) (domainagent.Registration, error)

	UpdateStatus(ctx context.Context, instanceID string, status domainagent.Status) error
	// Touch refreshes last_seen to now. Called on every successful remote
	// call and inbound status report.
	Touch(ctx context.Context, instanceID string) error
	UpdateLoad(ctx context.Context, instanceID string, cpuUsage float64) error
}
