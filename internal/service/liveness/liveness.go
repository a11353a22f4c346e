// Package liveness decays instance status over time and broadcasts
// transitions. One scheduled sweep covers every instance; there is no
// goroutine-per-agent.
package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/event"
	portcaller "github.com/qwei/desk-mcp/internal/port/caller"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

// Config carries the decay thresholds. Defaults mirror the platform's
// historical constants: 3s tick, 10s to busy, 60s to offline.
type Config struct {
	Tick         time.Duration
	BusyAfter    time.Duration
	OfflineAfter time.Duration
	PingTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Tick:         3 * time.Second,
		BusyAfter:    10 * time.Second,
		OfflineAfter: 60 * time.Second,
		PingTimeout:  2 * time.Second,
	}
}

type Broadcaster struct {
	reg    portregistry.Registry
	caller portcaller.AgentCaller
	bus    porteventbus.EventBus
	cfg    Config

	// lastBroadcast caches the most recently announced status per instance so
	// a transition fires exactly once per edge, not once per tick.
	mu            sync.Mutex
	lastBroadcast map[string]domainagent.Status
}

func NewBroadcaster(reg portregistry.Registry, caller portcaller.AgentCaller, bus porteventbus.EventBus, cfg Config) *Broadcaster {
	if cfg.Tick <= 0 {
		cfg = DefaultConfig()
	}
	return &Broadcaster{
		reg:           reg,
		caller:        caller,
		bus:           bus,
		cfg:           cfg,
		lastBroadcast: make(map[string]domainagent.Status),
	}
}

// Run ticks until ctx is cancelled. A failed sweep is logged and the loop
// keeps going; one bad instance never aborts the schedule.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Tick)
	defer ticker.Stop()

	slog.Info("liveness broadcaster started",
		"tick", b.cfg.Tick, "busy_after", b.cfg.BusyAfter, "offline_after", b.cfg.OfflineAfter)

	for {
		select {
		case <-ctx.Done():
			slog.Info("liveness broadcaster stopped")
			return
		case <-ticker.C:
			b.Sweep(ctx)
		}
	}
}

// Sweep re-evaluates every registered instance once. Exported so tests and
// operator tooling can force a pass without waiting for the ticker.
func (b *Broadcaster) Sweep(ctx context.Context) {
	instances, err := b.reg.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "liveness sweep: list instances failed", "error", err)
		return
	}

	for _, inst := range instances {
		b.checkInstance(ctx, inst)
	}
}

func (b *Broadcaster) checkInstance(ctx context.Context, inst domainagent.Registration) {
	next := inst.DecayedStatus(b.cfg.BusyAfter, b.cfg.OfflineAfter)

	switch {
	case next == domainagent.StatusOffline && b.caller != nil:
		// An instance that looks overdue gets one bounded ping before being
		// written off; a reachable agent that simply had no traffic stays
		// online.
		if b.ping(ctx, inst) {
			if touchErr := b.reg.Touch(ctx, inst.InstanceID); touchErr != nil {
				slog.WarnContext(ctx, "liveness sweep: touch failed", "instance_id", inst.InstanceID, "error", touchErr)
			}
			next = domainagent.StatusOnline
		}
	case inst.Status == domainagent.StatusOffline && next != domainagent.StatusOffline:
		// Marked offline by a failed call while last_seen is still recent.
		// Only a successful ping resurrects it; elapsed time alone proves
		// nothing about reachability.
		if b.caller == nil || !b.ping(ctx, inst) {
			next = domainagent.StatusOffline
		}
	}

	if next != inst.Status {
		if err := b.reg.UpdateStatus(ctx, inst.InstanceID, next); err != nil {
			if !errors.Is(err, portregistry.ErrNotFound) {
				slog.ErrorContext(ctx, "liveness sweep: status update failed", "instance_id", inst.InstanceID, "error", err)
			}
			return
		}
	}

	b.broadcastIfChanged(ctx, inst, next)
}

func (b *Broadcaster) ping(ctx context.Context, inst domainagent.Registration) bool {
	pingCtx, cancel := context.WithTimeout(ctx, b.cfg.PingTimeout)
	defer cancel()
	return b.caller.Ping(pingCtx, inst.Address) == nil
}

func (b *Broadcaster) broadcastIfChanged(ctx context.Context, inst domainagent.Registration, next domainagent.Status) {
	b.mu.Lock()
	prev, known := b.lastBroadcast[inst.InstanceID]
	if known && prev == next {
		b.mu.Unlock()
		return
	}
	b.lastBroadcast[inst.InstanceID] = next
	b.mu.Unlock()

	if err := b.bus.Publish(ctx, event.StatusChange(inst.InstanceID, inst.LogicalName, string(next))); err != nil {
		slog.ErrorContext(ctx, "liveness sweep: broadcast failed", "instance_id", inst.InstanceID, "error", err)
	}
	slog.InfoContext(ctx, "agent status changed",
		"agent", inst.LogicalName, "instance_id", inst.InstanceID, "status", next)
}

// Forget drops the broadcast cache entry for an unregistered instance so a
// later instance reusing the id starts from a clean edge.
func (b *Broadcaster) Forget(instanceID string) {
	b.mu.Lock()
	delete(b.lastBroadcast, instanceID)
	b.mu.Unlock()
}
