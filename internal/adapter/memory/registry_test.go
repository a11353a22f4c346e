package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwei/desk-mcp/internal/adapter/memory"
	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

func newInstance(name string) domainagent.Registration {
	return domainagent.New(name, domainagent.Address{Endpoint: "http://127.0.0.1:9301"}, []domainagent.Tool{{Name: "ping"}})
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	reg := newInstance("FileAgent")
	require.NoError(t, r.Upsert(ctx, reg))

	got, err := r.GetByInstanceID(ctx, reg.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, reg.InstanceID, got.InstanceID)
	assert.Equal(t, "FileAgent", got.LogicalName)

	// Upsert with the same id replaces in place.
	reg.CPUUsage = 42.5
	require.NoError(t, r.Upsert(ctx, reg))
	got, err = r.GetByInstanceID(ctx, reg.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, got.CPUUsage)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistry_GetByLogicalName(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	a := newInstance("FileAgent")
	b := newInstance("FileAgent")
	c := newInstance("WindowAgent")
	for _, reg := range []domainagent.Registration{a, b, c} {
		require.NoError(t, r.Upsert(ctx, reg))
	}

	files, err := r.GetByLogicalName(ctx, "FileAgent")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	none, err := r.GetByLogicalName(ctx, "MissingAgent")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	reg := newInstance("FileAgent")
	require.NoError(t, r.Upsert(ctx, reg))
	require.NoError(t, r.Remove(ctx, reg.InstanceID))
	require.NoError(t, r.Remove(ctx, reg.InstanceID))

	_, err := r.GetByInstanceID(ctx, reg.InstanceID)
	assert.ErrorIs(t, err, portregistry.ErrNotFound)
}

func TestRegistry_MutationsOnMissingInstance(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	assert.ErrorIs(t, r.UpdateStatus(ctx, "nope", domainagent.StatusOffline), portregistry.ErrNotFound)
	assert.ErrorIs(t, r.Touch(ctx, "nope"), portregistry.ErrNotFound)
	assert.ErrorIs(t, r.UpdateLoad(ctx, "nope", 10), portregistry.ErrNotFound)
}

func TestRegistry_TouchRefreshesLastSeen(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	reg := newInstance("FileAgent")
	reg.LastSeen = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, r.Upsert(ctx, reg))
	require.NoError(t, r.Touch(ctx, reg.InstanceID))

	got, err := r.GetByInstanceID(ctx, reg.InstanceID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), got.LastSeen, 5*time.Second)
}

func TestRegistry_UpdateStatusAndLoad(t *testing.T) {
	r := memory.NewRegistry()
	ctx := context.Background()

	reg := newInstance("FileAgent")
	require.NoError(t, r.Upsert(ctx, reg))

	require.NoError(t, r.UpdateStatus(ctx, reg.InstanceID, domainagent.StatusBusy))
	require.NoError(t, r.UpdateLoad(ctx, reg.InstanceID, 73.2))

	got, err := r.GetByInstanceID(ctx, reg.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, domainagent.StatusBusy, got.Status)
	assert.Equal(t, 73.2, got.CPUUsage)
}
