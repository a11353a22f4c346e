package agent_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
)

func TestNew_InstanceIDsAreDistinct(t *testing.T) {
	addr := domainagent.Address{Endpoint: "http://127.0.0.1:9301"}
	tools := []domainagent.Tool{{Name: "search_file"}}

	a := domainagent.New("FileAgent", addr, tools)
	b := domainagent.New("FileAgent", addr, tools)

	assert.NotEqual(t, a.InstanceID, b.InstanceID)
	assert.True(t, strings.HasPrefix(a.InstanceID, "FileAgent_"))
	assert.True(t, strings.HasPrefix(b.InstanceID, "FileAgent_"))
	assert.Equal(t, domainagent.StatusOnline, a.Status)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "FileAgent", domainagent.NormalizeName("  FileAgent "))
	assert.Equal(t, "", domainagent.NormalizeName("   "))
}

func TestDecayedStatus(t *testing.T) {
	busyAfter := 10 * time.Second
	offlineAfter := 60 * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		want    domainagent.Status
	}{
		{"fresh activity is online", 2 * time.Second, domainagent.StatusOnline},
		{"idle past busy window", 15 * time.Second, domainagent.StatusBusy},
		{"just under offline threshold", 59 * time.Second, domainagent.StatusBusy},
		{"past offline threshold", 2 * time.Minute, domainagent.StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := domainagent.Registration{LastSeen: time.Now().UTC().Add(-tt.elapsed)}
			assert.Equal(t, tt.want, reg.DecayedStatus(busyAfter, offlineAfter))
		})
	}
}

func TestIsAlive(t *testing.T) {
	reg := domainagent.Registration{
		Status:   domainagent.StatusOnline,
		LastSeen: time.Now().UTC().Add(-30 * time.Second),
	}
	assert.True(t, reg.IsAlive(60*time.Second))
	assert.False(t, reg.IsAlive(10*time.Second))

	// A marked-offline instance is dead regardless of last_seen.
	reg.Status = domainagent.StatusOffline
	reg.LastSeen = time.Now().UTC()
	assert.False(t, reg.IsAlive(60*time.Second))
}

func TestTouchRefreshesLastSeen(t *testing.T) {
	reg := domainagent.Registration{LastSeen: time.Now().UTC().Add(-time.Hour)}
	reg.Touch()
	require.WithinDuration(t, time.Now().UTC(), reg.LastSeen, time.Second)
}

func TestHasTool(t *testing.T) {
	reg := domainagent.Registration{Tools: []domainagent.Tool{{Name: "echo"}, {Name: "shout"}}}
	assert.True(t, reg.HasTool("shout"))
	assert.False(t, reg.HasTool("whisper"))
}
