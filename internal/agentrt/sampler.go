package agentrt

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/qwei/desk-mcp/internal/port/loadmetric"
)

// SelfSampler reports this process's CPU usage. It samples the agent's own
// pid rather than scanning the process table by name, which was never
// reliable across platforms.
func SelfSampler() loadmetric.Sampler {
	return loadmetric.Func(func(ctx context.Context) (float64, error) {
		p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return 0, err
		}
		return p.CPUPercentWithContext(ctx)
	})
}
