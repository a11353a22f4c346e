package loadmetric

import "context"

// NeutralLoad is assumed when a sample is unavailable, so an instance with a
// broken sampler neither wins nor loses every selection.
const NeutralLoad = 50.0

// Sampler reports a load figure in [0,100] for ranking instances during
// dispatch. The sampling mechanism is deliberately pluggable; the server's
// default reads the value agents last reported, the agent runtime's default
// samples its own process.
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}

// Func adapts a plain function to the Sampler interface.
type Func func(ctx context.Context) (float64, error)

func (f Func) Sample(ctx context.Context) (float64, error) { return f(ctx) }
