// Package eventgen turns a frequency and a severity model into per-iteration
// loss events. It has no knowledge of policies or terms; its output is the
// raw ground-up loss of each event.
package eventgen

import (
	"math/rand/v2"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/sampler"
)

// Generator produces the events of one simulation iteration.
type Generator struct {
	frequency *sampler.Frequency
	severity  *sampler.Severity

	correlation *domain.Correlation
	maxEvents   int
}

// New validates the event parameters and builds a generator. maxEvents
// caps the count drawn in any single iteration; zero or negative falls
// back to the default cap.
func New(params domain.EventParameters, maxEvents int) (*Generator, error) {
	freq, err := sampler.NewFrequency(params.Frequency)
	if err != nil {
		return nil, err
	}
	sev, err := sampler.NewSeverity(params.Severity)
	if err != nil {
		return nil, err
	}
	if params.Correlation != nil {
		if err := params.Validate(); err != nil {
			return nil, err
		}
	}
	if maxEvents <= 0 {
		maxEvents = domain.DefaultMaxEventsPerIteration
	}
	return &Generator{
		frequency:   freq,
		severity:    sev,
		correlation: params.Correlation,
		maxEvents:   maxEvents,
	}, nil
}

// MaxEvents returns the per-iteration event cap.
func (g *Generator) MaxEvents() int { return g.maxEvents }

// Severity exposes the severity sampler for tail inspection.
func (g *Generator) Severity() *sampler.Severity { return g.severity }

// Generate draws one iteration's events into dst and returns the slice,
// possibly empty. dst is reused across iterations to avoid per-iteration
// allocation inside the hot loop.
func (g *Generator) Generate(rng *rand.Rand, dst []float64) []float64 {
	k := g.frequency.Sample(rng)
	if k > g.maxEvents {
		k = g.maxEvents
	}
	if k <= 0 {
		return dst[:0]
	}

	dst = dst[:0]
	for i := 0; i < k; i++ {
		dst = append(dst, g.severity.Sample(rng))
	}

	if f := g.correlationFactor(k); f != 1 {
		for i := range dst {
			dst[i] *= f
		}
	}
	return dst
}

// correlationFactor converts the realized event count into a multiplicative
// severity adjustment. A positive strength inflates severities in iterations
// with above-average counts and deflates them below average; the factor is
// floored at zero so losses stay non-negative.
func (g *Generator) correlationFactor(k int) float64 {
	if g.correlation == nil || g.correlation.Strength == 0 {
		return 1
	}
	mean := g.frequency.Mean()
	if mean <= 0 {
		return 1
	}
	f := 1 + g.correlation.Strength*(float64(k)-mean)/mean
	if f < 0 {
		return 0
	}
	return f
}
