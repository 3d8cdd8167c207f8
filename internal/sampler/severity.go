package sampler

import (
	"math"
	"math/rand/v2"

	"cyber-risk-lab/internal/domain"
)

// Severity draws positive loss magnitudes from a validated severity
// distribution. Construct with NewSeverity; a zero Severity is unusable.
type Severity struct {
	params domain.SeverityParams
}

// NewSeverity validates the parameters and returns a severity sampler.
func NewSeverity(p domain.SeverityParams) (*Severity, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Severity{params: p}, nil
}

// Kind returns the underlying distribution kind.
func (s *Severity) Kind() domain.SeverityKind { return s.params.Kind }

// Sample draws one loss magnitude.
func (s *Severity) Sample(rng *rand.Rand) float64 {
	p := s.params
	switch p.Kind {
	case domain.SeverityLogNormal:
		return math.Exp(p.Mu + p.Sigma*rng.NormFloat64())
	case domain.SeverityPareto:
		// Inverse CDF; Float64 is in [0, 1) so 1-u never hits zero.
		return p.Scale * math.Pow(1-rng.Float64(), -1/p.Shape)
	case domain.SeverityGamma:
		return sampleGamma(rng, p.Shape, p.Scale)
	case domain.SeverityExponential:
		return p.Scale * rng.ExpFloat64()
	case domain.SeverityWeibull:
		return p.Scale * math.Pow(-math.Log(1-rng.Float64()), 1/p.Shape)
	}
	// NewSeverity rejects unknown kinds.
	panic("sampler: unreachable severity kind " + string(p.Kind))
}

// Mean returns the distribution's expected loss. Heavy tails can make it
// infinite (Pareto shape <= 1); callers get +Inf, never an error.
func (s *Severity) Mean() float64 {
	p := s.params
	switch p.Kind {
	case domain.SeverityLogNormal:
		return math.Exp(p.Mu + p.Sigma*p.Sigma/2)
	case domain.SeverityPareto:
		if p.Shape <= 1 {
			return math.Inf(1)
		}
		return p.Shape * p.Scale / (p.Shape - 1)
	case domain.SeverityGamma:
		return p.Shape * p.Scale
	case domain.SeverityExponential:
		return p.Scale
	case domain.SeverityWeibull:
		return p.Scale * math.Gamma(1+1/p.Shape)
	}
	panic("sampler: unreachable severity kind " + string(p.Kind))
}

// Variance returns the distribution's loss variance, +Inf when undefined
// (Pareto shape <= 2).
func (s *Severity) Variance() float64 {
	p := s.params
	switch p.Kind {
	case domain.SeverityLogNormal:
		s2 := p.Sigma * p.Sigma
		return (math.Exp(s2) - 1) * math.Exp(2*p.Mu+s2)
	case domain.SeverityPareto:
		if p.Shape <= 2 {
			return math.Inf(1)
		}
		d := p.Shape - 1
		return p.Scale * p.Scale * p.Shape / (d * d * (p.Shape - 2))
	case domain.SeverityGamma:
		return p.Shape * p.Scale * p.Scale
	case domain.SeverityExponential:
		return p.Scale * p.Scale
	case domain.SeverityWeibull:
		g1 := math.Gamma(1 + 1/p.Shape)
		g2 := math.Gamma(1 + 2/p.Shape)
		return p.Scale * p.Scale * (g2 - g1*g1)
	}
	panic("sampler: unreachable severity kind " + string(p.Kind))
}

// HeavyTailed reports whether the distribution's variance is infinite,
// which degrades convergence of sample means. Currently only Pareto with
// shape <= 2 qualifies.
func (s *Severity) HeavyTailed() bool {
	return s.params.Kind == domain.SeverityPareto && s.params.Shape <= 2
}

// sampleGamma draws from Gamma(shape, scale) using Marsaglia and Tsang's
// squeeze method. Shapes below one use the boost G(a+1) * U^(1/a).
func sampleGamma(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1 {
		u := 1 - rng.Float64() // (0, 1], keeps Pow finite
		return sampleGamma(rng, shape+1, scale) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v * scale
		}
		if u > 0 && math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v * scale
		}
	}
}
