package sampler

import (
	"math"
	"math/rand/v2"

	"cyber-risk-lab/internal/domain"
)

// knuthLambdaLimit is the largest lambda sampled by the Knuth product
// method. Above it the normal approximation is both faster and accurate
// (relative error under 1% once lambda exceeds ~30).
const knuthLambdaLimit = 30.0

// Frequency draws non-negative event counts from a validated frequency
// distribution. Construct with NewFrequency; a zero Frequency is unusable.
type Frequency struct {
	params domain.FrequencyParams
}

// NewFrequency validates the parameters and returns a frequency sampler.
func NewFrequency(p domain.FrequencyParams) (*Frequency, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Frequency{params: p}, nil
}

// Kind returns the underlying distribution kind.
func (f *Frequency) Kind() domain.FrequencyKind { return f.params.Kind }

// Sample draws one event count.
func (f *Frequency) Sample(rng *rand.Rand) int {
	switch f.params.Kind {
	case domain.FrequencyPoisson:
		return samplePoisson(rng, f.params.Lambda)
	case domain.FrequencyNegativeBinomial:
		return sampleNegativeBinomial(rng, f.params.R, f.params.P)
	case domain.FrequencyBinomial:
		return sampleBinomial(rng, f.params.N, f.params.P)
	}
	// NewFrequency rejects unknown kinds.
	panic("sampler: unreachable frequency kind " + string(f.params.Kind))
}

// Mean returns the distribution's expected count.
func (f *Frequency) Mean() float64 {
	switch f.params.Kind {
	case domain.FrequencyPoisson:
		return f.params.Lambda
	case domain.FrequencyNegativeBinomial:
		return f.params.R * (1 - f.params.P) / f.params.P
	case domain.FrequencyBinomial:
		return float64(f.params.N) * f.params.P
	}
	panic("sampler: unreachable frequency kind " + string(f.params.Kind))
}

// Variance returns the distribution's count variance.
func (f *Frequency) Variance() float64 {
	switch f.params.Kind {
	case domain.FrequencyPoisson:
		return f.params.Lambda
	case domain.FrequencyNegativeBinomial:
		return f.params.R * (1 - f.params.P) / (f.params.P * f.params.P)
	case domain.FrequencyBinomial:
		return float64(f.params.N) * f.params.P * (1 - f.params.P)
	}
	panic("sampler: unreachable frequency kind " + string(f.params.Kind))
}

// samplePoisson draws from Poisson(lambda). Small lambdas use Knuth's
// product method; large ones the rounded normal approximation.
func samplePoisson(rng *rand.Rand, lambda float64) int {
	if lambda <= knuthLambdaLimit {
		limit := math.Exp(-lambda)
		k, prod := 0, rng.Float64()
		for prod > limit {
			k++
			prod *= rng.Float64()
		}
		return k
	}
	n := math.Round(lambda + math.Sqrt(lambda)*rng.NormFloat64())
	if n < 0 {
		return 0
	}
	return int(n)
}

// sampleNegativeBinomial draws via the Gamma-Poisson mixture: a Poisson
// whose rate is itself Gamma(r, (1-p)/p) distributed.
func sampleNegativeBinomial(rng *rand.Rand, r, p float64) int {
	if p == 1 {
		return 0
	}
	rate := sampleGamma(rng, r, (1-p)/p)
	return samplePoisson(rng, rate)
}

func sampleBinomial(rng *rand.Rand, n int, p float64) int {
	k := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			k++
		}
	}
	return k
}
