package engine

import (
	"math"

	"cyber-risk-lab/internal/domain"
)

// Aggregator accumulates per-iteration losses into running moments using
// Welford's algorithm, which stays numerically stable for long runs where
// a naive sum-of-squares would cancel catastrophically.
type Aggregator struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{min: math.Inf(1), max: math.Inf(-1)}
}

// Add folds one iteration loss into the running moments. Non-finite
// losses are rejected with ErrNumericInstability before they can poison
// the aggregate.
func (a *Aggregator) Add(loss float64) error {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return domain.ErrNumericInstability
	}
	a.count++
	delta := loss - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (loss - a.mean)
	if loss < a.min {
		a.min = loss
	}
	if loss > a.max {
		a.max = loss
	}
	return nil
}

// Count returns the number of losses observed.
func (a *Aggregator) Count() int { return a.count }

// Mean returns the running mean, zero before any observation.
func (a *Aggregator) Mean() float64 { return a.mean }

// Variance returns the running sample variance (n-1 denominator), zero
// below two observations.
func (a *Aggregator) Variance() float64 {
	if a.count < 2 {
		return 0
	}
	return a.m2 / float64(a.count-1)
}

// StdDev returns the running sample standard deviation.
func (a *Aggregator) StdDev() float64 { return math.Sqrt(a.Variance()) }

// Min returns the smallest loss observed, zero before any observation.
func (a *Aggregator) Min() float64 {
	if a.count == 0 {
		return 0
	}
	return a.min
}

// Max returns the largest loss observed, zero before any observation.
func (a *Aggregator) Max() float64 {
	if a.count == 0 {
		return 0
	}
	return a.max
}
