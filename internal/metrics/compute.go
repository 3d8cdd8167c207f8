package metrics

import (
	"errors"
	"math"
	"sort"

	"cyber-risk-lab/internal/domain"
)

// ErrEmptyLossVector is returned when metrics are requested for a run
// that produced no losses.
var ErrEmptyLossVector = errors.New("no losses available for metrics computation")

// exceedanceCurvePoints caps the exceedance curve size; longer vectors
// are downsampled to evenly spaced order statistics.
const exceedanceCurvePoints = 100

// Compute calculates the full set of risk metrics from a completed loss
// vector. The vector is not mutated; percentile levels select which
// VaR/TVaR points are reported.
func Compute(losses domain.LossVector, percentileLevels []float64) (*domain.SimulationResult, error) {
	n := len(losses)
	if n == 0 {
		return nil, ErrEmptyLossVector
	}
	if len(percentileLevels) == 0 {
		percentileLevels = domain.DefaultPercentileLevels
	}

	sorted := make([]float64, n)
	copy(sorted, losses)
	sort.Float64s(sorted)

	mean := computeMean(losses)
	stddev := computeStddev(losses, mean)
	variance := stddev * stddev

	res := &domain.SimulationResult{
		ExpectedLoss: mean,
		StdDeviation: stddev,
		Variance:     variance,
		MinLoss:      sorted[0],
		MaxLoss:      sorted[n-1],
		MedianLoss:   computePercentile(sorted, 0.50),
		Skewness:     computeSkewness(losses, mean, stddev),
		Kurtosis:     computeKurtosis(losses, mean, stddev),

		VaR:         make(map[string]float64, len(percentileLevels)),
		TVaR:        make(map[string]float64, len(percentileLevels)),
		Percentiles: make(map[string]float64, len(percentileLevels)),
	}

	if mean != 0 {
		res.CoefficientOfVariation = stddev / mean
	}
	res.ProbabilityOfLoss = computeProbabilityOfLoss(sorted)

	for _, p := range percentileLevels {
		key := domain.PercentileKey(p)
		v := computePercentile(sorted, p)
		res.Percentiles[key] = v
		res.VaR[key] = v
		res.TVaR[key] = computeTVaR(sorted, v)
	}

	res.HistogramData = computeHistogram(sorted)
	res.ExceedanceCurve = computeExceedanceCurve(sorted)

	return res, nil
}

// computeMean calculates the arithmetic mean of losses.
func computeMean(losses []float64) float64 {
	if len(losses) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range losses {
		sum += x
	}
	return sum / float64(len(losses))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(losses []float64, mean float64) float64 {
	n := len(losses)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range losses {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC. p is the level (0.95 = 95th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeTVaR is the mean of losses at or above the VaR point. When no
// loss reaches it (possible with interpolated VaR above every sample),
// the VaR itself is returned.
func computeTVaR(sorted []float64, varAt float64) float64 {
	// Binary search for the first loss >= varAt.
	i := sort.SearchFloat64s(sorted, varAt)
	if i >= len(sorted) {
		return varAt
	}
	sum := 0.0
	for _, x := range sorted[i:] {
		sum += x
	}
	return sum / float64(len(sorted)-i)
}

// computeSkewness is the biased Fisher-Pearson coefficient m3 / m2^1.5,
// the same estimator the scientific default uses. Zero when the
// distribution has no spread.
func computeSkewness(losses []float64, mean, stddev float64) float64 {
	n := len(losses)
	if n < 2 || stddev == 0 {
		return 0
	}
	var m2, m3 float64
	for _, x := range losses {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	return m3 / math.Pow(m2, 1.5)
}

// computeKurtosis is the excess kurtosis m4/m2^2 - 3 (Fisher definition,
// biased): zero for a normal distribution.
func computeKurtosis(losses []float64, mean, stddev float64) float64 {
	n := len(losses)
	if n < 2 || stddev == 0 {
		return 0
	}
	var m2, m4 float64
	for _, x := range losses {
		d := x - mean
		d2 := d * d
		m2 += d2
		m4 += d2 * d2
	}
	m2 /= float64(n)
	m4 /= float64(n)
	return m4/(m2*m2) - 3
}

// computeProbabilityOfLoss is the fraction of iterations with a strictly
// positive loss. sorted must be pre-sorted ASC.
func computeProbabilityOfLoss(sorted []float64) float64 {
	// First strictly positive entry.
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] > 0 })
	return float64(len(sorted)-i) / float64(len(sorted))
}

// computeHistogram bins the losses into equal-width bins over [min, max]
// using Sturges' rule for the bin count. A vector with no spread
// degenerates to a single bin holding everything.
func computeHistogram(sorted []float64) domain.Histogram {
	n := len(sorted)
	lo, hi := sorted[0], sorted[n-1]

	if lo == hi {
		return domain.Histogram{
			Counts:            []int{n},
			BinEdges:          []float64{lo, hi},
			BinCenters:        []float64{lo},
			BinWidth:          0,
			TotalObservations: n,
		}
	}

	bins := int(math.Ceil(math.Log2(float64(n)))) + 1
	if bins < 1 {
		bins = 1
	}
	width := (hi - lo) / float64(bins)

	counts := make([]int, bins)
	for _, x := range sorted {
		b := int((x - lo) / width)
		if b >= bins { // the maximum lands on the last edge
			b = bins - 1
		}
		counts[b]++
	}

	edges := make([]float64, bins+1)
	centers := make([]float64, bins)
	for i := 0; i <= bins; i++ {
		edges[i] = lo + float64(i)*width
	}
	for i := 0; i < bins; i++ {
		centers[i] = lo + (float64(i)+0.5)*width
	}

	return domain.Histogram{
		Counts:            counts,
		BinEdges:          edges,
		BinCenters:        centers,
		BinWidth:          width,
		TotalObservations: n,
	}
}

// computeExceedanceCurve builds the empirical exceedance curve: loss
// levels in descending order with P(X >= level) = rank/n, downsampled to
// at most exceedanceCurvePoints evenly spaced order statistics. Return
// periods are 1/p, +Inf when p is zero.
func computeExceedanceCurve(sorted []float64) domain.ExceedanceCurve {
	n := len(sorted)

	points := n
	if points > exceedanceCurvePoints {
		points = exceedanceCurvePoints
	}

	levels := make([]float64, points)
	probs := make([]float64, points)
	periods := make([]float64, points)

	for i := 0; i < points; i++ {
		// Evenly spaced rank in descending order; rank 0 is the largest loss.
		rank := 0
		if points > 1 {
			rank = i * (n - 1) / (points - 1)
		}
		levels[i] = sorted[n-1-rank]
		probs[i] = float64(rank+1) / float64(n)
		periods[i] = returnPeriod(probs[i])
	}

	return domain.ExceedanceCurve{
		LossLevels:              levels,
		ExceedanceProbabilities: probs,
		ReturnPeriods:           periods,
	}
}

// returnPeriod converts an exceedance probability into a return period,
// mapping impossible events to +Inf rather than a numeric sentinel.
func returnPeriod(p float64) float64 {
	if p == 0 {
		return math.Inf(1)
	}
	return 1 / p
}
