package domain

import (
	"fmt"
	"time"
)

// LossVector is the ordered sequence of per-iteration retained-loss
// scalars. Its length equals executed iterations, which may fall short of
// requested iterations on early convergence. It is owned exclusively by
// the run until aggregation completes, then handed immutably to the risk
// metrics calculator.
type LossVector []float64

// Histogram is the binned loss distribution: equal-width bins spanning
// [min, max] of the loss vector. A degenerate all-equal vector produces a
// single bin.
type Histogram struct {
	Counts            []int     `json:"counts"`
	BinEdges          []float64 `json:"bin_edges"`
	BinCenters        []float64 `json:"bin_centers"`
	BinWidth          float64   `json:"bin_width"`
	TotalObservations int       `json:"total_observations"`
}

// ExceedanceCurve maps loss levels to the probability of meeting or
// exceeding them. ReturnPeriods holds 1/probability; a zero probability
// is represented as +Inf, never a numeric sentinel.
type ExceedanceCurve struct {
	LossLevels              []float64 `json:"loss_levels"`
	ExceedanceProbabilities []float64 `json:"exceedance_probabilities"`
	ReturnPeriods           []float64 `json:"return_periods"`
}

// SimulationResult is the derived, read-only outcome of a completed run.
// A completed status guarantees every field is populated and internally
// consistent.
type SimulationResult struct {
	RunID string `json:"run_id"`

	// Basic statistics.
	ExpectedLoss           float64 `json:"expected_loss"`
	StdDeviation           float64 `json:"std_deviation"`
	Variance               float64 `json:"variance"`
	MinLoss                float64 `json:"min_loss"`
	MaxLoss                float64 `json:"max_loss"`
	MedianLoss             float64 `json:"median_loss"`
	Skewness               float64 `json:"skewness"`
	Kurtosis               float64 `json:"kurtosis"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	ProbabilityOfLoss      float64 `json:"probability_of_loss"`

	// Tail risk measures keyed by percentile level formatted as "0.950".
	VaR  map[string]float64 `json:"var"`
	TVaR map[string]float64 `json:"tvar"`

	// Percentiles of the loss distribution, keyed the same way.
	Percentiles map[string]float64 `json:"percentiles"`

	HistogramData   Histogram       `json:"histogram_data"`
	ExceedanceCurve ExceedanceCurve `json:"exceedance_curve"`

	// Execution metadata.
	RequestedIterations int           `json:"requested_iterations"`
	ExecutedIterations  int           `json:"executed_iterations"`
	Converged           bool          `json:"converged"`
	ConvergedAt         int           `json:"converged_at,omitempty"` // iteration index, 0 when not converged
	Seed                int64         `json:"seed"`
	Elapsed             time.Duration `json:"elapsed"`
	FinishedAt          time.Time     `json:"finished_at"`
}

// PercentileKey formats a percentile level the way result maps are keyed,
// e.g. 0.95 -> "0.950". Three decimals distinguishes 0.99 from 0.999.
func PercentileKey(p float64) string {
	return fmt.Sprintf("%.3f", p)
}
