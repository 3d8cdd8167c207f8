package domain

// Iteration bounds for a simulation request. The upper bound prevents
// runaway compute on a single run.
const (
	MinIterations = 1_000
	MaxIterations = 10_000_000
)

// DefaultMaxEventsPerIteration caps the number of events drawn in a single
// iteration regardless of the frequency draw.
const DefaultMaxEventsPerIteration = 100

// SimulationRequest is the full configuration for one Monte Carlo run.
// Structural correctness is assumed validated upstream; distribution
// parameter domains are re-validated here.
type SimulationRequest struct {
	Iterations int    `json:"iterations"`
	RandomSeed *int64 `json:"random_seed,omitempty"` // nil: non-reproducible run

	EventParams EventParameters `json:"event_params"`
	Portfolio   Portfolio       `json:"portfolio"`

	// Term application flags.
	ApplyDeductibles bool              `json:"apply_deductibles"`
	ApplyLimits      bool              `json:"apply_limits"`
	ApplyReinsurance bool              `json:"apply_reinsurance"`
	Reinsurance      *ReinsuranceLayer `json:"reinsurance,omitempty"`

	// Convergence / early stop.
	ConvergenceCheck     bool    `json:"convergence_check"`
	ConvergenceThreshold float64 `json:"convergence_threshold"`
	ConvergenceWindow    int     `json:"convergence_window"`

	// Execution.
	BatchSize             int  `json:"batch_size"`
	ParallelProcessing    bool `json:"parallel_processing"`
	MaxWorkers            int  `json:"max_workers"`
	MaxEventsPerIteration int  `json:"max_events_per_iteration"`

	// Output.
	PercentileLevels []float64 `json:"percentile_levels"`
}

// DefaultPercentileLevels are used when a request does not specify any.
var DefaultPercentileLevels = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 0.999}

// WithDefaults returns a copy of the request with zero-valued execution
// fields replaced by defaults.
func (r SimulationRequest) WithDefaults() SimulationRequest {
	if r.BatchSize == 0 {
		r.BatchSize = 1_000
	}
	if r.MaxWorkers == 0 {
		r.MaxWorkers = 4
	}
	if r.MaxEventsPerIteration == 0 {
		r.MaxEventsPerIteration = DefaultMaxEventsPerIteration
	}
	if r.ConvergenceCheck && r.ConvergenceThreshold == 0 {
		r.ConvergenceThreshold = 0.001
	}
	if r.ConvergenceCheck && r.ConvergenceWindow == 0 {
		r.ConvergenceWindow = 1_000
	}
	if len(r.PercentileLevels) == 0 {
		r.PercentileLevels = append([]float64(nil), DefaultPercentileLevels...)
	}
	return r
}

// Validate checks the request end to end. Returns a ParameterError naming
// the first offending field.
func (r SimulationRequest) Validate() error {
	if r.Iterations < MinIterations {
		return NewParameterError("iterations", "must be at least %d, got %d", MinIterations, r.Iterations)
	}
	if r.Iterations > MaxIterations {
		return NewParameterError("iterations", "must not exceed %d, got %d", MaxIterations, r.Iterations)
	}
	if err := r.EventParams.Validate(); err != nil {
		return err
	}
	if err := r.Portfolio.Validate(); err != nil {
		return err
	}
	if r.ApplyReinsurance {
		if r.Reinsurance == nil {
			return NewParameterError("reinsurance", "apply_reinsurance enabled but no layer configured")
		}
		if err := r.Reinsurance.Validate(); err != nil {
			return err
		}
	}
	if r.BatchSize <= 0 {
		return NewParameterError("batch_size", "must be positive, got %d", r.BatchSize)
	}
	if r.BatchSize > r.Iterations {
		return NewParameterError("batch_size", "must not exceed iterations %d, got %d", r.Iterations, r.BatchSize)
	}
	if r.MaxWorkers <= 0 {
		return NewParameterError("max_workers", "must be positive, got %d", r.MaxWorkers)
	}
	if r.MaxEventsPerIteration <= 0 {
		return NewParameterError("max_events_per_iteration", "must be positive, got %d", r.MaxEventsPerIteration)
	}
	if r.ConvergenceCheck {
		if r.ConvergenceThreshold <= 0 {
			return NewParameterError("convergence_threshold", "must be positive, got %v", r.ConvergenceThreshold)
		}
		if r.ConvergenceWindow <= 0 {
			return NewParameterError("convergence_window", "must be positive, got %d", r.ConvergenceWindow)
		}
		if r.ConvergenceWindow >= r.Iterations {
			return NewParameterError("convergence_window", "must be below iterations %d, got %d", r.Iterations, r.ConvergenceWindow)
		}
	}
	for _, p := range r.PercentileLevels {
		if p < 0 || p > 1 {
			return NewParameterError("percentile_levels", "percentile %v must be in [0, 1]", p)
		}
	}
	return nil
}
