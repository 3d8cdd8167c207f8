// Package orchestrator provides scenario comparison orchestration.
// It coordinates: baseline run → scenario variants → delta computation.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/engine"
	"cyber-risk-lab/internal/metrics"
)

// DefaultScenarios is the preset stress set run when none is configured.
var DefaultScenarios = []domain.ScenarioConfig{
	domain.ScenarioConfigBaseline,
	domain.ScenarioConfigElevatedFrequency,
	domain.ScenarioConfigSevereSeverity,
	domain.ScenarioConfigCatastrophic,
}

// Orchestrator runs a baseline simulation plus named stress variants over
// the same portfolio and seed, then computes percentage deltas of the
// headline risk metrics.
type Orchestrator struct {
	coordinator *engine.Coordinator
	scenarios   []domain.ScenarioConfig
	verbose     bool
}

// Options for creating Orchestrator.
type Options struct {
	Coordinator *engine.Coordinator     // nil: a default coordinator
	Scenarios   []domain.ScenarioConfig // nil: DefaultScenarios
	Verbose     bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		coordinator: opts.Coordinator,
		scenarios:   opts.Scenarios,
		verbose:     opts.Verbose,
	}
	if o.coordinator == nil {
		o.coordinator = engine.NewCoordinator(engine.CoordinatorOptions{})
	}
	if len(o.scenarios) == 0 {
		o.scenarios = DefaultScenarios
	}
	return o
}

// Comparison contains results from a scenario comparison run.
type Comparison struct {
	Baseline *domain.SimulationResult
	Variants map[string]*domain.SimulationResult // keyed by scenario ID, baseline excluded
	Deltas   []metrics.Delta                     // in configured scenario order
	Errors   []string
}

// Compare executes the full comparison. All runs share one seed, so
// variants differ from the baseline only through their parameter
// multipliers. A failing variant is recorded in Errors and skipped; a
// failing baseline aborts the whole comparison.
func (o *Orchestrator) Compare(ctx context.Context, base domain.SimulationRequest) (*Comparison, error) {
	base = base.WithDefaults()
	if err := base.Validate(); err != nil {
		return nil, err
	}

	// Pin the seed so every variant replays the same random stream.
	if base.RandomSeed == nil {
		seed := time.Now().UnixNano()
		base.RandomSeed = &seed
	}

	result := &Comparison{Variants: make(map[string]*domain.SimulationResult)}

	// Phase 1: baseline
	o.log("Phase 1: Running baseline (%d iterations, seed %d)...", base.Iterations, *base.RandomSeed)
	baseline, err := o.runOne(ctx, domain.ScenarioBaseline, base)
	if err != nil {
		return nil, fmt.Errorf("baseline run failed: %w", err)
	}
	result.Baseline = baseline
	o.log("  Baseline expected loss: %.2f", baseline.ExpectedLoss)

	// Phase 2: scenario variants
	o.log("Phase 2: Running scenario variants...")
	for _, sc := range o.scenarios {
		if sc.ScenarioID == domain.ScenarioBaseline {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		variant := base
		variant.EventParams = sc.Apply(base.EventParams)

		res, err := o.runOne(ctx, sc.ScenarioID, variant)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("scenario %s: %v", sc.ScenarioID, err))
			continue
		}
		result.Variants[sc.ScenarioID] = res
		o.log("  Scenario %s expected loss: %.2f", sc.ScenarioID, res.ExpectedLoss)
	}

	// Phase 3: deltas against baseline, in configured order
	o.log("Phase 3: Computing deltas...")
	for _, sc := range o.scenarios {
		res, ok := result.Variants[sc.ScenarioID]
		if !ok {
			continue
		}
		result.Deltas = append(result.Deltas, metrics.Compare(sc.ScenarioID, baseline, res))
	}

	o.log("Comparison completed: %d variants, %d errors", len(result.Variants), len(result.Errors))
	return result, nil
}

// runOne executes a single simulation and derives its risk metrics.
func (o *Orchestrator) runOne(ctx context.Context, scenarioID string, req domain.SimulationRequest) (*domain.SimulationResult, error) {
	outcome, err := o.coordinator.Execute(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	res, err := metrics.Compute(outcome.Losses, req.PercentileLevels)
	if err != nil {
		return nil, err
	}
	res.RunID = scenarioID
	res.RequestedIterations = req.Iterations
	res.ExecutedIterations = outcome.Executed
	res.Converged = outcome.Converged
	res.ConvergedAt = outcome.ConvergedAt
	res.Seed = outcome.Seed
	res.Elapsed = outcome.Elapsed
	return res, nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
