package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/metrics"
	"cyber-risk-lab/internal/storage"
)

// Generator produces reports from stored runs and results.
type Generator struct {
	runStore       storage.SimulationRunStore
	resultStore    storage.ResultStore
	portfolioStore storage.PortfolioStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. portfolioStore may be nil;
// the portfolio section then carries the ID only.
func NewGenerator(
	runStore storage.SimulationRunStore,
	resultStore storage.ResultStore,
	portfolioStore storage.PortfolioStore,
) *Generator {
	return &Generator{
		runStore:       runStore,
		resultStore:    resultStore,
		portfolioStore: portfolioStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for a completed run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	if !run.Status.Terminal() {
		return nil, domain.ErrRunNotTerminal
	}
	if run.Status != domain.RunCompleted {
		return nil, domain.ErrNoResult
	}

	res, err := g.resultStore.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrNoResult
		}
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Portfolio:   g.portfolioSummary(ctx, run.PortfolioID),
		Execution: ExecutionSummary{
			RequestedIterations: res.RequestedIterations,
			ExecutedIterations:  res.ExecutedIterations,
			Converged:           res.Converged,
			ConvergedAt:         res.ConvergedAt,
			Seed:                res.Seed,
			Elapsed:             res.Elapsed,
			FinishedAt:          res.FinishedAt,
		},
		Summary:  summaryRows(res),
		TailRisk: tailRiskRows(res),
	}, nil
}

// FromResult builds a report directly from an in-memory result, for
// one-shot runs that never touch a store.
func (g *Generator) FromResult(res *domain.SimulationResult, portfolio domain.Portfolio) *Report {
	return &Report{
		GeneratedAt: g.now(),
		RunID:       res.RunID,
		Portfolio: PortfolioSummary{
			PortfolioID: portfolio.PortfolioID,
			Name:        portfolio.Name,
			PolicyCount: len(portfolio.Policies),
			TotalValue:  portfolio.TotalValue,
			TotalLimit:  portfolio.TotalLimit(),
		},
		Execution: ExecutionSummary{
			RequestedIterations: res.RequestedIterations,
			ExecutedIterations:  res.ExecutedIterations,
			Converged:           res.Converged,
			ConvergedAt:         res.ConvergedAt,
			Seed:                res.Seed,
			Elapsed:             res.Elapsed,
			FinishedAt:          res.FinishedAt,
		},
		Summary:  summaryRows(res),
		TailRisk: tailRiskRows(res),
	}
}

// AddComparison appends a scenario comparison section built from deltas.
func (r *Report) AddComparison(deltas []metrics.Delta) {
	for _, d := range deltas {
		r.Comparison = append(r.Comparison, ComparisonRow{
			ScenarioID:      d.ScenarioID,
			ExpectedLossPct: d.ExpectedLossPct,
			StdDeviationPct: d.StdDeviationPct,
			MaxLossPct:      d.MaxLossPct,
			VaR95Pct:        d.VaRPct[domain.PercentileKey(0.95)],
			VaR99Pct:        d.VaRPct[domain.PercentileKey(0.99)],
			TVaR95Pct:       d.TVaRPct[domain.PercentileKey(0.95)],
			TVaR99Pct:       d.TVaRPct[domain.PercentileKey(0.99)],
		})
	}
}

// portfolioSummary loads the portfolio section, degrading to the bare ID
// when no store is wired or the portfolio is unknown.
func (g *Generator) portfolioSummary(ctx context.Context, portfolioID string) PortfolioSummary {
	summary := PortfolioSummary{PortfolioID: portfolioID}
	if g.portfolioStore == nil {
		return summary
	}
	p, err := g.portfolioStore.GetByID(ctx, portfolioID)
	if err != nil {
		return summary
	}
	summary.Name = p.Name
	summary.PolicyCount = len(p.Policies)
	summary.TotalValue = p.TotalValue
	summary.TotalLimit = p.TotalLimit()
	return summary
}

// summaryRows builds the headline statistics in fixed order.
func summaryRows(res *domain.SimulationResult) []SummaryRow {
	return []SummaryRow{
		{Metric: "expected_loss", Value: res.ExpectedLoss},
		{Metric: "std_deviation", Value: res.StdDeviation},
		{Metric: "variance", Value: res.Variance},
		{Metric: "min_loss", Value: res.MinLoss},
		{Metric: "max_loss", Value: res.MaxLoss},
		{Metric: "median_loss", Value: res.MedianLoss},
		{Metric: "skewness", Value: res.Skewness},
		{Metric: "kurtosis", Value: res.Kurtosis},
		{Metric: "coefficient_of_variation", Value: res.CoefficientOfVariation},
		{Metric: "probability_of_loss", Value: res.ProbabilityOfLoss},
	}
}

// tailRiskRows builds tail measure rows sorted by level.
func tailRiskRows(res *domain.SimulationResult) []TailRiskRow {
	levels := make([]string, 0, len(res.VaR))
	for level := range res.VaR {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	rows := make([]TailRiskRow, len(levels))
	for i, level := range levels {
		rows[i] = TailRiskRow{
			Level: level,
			VaR:   res.VaR[level],
			TVaR:  res.TVaR[level],
		}
	}
	return rows
}
