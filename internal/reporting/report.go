package reporting

import "time"

// Report is the rendered view of one completed simulation run, optionally
// extended with a scenario comparison table.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	Portfolio PortfolioSummary
	Execution ExecutionSummary

	// Summary Statistics (fixed metric order)
	Summary []SummaryRow

	// Tail Risk (sorted by percentile level)
	TailRisk []TailRiskRow

	// Scenario Comparison (empty unless a comparison ran)
	Comparison []ComparisonRow
}

// PortfolioSummary describes the book the run was priced against.
type PortfolioSummary struct {
	PortfolioID string
	Name        string
	PolicyCount int
	TotalValue  float64
	TotalLimit  float64
}

// ExecutionSummary contains run execution metadata.
type ExecutionSummary struct {
	RequestedIterations int
	ExecutedIterations  int
	Converged           bool
	ConvergedAt         int
	Seed                int64
	Elapsed             time.Duration
	FinishedAt          time.Time
}

// SummaryRow is one headline statistic.
type SummaryRow struct {
	Metric string
	Value  float64
}

// TailRiskRow holds the tail measures at one percentile level.
type TailRiskRow struct {
	Level string // formatted percentile key, e.g. "0.950"
	VaR   float64
	TVaR  float64
}

// ComparisonRow is one scenario's percentage deltas against the baseline.
type ComparisonRow struct {
	ScenarioID      string
	ExpectedLossPct float64
	StdDeviationPct float64
	MaxLossPct      float64
	VaR95Pct        float64
	VaR99Pct        float64
	TVaR95Pct       float64
	TVaR99Pct       float64
}
