package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))

	// Portfolio
	sb.WriteString("## Portfolio\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Portfolio ID | %s |\n", r.Portfolio.PortfolioID))
	sb.WriteString(fmt.Sprintf("| Name | %s |\n", r.Portfolio.Name))
	sb.WriteString(fmt.Sprintf("| Policies | %d |\n", r.Portfolio.PolicyCount))
	sb.WriteString(fmt.Sprintf("| Total Value | %.2f |\n", r.Portfolio.TotalValue))
	sb.WriteString(fmt.Sprintf("| Total Limit | %.2f |\n", r.Portfolio.TotalLimit))
	sb.WriteString("\n")

	// Execution
	sb.WriteString("## Execution\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Requested Iterations | %d |\n", r.Execution.RequestedIterations))
	sb.WriteString(fmt.Sprintf("| Executed Iterations | %d |\n", r.Execution.ExecutedIterations))
	if r.Execution.Converged {
		sb.WriteString(fmt.Sprintf("| Converged | yes, at iteration %d |\n", r.Execution.ConvergedAt))
	} else {
		sb.WriteString("| Converged | no |\n")
	}
	sb.WriteString(fmt.Sprintf("| Seed | %d |\n", r.Execution.Seed))
	sb.WriteString(fmt.Sprintf("| Elapsed | %s |\n", r.Execution.Elapsed))
	sb.WriteString("\n")

	// Summary Statistics
	sb.WriteString("## Summary Statistics\n\n")
	if len(r.Summary) > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		for _, row := range r.Summary {
			sb.WriteString(fmt.Sprintf("| %s | %.4f |\n", row.Metric, row.Value))
		}
	} else {
		sb.WriteString("No summary statistics available.\n")
	}
	sb.WriteString("\n")

	// Tail Risk
	sb.WriteString("## Tail Risk\n\n")
	if len(r.TailRisk) > 0 {
		sb.WriteString("| Level | VaR | TVaR |\n")
		sb.WriteString("|-------|-----|------|\n")
		for _, row := range r.TailRisk {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f |\n", row.Level, row.VaR, row.TVaR))
		}
	} else {
		sb.WriteString("No tail risk measures available.\n")
	}
	sb.WriteString("\n")

	// Scenario Comparison
	if len(r.Comparison) > 0 {
		sb.WriteString("## Scenario Comparison (% vs baseline)\n\n")
		sb.WriteString("| Scenario | Expected Loss | StdDev | Max Loss | VaR95 | VaR99 | TVaR95 | TVaR99 |\n")
		sb.WriteString("|----------|---------------|--------|----------|-------|-------|--------|--------|\n")
		for _, row := range r.Comparison {
			sb.WriteString(fmt.Sprintf("| %s | %+.2f | %+.2f | %+.2f | %+.2f | %+.2f | %+.2f | %+.2f |\n",
				row.ScenarioID,
				row.ExpectedLossPct, row.StdDeviationPct, row.MaxLossPct,
				row.VaR95Pct, row.VaR99Pct, row.TVaR95Pct, row.TVaR99Pct))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
