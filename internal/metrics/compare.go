package metrics

import "cyber-risk-lab/internal/domain"

// Delta captures the relative change of a variant's headline metrics
// against a baseline, in percent. Tail maps only contain levels present
// in both results.
type Delta struct {
	ScenarioID string `json:"scenario_id"`

	ExpectedLossPct float64 `json:"expected_loss_pct"`
	StdDeviationPct float64 `json:"std_deviation_pct"`
	MaxLossPct      float64 `json:"max_loss_pct"`

	VaRPct  map[string]float64 `json:"var_pct"`
	TVaRPct map[string]float64 `json:"tvar_pct"`
}

// Compare computes the percentage change of each headline metric from
// baseline to variant.
func Compare(scenarioID string, baseline, variant *domain.SimulationResult) Delta {
	d := Delta{
		ScenarioID:      scenarioID,
		ExpectedLossPct: pctChange(baseline.ExpectedLoss, variant.ExpectedLoss),
		StdDeviationPct: pctChange(baseline.StdDeviation, variant.StdDeviation),
		MaxLossPct:      pctChange(baseline.MaxLoss, variant.MaxLoss),
		VaRPct:          make(map[string]float64),
		TVaRPct:         make(map[string]float64),
	}
	for key, base := range baseline.VaR {
		if v, ok := variant.VaR[key]; ok {
			d.VaRPct[key] = pctChange(base, v)
		}
	}
	for key, base := range baseline.TVaR {
		if v, ok := variant.TVaR[key]; ok {
			d.TVaRPct[key] = pctChange(base, v)
		}
	}
	return d
}

// pctChange is the relative change in percent, zero when the baseline is
// zero (no meaningful reference).
func pctChange(base, v float64) float64 {
	if base == 0 {
		return 0
	}
	return 100 * (v - base) / base
}
