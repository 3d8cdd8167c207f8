package domain

import "math"

// ScenarioConfig represents a named stress variant applied on top of a
// baseline event model for scenario comparison. Multipliers act on the
// distribution parameters that shift frequency and severity.
type ScenarioConfig struct {
	ScenarioID          string  // "baseline" | "elevated_frequency" | "severe_severity" | "catastrophic"
	FrequencyMultiplier float64 // scales lambda / r / n
	SeverityMultiplier  float64 // scales mu (additive in log space for lognormal) / scale
}

// Scenario ID constants.
const (
	ScenarioBaseline          = "baseline"
	ScenarioElevatedFrequency = "elevated_frequency"
	ScenarioSevereSeverity    = "severe_severity"
	ScenarioCatastrophic      = "catastrophic"
)

// Predefined scenario configurations.
var (
	ScenarioConfigBaseline = ScenarioConfig{
		ScenarioID:          ScenarioBaseline,
		FrequencyMultiplier: 1.0,
		SeverityMultiplier:  1.0,
	}

	ScenarioConfigElevatedFrequency = ScenarioConfig{
		ScenarioID:          ScenarioElevatedFrequency,
		FrequencyMultiplier: 2.0,
		SeverityMultiplier:  1.0,
	}

	ScenarioConfigSevereSeverity = ScenarioConfig{
		ScenarioID:          ScenarioSevereSeverity,
		FrequencyMultiplier: 1.0,
		SeverityMultiplier:  1.5,
	}

	ScenarioConfigCatastrophic = ScenarioConfig{
		ScenarioID:          ScenarioCatastrophic,
		FrequencyMultiplier: 2.0,
		SeverityMultiplier:  2.0,
	}
)

// Apply returns event parameters with the scenario's multipliers applied.
// The baseline parameters are not mutated.
func (s ScenarioConfig) Apply(base EventParameters) EventParameters {
	out := base

	switch out.Frequency.Kind {
	case FrequencyPoisson:
		out.Frequency.Lambda = base.Frequency.Lambda * s.FrequencyMultiplier
	case FrequencyNegativeBinomial:
		out.Frequency.R = base.Frequency.R * s.FrequencyMultiplier
	case FrequencyBinomial:
		n := float64(base.Frequency.N) * s.FrequencyMultiplier
		if n < 1 {
			n = 1
		}
		out.Frequency.N = int(n)
	}

	switch out.Severity.Kind {
	case SeverityLogNormal:
		// Scaling a lognormal variate by m shifts mu by ln(m).
		if s.SeverityMultiplier > 0 {
			out.Severity.Mu = base.Severity.Mu + math.Log(s.SeverityMultiplier)
		}
	case SeverityPareto, SeverityGamma, SeverityExponential, SeverityWeibull:
		out.Severity.Scale = base.Severity.Scale * s.SeverityMultiplier
	}

	return out
}
