package domain

// FrequencyKind identifies a frequency (event count) distribution.
type FrequencyKind string

// Frequency distribution kinds.
const (
	FrequencyPoisson          FrequencyKind = "poisson"
	FrequencyNegativeBinomial FrequencyKind = "negative_binomial"
	FrequencyBinomial         FrequencyKind = "binomial"
)

// SeverityKind identifies a severity (loss magnitude) distribution.
type SeverityKind string

// Severity distribution kinds.
const (
	SeverityLogNormal   SeverityKind = "lognormal"
	SeverityPareto      SeverityKind = "pareto"
	SeverityGamma       SeverityKind = "gamma"
	SeverityExponential SeverityKind = "exponential"
	SeverityWeibull     SeverityKind = "weibull"
)

// FrequencyParams carries the parameter set for a frequency distribution.
// Only the fields relevant to Kind are read.
type FrequencyParams struct {
	Kind FrequencyKind `json:"kind"`

	// Poisson
	Lambda float64 `json:"lambda,omitempty"`

	// NegativeBinomial (R successes, probability P) and Binomial (N trials,
	// probability P). R may be non-integer; N must be a positive integer.
	R float64 `json:"r,omitempty"`
	N int     `json:"n,omitempty"`
	P float64 `json:"p,omitempty"`
}

// SeverityParams carries the parameter set for a severity distribution.
// Only the fields relevant to Kind are read.
type SeverityParams struct {
	Kind SeverityKind `json:"kind"`

	// LogNormal
	Mu    float64 `json:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty"`

	// Pareto, Gamma, Exponential, Weibull
	Shape float64 `json:"shape,omitempty"`
	Scale float64 `json:"scale,omitempty"`
}

// CorrelationType identifies how frequency and severity are coupled.
type CorrelationType string

// Correlation types.
const (
	// CorrelationFrequencySeverity scales severity draws as a function of
	// the realized event count for the iteration.
	CorrelationFrequencySeverity CorrelationType = "frequency_severity"
)

// Correlation describes optional frequency-severity coupling.
// Strength is in [-1, 1]; zero disables the coupling.
type Correlation struct {
	Type     CorrelationType `json:"type"`
	Strength float64         `json:"strength"`
}

// EventParameters configures event generation for one simulation:
// a frequency model for the number of events per iteration and a severity
// model for the loss magnitude of each event.
type EventParameters struct {
	Frequency   FrequencyParams `json:"frequency"`
	Severity    SeverityParams  `json:"severity"`
	Correlation *Correlation    `json:"correlation,omitempty"`
}

// Validate checks distribution parameter domains. It returns a
// ParameterError naming the offending field on the first violation.
func (e EventParameters) Validate() error {
	if err := e.Frequency.Validate(); err != nil {
		return err
	}
	if err := e.Severity.Validate(); err != nil {
		return err
	}
	if e.Correlation != nil {
		if e.Correlation.Type != CorrelationFrequencySeverity {
			return NewParameterError("correlation.type", "unknown correlation type %q", e.Correlation.Type)
		}
		if e.Correlation.Strength < -1 || e.Correlation.Strength > 1 {
			return NewParameterError("correlation.strength", "must be in [-1, 1], got %v", e.Correlation.Strength)
		}
	}
	return nil
}

// Validate checks frequency parameter domains.
func (p FrequencyParams) Validate() error {
	switch p.Kind {
	case FrequencyPoisson:
		if p.Lambda <= 0 {
			return NewParameterError("frequency.lambda", "poisson lambda must be positive, got %v", p.Lambda)
		}
	case FrequencyNegativeBinomial:
		if p.R <= 0 {
			return NewParameterError("frequency.r", "negative binomial r must be positive, got %v", p.R)
		}
		if p.P <= 0 || p.P > 1 {
			return NewParameterError("frequency.p", "negative binomial p must be in (0, 1], got %v", p.P)
		}
	case FrequencyBinomial:
		if p.N < 1 {
			return NewParameterError("frequency.n", "binomial n must be a positive integer, got %d", p.N)
		}
		if p.P < 0 || p.P > 1 {
			return NewParameterError("frequency.p", "binomial p must be in [0, 1], got %v", p.P)
		}
	default:
		return NewParameterError("frequency.kind", "unknown frequency distribution %q", p.Kind)
	}
	return nil
}

// Validate checks severity parameter domains.
func (p SeverityParams) Validate() error {
	switch p.Kind {
	case SeverityLogNormal:
		if p.Sigma <= 0 {
			return NewParameterError("severity.sigma", "lognormal sigma must be positive, got %v", p.Sigma)
		}
	case SeverityPareto:
		if p.Scale <= 0 {
			return NewParameterError("severity.scale", "pareto scale must be positive, got %v", p.Scale)
		}
		if p.Shape <= 0 {
			return NewParameterError("severity.shape", "pareto shape must be positive, got %v", p.Shape)
		}
	case SeverityGamma:
		if p.Shape <= 0 {
			return NewParameterError("severity.shape", "gamma shape must be positive, got %v", p.Shape)
		}
		if p.Scale <= 0 {
			return NewParameterError("severity.scale", "gamma scale must be positive, got %v", p.Scale)
		}
	case SeverityExponential:
		if p.Scale <= 0 {
			return NewParameterError("severity.scale", "exponential scale must be positive, got %v", p.Scale)
		}
	case SeverityWeibull:
		if p.Shape <= 0 {
			return NewParameterError("severity.shape", "weibull shape must be positive, got %v", p.Shape)
		}
		if p.Scale <= 0 {
			return NewParameterError("severity.scale", "weibull scale must be positive, got %v", p.Scale)
		}
	default:
		return NewParameterError("severity.kind", "unknown severity distribution %q", p.Kind)
	}
	return nil
}
