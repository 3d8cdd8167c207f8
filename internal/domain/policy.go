package domain

// Policy represents one insurance policy's financial terms.
// Policies are immutable once a simulation run starts.
type Policy struct {
	PolicyID    string  `json:"policy_id"`
	Limit       float64 `json:"limit"`       // maximum insurer liability, > 0
	Deductible  float64 `json:"deductible"`  // absorbed by the insured, [0, limit)
	Coinsurance float64 `json:"coinsurance"` // fraction ceded by insurer, [0, 1]
	Premium     float64 `json:"premium"`     // informational only
}

// Validate checks the policy's term constraints.
func (p Policy) Validate() error {
	if p.PolicyID == "" {
		return NewParameterError("policy.policy_id", "must not be empty")
	}
	if p.Limit <= 0 {
		return NewParameterError("policy.limit", "must be positive, got %v", p.Limit)
	}
	if p.Deductible < 0 {
		return NewParameterError("policy.deductible", "must not be negative, got %v", p.Deductible)
	}
	if p.Deductible >= p.Limit {
		return NewParameterError("policy.deductible", "must be below limit %v, got %v", p.Limit, p.Deductible)
	}
	if p.Coinsurance < 0 || p.Coinsurance > 1 {
		return NewParameterError("policy.coinsurance", "must be in [0, 1], got %v", p.Coinsurance)
	}
	return nil
}

// RetainedShare is the fraction of covered loss the insurer keeps.
func (p Policy) RetainedShare() float64 {
	return 1 - p.Coinsurance
}

// Portfolio is an ordered set of policies. Policy order matters: event
// assignment is deterministic over it.
type Portfolio struct {
	PortfolioID string   `json:"portfolio_id"`
	Name        string   `json:"name"`
	Policies    []Policy `json:"policies"`
	TotalValue  float64  `json:"total_value"` // for ratio metrics only
}

// Validate checks the portfolio and every policy in it.
func (pf Portfolio) Validate() error {
	if len(pf.Policies) == 0 {
		return NewParameterError("portfolio.policies", "must contain at least one policy")
	}
	if pf.TotalValue <= 0 {
		return NewParameterError("portfolio.total_value", "must be positive, got %v", pf.TotalValue)
	}
	seen := make(map[string]struct{}, len(pf.Policies))
	for _, p := range pf.Policies {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.PolicyID]; dup {
			return NewParameterError("portfolio.policies", "duplicate policy_id %q", p.PolicyID)
		}
		seen[p.PolicyID] = struct{}{}
	}
	return nil
}

// TotalLimit sums all policy limits.
func (pf Portfolio) TotalLimit() float64 {
	var sum float64
	for _, p := range pf.Policies {
		sum += p.Limit
	}
	return sum
}

// ReinsuranceLayer cedes the portion of the policy-level aggregated loss
// falling within [AttachmentPoint, AttachmentPoint+LayerLimit) to a
// reinsurer, reducing the insurer's retained loss.
type ReinsuranceLayer struct {
	AttachmentPoint float64 `json:"attachment_point"`
	LayerLimit      float64 `json:"layer_limit"`
}

// Validate checks layer constraints.
func (r ReinsuranceLayer) Validate() error {
	if r.AttachmentPoint < 0 {
		return NewParameterError("reinsurance.attachment_point", "must not be negative, got %v", r.AttachmentPoint)
	}
	if r.LayerLimit <= 0 {
		return NewParameterError("reinsurance.layer_limit", "must be positive, got %v", r.LayerLimit)
	}
	return nil
}
