// Package financial applies policy terms to ground-up event losses and
// produces the insurer's retained loss per iteration.
package financial

import "cyber-risk-lab/internal/domain"

// Terms applies a portfolio's policy terms to event losses. Events are
// assigned to policies round-robin over the portfolio's policy order, so
// the mapping from event index to policy is deterministic.
type Terms struct {
	policies []domain.Policy

	applyDeductibles bool
	applyLimits      bool
	reinsurance      *domain.ReinsuranceLayer
}

// Options selects which terms are applied. Reinsurance is applied at the
// iteration's aggregate level when the layer is non-nil.
type Options struct {
	ApplyDeductibles bool
	ApplyLimits      bool
	Reinsurance      *domain.ReinsuranceLayer
}

// New validates the portfolio (and layer, if any) and builds a terms engine.
func New(portfolio domain.Portfolio, opts Options) (*Terms, error) {
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}
	if opts.Reinsurance != nil {
		if err := opts.Reinsurance.Validate(); err != nil {
			return nil, err
		}
	}
	return &Terms{
		policies:         portfolio.Policies,
		applyDeductibles: opts.ApplyDeductibles,
		applyLimits:      opts.ApplyLimits,
		reinsurance:      opts.Reinsurance,
	}, nil
}

// FromRequest builds the terms engine a simulation request describes.
func FromRequest(req domain.SimulationRequest) (*Terms, error) {
	opts := Options{
		ApplyDeductibles: req.ApplyDeductibles,
		ApplyLimits:      req.ApplyLimits,
	}
	if req.ApplyReinsurance {
		opts.Reinsurance = req.Reinsurance
	}
	return New(req.Portfolio, opts)
}

// IterationLoss maps one iteration's event losses to the insurer's retained
// aggregate loss. Events are applied to policies round-robin; reinsurance,
// when configured, cedes part of the aggregate afterwards.
func (t *Terms) IterationLoss(events []float64) float64 {
	var agg float64
	for i, x := range events {
		policy := t.policies[i%len(t.policies)]
		agg += t.retainedEventLoss(x, policy)
	}
	if t.reinsurance != nil {
		agg -= t.cededLoss(agg)
	}
	return agg
}

// retainedEventLoss applies deductible, limit cap and coinsurance to a
// single ground-up loss under one policy.
func (t *Terms) retainedEventLoss(groundUp float64, p domain.Policy) float64 {
	loss := groundUp
	if t.applyDeductibles {
		loss -= p.Deductible
		if loss < 0 {
			loss = 0
		}
	}
	if t.applyLimits {
		// The insurer's exposure per event is the limit net of deductible.
		if exposure := p.Limit - p.Deductible; loss > exposure {
			loss = exposure
		}
	}
	return loss * p.RetainedShare()
}

// cededLoss is the slice of the aggregate loss the reinsurance layer
// absorbs: the part above the attachment point, capped by the layer limit.
// It never exceeds the aggregate, so retained loss cannot go negative.
func (t *Terms) cededLoss(agg float64) float64 {
	ceded := agg - t.reinsurance.AttachmentPoint
	if ceded <= 0 {
		return 0
	}
	if ceded > t.reinsurance.LayerLimit {
		ceded = t.reinsurance.LayerLimit
	}
	return ceded
}
