package engine

import "math"

// Monitor watches the running mean of the loss sequence and signals when
// it has stabilized: every relative change over the last window
// observations stayed below the threshold. Observations must arrive in
// iteration order for the signal to be reproducible.
type Monitor struct {
	threshold float64
	window    int

	agg    *Aggregator
	streak int

	converged   bool
	convergedAt int
}

// NewMonitor returns a monitor with the given relative-change threshold
// and trailing window length. Both must be positive.
func NewMonitor(threshold float64, window int) *Monitor {
	return &Monitor{threshold: threshold, window: window, agg: NewAggregator()}
}

// Observe folds one loss into the running mean and reports whether the
// sequence has converged. Once converged the monitor latches: further
// observations keep reporting true without moving ConvergedAt.
func (m *Monitor) Observe(loss float64) bool {
	if m.converged {
		return true
	}

	prev := m.agg.Mean()
	hadPrev := m.agg.Count() > 0
	if err := m.agg.Add(loss); err != nil {
		// Non-finite losses fail the run upstream; never converge on them.
		m.streak = 0
		return false
	}

	if !hadPrev || prev == 0 {
		m.streak = 0
		return false
	}

	rel := math.Abs(m.agg.Mean()-prev) / math.Abs(prev)
	if rel < m.threshold {
		m.streak++
	} else {
		m.streak = 0
	}

	if m.streak >= m.window {
		m.converged = true
		m.convergedAt = m.agg.Count()
	}
	return m.converged
}

// Converged reports whether the stop signal has fired.
func (m *Monitor) Converged() bool { return m.converged }

// ConvergedAt returns the iteration count at which the signal fired,
// zero when it has not.
func (m *Monitor) ConvergedAt() int { return m.convergedAt }
