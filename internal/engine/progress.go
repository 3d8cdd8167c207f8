package engine

import (
	"log"

	"cyber-risk-lab/internal/domain"
)

// ProgressSink receives execution progress after each completed batch.
// Implementations must not block: the coordinator calls Report from its
// merge loop and slow sinks would stall the run.
type ProgressSink interface {
	Report(current, total int, status domain.RunStatus)
}

// NopSink discards progress reports.
type NopSink struct{}

// Report implements ProgressSink.
func (NopSink) Report(int, int, domain.RunStatus) {}

// LogSink writes progress lines to the standard logger. MinDelta
// suppresses lines until progress advanced by at least that many
// percentage points since the last one; terminal statuses always log.
type LogSink struct {
	MinDelta float64

	lastPct float64
}

// Report implements ProgressSink.
func (s *LogSink) Report(current, total int, status domain.RunStatus) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(current) / float64(total)
	}
	if !status.Terminal() && pct-s.lastPct < s.MinDelta {
		return
	}
	s.lastPct = pct
	log.Printf("[engine] progress %d/%d (%.1f%%) status=%s", current, total, pct, status)
}

// MultiSink fans a report out to every sink in order.
type MultiSink []ProgressSink

// Report implements ProgressSink.
func (m MultiSink) Report(current, total int, status domain.RunStatus) {
	for _, s := range m {
		s.Report(current, total, status)
	}
}
