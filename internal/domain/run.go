package domain

import "time"

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

// Run lifecycle states. Completed, failed and cancelled are terminal.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// SimulationRun is the lifecycle entity for one submitted request.
// It is created on submission and mutated only by the execution
// coordinator; ProgressPercent and CurrentIteration update only while
// the run is in RunRunning.
type SimulationRun struct {
	RunID            string     `json:"run_id"`
	PortfolioID      string     `json:"portfolio_id"`
	Status           RunStatus  `json:"status"`
	ProgressPercent  float64    `json:"progress_percent"`
	CurrentIteration int        `json:"current_iteration"`
	TotalIterations  int        `json:"total_iterations"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}
