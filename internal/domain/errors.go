package domain

import (
	"errors"
	"fmt"
)

// ParameterError reports an invalid distribution or request parameter.
// It is raised at request validation, before any sampling, and is fatal
// to the request.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// NewParameterError creates a ParameterError for the given field.
func NewParameterError(field, format string, args ...any) *ParameterError {
	return &ParameterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Engine errors.
var (
	// ErrNumericInstability is returned when sampling or aggregation
	// produces a non-finite value (overflow/NaN). Common with extreme
	// Pareto shapes.
	ErrNumericInstability = errors.New("numeric instability: non-finite value produced")

	// ErrRunNotFound is returned when a run ID is unknown to the manager.
	ErrRunNotFound = errors.New("simulation run not found")

	// ErrRunNotTerminal is returned when a result is requested for a run
	// that has not reached a terminal state yet.
	ErrRunNotTerminal = errors.New("simulation run has not finished")

	// ErrNoResult is returned when a run terminated without producing a
	// result (failed or cancelled runs never carry one).
	ErrNoResult = errors.New("simulation run produced no result")
)
