// Package errs holds the error kinds shared by the simulation and calibration packages.
//
// Every failure returned by this module wraps exactly one of these sentinels,
// so callers can branch with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for mismatched grid/matrix dimensions,
	// non-square or invalid correlation input, and rank requests outside [1, n].
	// It is always raised before any path is drawn.
	ErrConfiguration = errors.New("configuration error")

	// ErrSimulationFailure is returned when too many paths produced a
	// non-finite state.
	ErrSimulationFailure = errors.New("simulation failure")

	// ErrNonConvergence is returned when the calibration budget was exhausted
	// before the optimizer reported convergence.
	ErrNonConvergence = errors.New("calibration did not converge")

	// ErrTypeMismatch is returned when an operation needs a model of a measure,
	// state space or dynamics it was not given.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Configf wraps ErrConfiguration with a formatted message.
func Configf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrConfiguration, fmt.Sprintf(format, args...))
}

// Mismatchf wraps ErrTypeMismatch with a formatted message.
func Mismatchf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrTypeMismatch, fmt.Sprintf(format, args...))
}
