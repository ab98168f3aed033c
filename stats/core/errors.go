package core

import (
	"errors"
	"fmt"
)

var (
	// ErrShape matches every *ShapeError via errors.Is.
	ErrShape = errors.New("shape mismatch")

	// ErrNumerical matches every *NumericalError via errors.Is.
	ErrNumerical = errors.New("numerical failure")
)

// ShapeError reports inconsistent input dimensions. It is always returned
// before any computation starts.
type ShapeError struct {
	Op   string // package-qualified operation, e.g. "mvn"
	What string // the dimension being checked
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s is %d, want %d", e.Op, e.What, e.Got, e.Want)
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// NumericalError reports a failure detected while computing: a covariance
// that cannot be factorized, or a step of the forward recursion with no
// probability mass. No partial result accompanies it.
type NumericalError struct {
	Op   string
	Msg  string
	Step int // 1-based time step, or 0 when not tied to a step
	Err  error
}

func (e *NumericalError) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Step > 0 {
		msg = fmt.Sprintf("%s at step %d", msg, e.Step)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrNumerical.
func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

// Unwrap returns the underlying cause, if any.
func (e *NumericalError) Unwrap() error {
	return e.Err
}

// CheckDim returns a *ShapeError when got differs from want.
func CheckDim(op, what string, got, want int) error {
	if got != want {
		return &ShapeError{Op: op, What: what, Got: got, Want: want}
	}
	return nil
}
