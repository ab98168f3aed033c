package hmm

import (
	"github.com/cwbudde/algo-hmm/stats/core"
	"gonum.org/v1/gonum/mat"
)

// Filter runs the scaled forward recursion incrementally, one observation
// at a time. Feeding the rows of an emission matrix through Step gives the
// same log-likelihood as ForwardLogLikelihood, bit for bit.
//
// A Filter is not safe for concurrent use.
type Filter struct {
	rec *recursion
}

// NewFilter returns a Filter for the model (delta, gamma). Both are copied.
func NewFilter(delta []float64, gamma mat.Matrix) (*Filter, error) {
	N := len(delta)
	if N < 1 {
		return nil, &core.ShapeError{Op: op, What: "states", Got: N, Want: 1}
	}
	if err := checkModel(N, delta, gamma); err != nil {
		return nil, err
	}
	return &Filter{
		rec: newRecursion(append([]float64(nil), delta...), mat.DenseCopyOf(gamma)),
	}, nil
}

// Step consumes the emission probabilities of the next observation, one
// per state. A failed step leaves the Filter unchanged.
func (f *Filter) Step(probs []float64) error {
	if err := core.CheckDim(op, "emission row length", len(probs), len(f.rec.delta)); err != nil {
		return err
	}
	_, err := f.rec.step(probs)
	return err
}

// LogLikelihood returns the log-likelihood of the observations consumed so
// far. It is 0 before the first step.
func (f *Filter) LogLikelihood() float64 { return f.rec.ll }

// Steps returns the number of observations consumed.
func (f *Filter) Steps() int { return f.rec.steps }

// State returns a copy of the current filtered state distribution, or nil
// before the first step.
func (f *Filter) State() []float64 {
	if f.rec.steps == 0 {
		return nil
	}
	return append([]float64(nil), f.rec.v...)
}

// Reset discards all consumed observations.
func (f *Filter) Reset() {
	f.rec.reset()
}
