package hmm

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-hmm/stats/core"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const op = "hmm"

// ErrZeroLikelihood is the cause of the *core.NumericalError returned when
// a step of the recursion has zero (or non-finite) total mass.
var ErrZeroLikelihood = errors.New("observation has no finite probability mass")

// Trace is the full output of the forward recursion.
type Trace struct {
	// LogLikelihood is ln P(x₁..xₙ).
	LogLikelihood float64

	// LogScales holds ln P(xₜ | x₁..xₜ₋₁) for every step. It sums to
	// LogLikelihood.
	LogScales []float64

	// Filtered is P(stateₙ | x₁..xₙ). It is nil when n is 0.
	Filtered []float64
}

// ForwardLogLikelihood returns the log-likelihood of an n-step observation
// sequence under an N-state HMM.
//
// delta is the initial distribution, gamma the N×N transition matrix and
// allprobs the n×N emission matrix (nil or empty when n is 0). Dimensions
// are checked before the first step and reported as *core.ShapeError. A
// step whose total mass is zero or not finite aborts with a
// *core.NumericalError wrapping ErrZeroLikelihood.
//
// n = 0 yields 0. For n = 1 gamma is checked but not used.
func ForwardLogLikelihood(n, N int, delta []float64, gamma, allprobs mat.Matrix) (float64, error) {
	if err := validate(n, N, delta, gamma, allprobs); err != nil {
		return 0, err
	}
	return run(n, delta, gamma, allprobs, nil)
}

// Forward runs the same recursion as ForwardLogLikelihood and also returns
// the per-step log scale factors and the final filtered distribution.
func Forward(n, N int, delta []float64, gamma, allprobs mat.Matrix) (Trace, error) {
	if err := validate(n, N, delta, gamma, allprobs); err != nil {
		return Trace{}, err
	}
	if n == 0 {
		return Trace{LogScales: []float64{}}, nil
	}

	scales := make([]float64, n)
	r := newRecursion(delta, gamma)
	ll, err := r.runRows(n, allprobs, scales)
	if err != nil {
		return Trace{}, err
	}
	return Trace{
		LogLikelihood: ll,
		LogScales:     scales,
		Filtered:      append([]float64(nil), r.v...),
	}, nil
}

func run(n int, delta []float64, gamma, allprobs mat.Matrix, scales []float64) (float64, error) {
	if n == 0 {
		return 0, nil
	}
	return newRecursion(delta, gamma).runRows(n, allprobs, scales)
}

func validate(n, N int, delta []float64, gamma, allprobs mat.Matrix) error {
	if n < 0 {
		return &core.ShapeError{Op: op, What: "time steps", Got: n, Want: 0}
	}
	if N < 1 {
		return &core.ShapeError{Op: op, What: "states", Got: N, Want: 1}
	}
	if err := checkModel(N, delta, gamma); err != nil {
		return err
	}

	rows, cols := core.Dims(allprobs)
	if err := core.CheckDim(op, "emission rows", rows, n); err != nil {
		return err
	}
	if n > 0 {
		return core.CheckDim(op, "emission columns", cols, N)
	}
	return nil
}

func checkModel(N int, delta []float64, gamma mat.Matrix) error {
	if err := core.CheckDim(op, "initial distribution length", len(delta), N); err != nil {
		return err
	}
	rows, cols := core.Dims(gamma)
	if err := core.CheckDim(op, "transition rows", rows, N); err != nil {
		return err
	}
	return core.CheckDim(op, "transition columns", cols, N)
}

// recursion is the running state of the scaled forward algorithm.
type recursion struct {
	delta []float64
	gamma mat.Matrix
	v     []float64     // normalized forward vector after the last step
	vv    *mat.VecDense // view of v
	next  *mat.VecDense // unnormalized scratch for the current step
	ll    float64
	steps int
}

func newRecursion(delta []float64, gamma mat.Matrix) *recursion {
	n := len(delta)
	v := make([]float64, n)
	return &recursion{
		delta: delta,
		gamma: gamma,
		v:     v,
		vv:    mat.NewVecDense(n, v),
		next:  mat.NewVecDense(n, nil),
	}
}

func (r *recursion) runRows(n int, allprobs mat.Matrix, scales []float64) (float64, error) {
	buf := make([]float64, len(r.delta))
	for t := 0; t < n; t++ {
		ls, err := r.step(core.Row(allprobs, t, buf))
		if err != nil {
			return 0, err
		}
		if scales != nil {
			scales[t] = ls
		}
	}
	return r.ll, nil
}

// step advances the recursion by one observation and returns ln s.
// On error the state is left untouched.
func (r *recursion) step(probs []float64) (float64, error) {
	next := r.next.RawVector().Data
	if r.steps == 0 {
		vecmath.MulBlock(next, r.delta, probs)
	} else {
		r.next.MulVec(r.gamma.T(), r.vv)
		vecmath.MulBlockInPlace(next, probs)
	}

	s := floats.Sum(next)
	if !(s > 0) || math.IsInf(s, 1) {
		return 0, &core.NumericalError{
			Op:   op,
			Msg:  "forward recursion failed",
			Step: r.steps + 1,
			Err:  ErrZeroLikelihood,
		}
	}

	if inv := 1 / s; !math.IsInf(inv, 1) {
		vecmath.ScaleBlock(r.v, next, inv)
	} else {
		for i, x := range next {
			r.v[i] = x / s
		}
	}

	ls := math.Log(s)
	r.ll += ls
	r.steps++
	return ls, nil
}

func (r *recursion) reset() {
	r.ll = 0
	r.steps = 0
	for i := range r.v {
		r.v[i] = 0
	}
}
