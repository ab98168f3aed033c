package mvn

import (
	"errors"
	"math"
	"sync"

	"github.com/cwbudde/algo-hmm/stats/core"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const op = "mvn"

// symmetryTol is the relative tolerance for |Σij - Σji| when the covariance
// is not a mat.Symmetric.
const symmetryTol = 1e-12

var ln2Pi = math.Log(2 * math.Pi)

// ErrNotPositiveDefinite is the cause of the *core.NumericalError returned
// for a covariance matrix that is asymmetric or cannot be Cholesky
// factorized.
var ErrNotPositiveDefinite = errors.New("covariance is not positive definite")

// Evaluator computes normal densities for a fixed mean and covariance.
// The Cholesky factor is computed once in NewEvaluator. An Evaluator is
// immutable and safe for concurrent use.
type Evaluator struct {
	mean   []float64
	l      blas64.Triangular // lower Cholesky factor of Σ
	logDet float64
	norm   float64 // -½(D·ln 2π + ln det Σ)
	cfg    core.Config
}

// NewEvaluator validates mean and sigma and factorizes sigma.
//
// sigma must be len(mean)×len(mean). A sigma implementing mat.Symmetric is
// used as is; any other matrix is checked for symmetry first.
func NewEvaluator(mean []float64, sigma mat.Matrix, opts ...core.Option) (*Evaluator, error) {
	d := len(mean)
	if err := checkParams(d, sigma); err != nil {
		return nil, err
	}
	return factorize(mean, sigma, core.ApplyOptions(opts...))
}

func checkParams(d int, sigma mat.Matrix) error {
	if d == 0 {
		return &core.ShapeError{Op: op, What: "mean length", Got: 0, Want: 1}
	}
	r, c := core.Dims(sigma)
	if err := core.CheckDim(op, "covariance rows", r, d); err != nil {
		return err
	}
	return core.CheckDim(op, "covariance columns", c, d)
}

func factorize(mean []float64, sigma mat.Matrix, cfg core.Config) (*Evaluator, error) {
	d := len(mean)
	sym, ok := asSymmetric(sigma, d)
	if !ok {
		return nil, &core.NumericalError{Op: op, Msg: "covariance is not symmetric", Err: ErrNotPositiveDefinite}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, &core.NumericalError{Op: op, Msg: "cholesky factorization failed", Err: ErrNotPositiveDefinite}
	}
	logDet := chol.LogDet()
	if !core.IsFinite(logDet) {
		return nil, &core.NumericalError{Op: op, Msg: "log-determinant is not finite", Err: ErrNotPositiveDefinite}
	}
	cond := chol.Cond()
	if cond > mat.ConditionTolerance {
		cfg.Logger.Debug("mvn: covariance is ill-conditioned", "dim", d, "cond", cond)
	}

	var l mat.TriDense
	chol.LTo(&l)

	cfg.Logger.Debug("mvn: factorized covariance", "dim", d, "logdet", logDet, "cond", cond)

	return &Evaluator{
		mean:   append([]float64(nil), mean...),
		l:      l.RawTriangular(),
		logDet: logDet,
		norm:   -0.5 * (float64(d)*ln2Pi + logDet),
		cfg:    cfg,
	}, nil
}

// asSymmetric returns sigma as a mat.Symmetric, copying it when needed.
// It reports false if a non-symmetric input is asymmetric beyond
// symmetryTol.
func asSymmetric(sigma mat.Matrix, d int) (mat.Symmetric, bool) {
	if s, ok := sigma.(mat.Symmetric); ok {
		return s, true
	}
	out := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			upper, lower := sigma.At(i, j), sigma.At(j, i)
			if !core.NearlyEqual(upper, lower, symmetryTol) {
				return nil, false
			}
			out.SetSym(i, j, 0.5*(upper+lower))
		}
	}
	return out, true
}

// Dim returns the dimension D of the distribution.
func (e *Evaluator) Dim() int { return len(e.mean) }

// LogDet returns ln det Σ.
func (e *Evaluator) LogDet() float64 { return e.logDet }

// LogProb returns the log-density of a single observation.
func (e *Evaluator) LogProb(x []float64) (float64, error) {
	if err := core.CheckDim(op, "observation length", len(x), e.Dim()); err != nil {
		return 0, err
	}
	buf := getScratch(e.Dim())
	v := e.logProb(x, buf.data)
	putScratch(buf)
	return v, nil
}

// logProb evaluates one row using z as scratch of length D.
func (e *Evaluator) logProb(x, z []float64) float64 {
	for k := range z {
		z[k] = x[k] - e.mean[k]
	}
	blas64.Trsv(blas.NoTrans, e.l, blas64.Vector{N: len(z), Inc: 1, Data: z})
	return e.norm - 0.5*floats.Dot(z, z)
}

// Evaluate returns the density of every row of x, or the log-density when
// logd is true. The result is aligned with the rows of x. A nil or empty x
// yields an empty slice.
func (e *Evaluator) Evaluate(x mat.Matrix, logd bool) ([]float64, error) {
	r, c := core.Dims(x)
	if r == 0 {
		return []float64{}, nil
	}
	if err := core.CheckDim(op, "observation columns", c, e.Dim()); err != nil {
		return nil, err
	}

	out := make([]float64, r)
	parts := core.Partition(r, e.cfg.Workers)
	e.cfg.Logger.Debug("mvn: evaluating rows", "rows", r, "dim", e.Dim(), "workers", len(parts))

	if len(parts) == 1 {
		e.evalRange(x, out, 0, r, logd)
		return out, nil
	}

	var wg sync.WaitGroup
	for _, p := range parts {
		wg.Go(func() {
			e.evalRange(x, out, p[0], p[1], logd)
		})
	}
	wg.Wait()

	return out, nil
}

// evalRange fills out[lo:hi] from rows lo..hi-1 of x.
func (e *Evaluator) evalRange(x mat.Matrix, out []float64, lo, hi int, logd bool) {
	d := e.Dim()
	buf := getScratch(2 * d)
	defer putScratch(buf)
	z, row := buf.data[:d], buf.data[d:]

	for i := lo; i < hi; i++ {
		v := e.logProb(core.Row(x, i, row), z)
		if !logd {
			v = mathExp(v)
		}
		out[i] = v
	}
}

// Dmvnrm evaluates the N(mean, sigma) density for every row of x.
//
// If logd is true the natural log-density is returned instead. cores is
// the worker count; 1 evaluates sequentially and values below 1 use all
// available cores. All shape checks happen before sigma is factorized.
func Dmvnrm(x mat.Matrix, mean []float64, sigma mat.Matrix, logd bool, cores int) ([]float64, error) {
	return DmvnrmWith(x, mean, sigma, logd, core.WithWorkers(cores))
}

// DmvnrmWith is Dmvnrm with explicit options.
func DmvnrmWith(x mat.Matrix, mean []float64, sigma mat.Matrix, logd bool, opts ...core.Option) ([]float64, error) {
	d := len(mean)
	if err := checkParams(d, sigma); err != nil {
		return nil, err
	}
	if r, c := core.Dims(x); r > 0 {
		if err := core.CheckDim(op, "observation columns", c, d); err != nil {
			return nil, err
		}
	}

	e, err := factorize(mean, sigma, core.ApplyOptions(opts...))
	if err != nil {
		return nil, err
	}
	return e.Evaluate(x, logd)
}
