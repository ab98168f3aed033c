package mvn

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/cwbudde/algo-hmm/internal/testutil"
	"github.com/cwbudde/algo-hmm/stats/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

const logTol = 1e-10

func TestDmvnrmUnivariateMatchesClosedForm(t *testing.T) {
	const mu, sd = 1.5, 0.7
	xs := []float64{-2, 0, 1.5, 2.2, 4}
	x := mat.NewDense(len(xs), 1, xs)
	sigma := mat.NewSymDense(1, []float64{sd * sd})

	got, err := Dmvnrm(x, []float64{mu}, sigma, false, 1)
	require.NoError(t, err)

	want := make([]float64, len(xs))
	ref := distuv.Normal{Mu: mu, Sigma: sd}
	for i, v := range xs {
		want[i] = testutil.NormalPDF(v, mu, sd)
		assert.InDelta(t, ref.Prob(v), want[i], 1e-15)
	}
	testutil.RequireSliceRelNearlyEqual(t, got, want, densityTol)

	logGot, err := Dmvnrm(x, []float64{mu}, sigma, true, 1)
	require.NoError(t, err)
	for i, v := range xs {
		assert.InDelta(t, ref.LogProb(v), logGot[i], logTol)
	}
}

func TestDensityIsExpOfLogDensity(t *testing.T) {
	const d = 4
	mean := []float64{0.5, -1, 2, 0}
	sigma := testutil.RandomSPD(11, d)
	x := testutil.GaussianRows(12, 50, mean, sigma)

	dens, err := Dmvnrm(x, mean, sigma, false, 1)
	require.NoError(t, err)
	logd, err := Dmvnrm(x, mean, sigma, true, 1)
	require.NoError(t, err)

	for i := range dens {
		assert.GreaterOrEqual(t, dens[i], 0.0)
		want := math.Exp(logd[i])
		assert.InDelta(t, want, dens[i], densityTol*math.Max(1, want), "row %d", i)
	}
}

func TestDmvnrmMatchesGonumNormal(t *testing.T) {
	const d = 3
	mean := []float64{1, 0, -2}
	sigma := testutil.RandomSPD(3, d)
	x := testutil.GaussianRows(4, 40, mean, sigma)

	ref, ok := distmv.NewNormal(mean, sigma, nil)
	require.True(t, ok)

	got, err := Dmvnrm(x, mean, sigma, true, 1)
	require.NoError(t, err)
	for i := range got {
		assert.InDelta(t, ref.LogProb(mat.Row(nil, i, x)), got[i], logTol, "row %d", i)
	}
}

func TestDmvnrmRowPermutation(t *testing.T) {
	const d, r = 3, 25
	mean := []float64{0, 1, 0}
	sigma := testutil.RandomSPD(21, d)
	x := testutil.GaussianRows(22, r, mean, sigma)

	perm := make([]int, r)
	for i := range perm {
		perm[i] = (i*7 + 3) % r
	}
	px := mat.NewDense(r, d, nil)
	for i, p := range perm {
		px.SetRow(i, mat.Row(nil, p, x))
	}

	base, err := Dmvnrm(x, mean, sigma, true, 4)
	require.NoError(t, err)
	permuted, err := Dmvnrm(px, mean, sigma, true, 4)
	require.NoError(t, err)

	for i, p := range perm {
		require.Equal(t, base[p], permuted[i], "row %d", i)
	}
}

func TestDmvnrmParallelMatchesSequential(t *testing.T) {
	const d, r = 5, 203
	mean := testutil.DeterministicNoise(31, 2, d)
	sigma := testutil.RandomSPD(32, d)
	x := testutil.GaussianRows(33, r, mean, sigma)

	for _, logd := range []bool{false, true} {
		seq, err := Dmvnrm(x, mean, sigma, logd, 1)
		require.NoError(t, err)
		for _, workers := range []int{2, 3, 8, 64, 500} {
			par, err := Dmvnrm(x, mean, sigma, logd, workers)
			require.NoError(t, err)
			require.Equal(t, seq, par, "workers=%d logd=%v", workers, logd)
		}
	}
}

func TestDmvnrmDefaultWorkers(t *testing.T) {
	mean := []float64{0, 0}
	sigma := testutil.RandomSPD(41, 2)
	x := testutil.GaussianRows(42, 30, mean, sigma)

	seq, err := Dmvnrm(x, mean, sigma, true, 1)
	require.NoError(t, err)
	def, err := Dmvnrm(x, mean, sigma, true, 0)
	require.NoError(t, err)
	require.Equal(t, seq, def)
}

func TestDmvnrmEmptyObservations(t *testing.T) {
	sigma := testutil.RandomSPD(1, 2)
	for _, x := range []mat.Matrix{nil, &mat.Dense{}} {
		got, err := Dmvnrm(x, []float64{0, 0}, sigma, false, 4)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	}
}

func TestDmvnrmNonRawMatrix(t *testing.T) {
	const d, r = 3, 12
	mean := []float64{1, 2, 3}
	sigma := testutil.RandomSPD(51, d)
	x := testutil.GaussianRows(52, r, mean, sigma)

	var xt mat.Dense
	xt.CloneFrom(x.T())

	want, err := Dmvnrm(x, mean, sigma, true, 1)
	require.NoError(t, err)
	got, err := Dmvnrm(xt.T(), mean, sigma, true, 3)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDmvnrmShapeErrors(t *testing.T) {
	spd2 := testutil.RandomSPD(1, 2)
	notPD := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	x2 := mat.NewDense(3, 2, nil)
	x3 := mat.NewDense(3, 3, nil)

	tests := []struct {
		name  string
		x     mat.Matrix
		mean  []float64
		sigma mat.Matrix
	}{
		{"empty mean", x2, nil, spd2},
		{"nil covariance", x2, []float64{0, 0}, nil},
		{"covariance too small", x2, []float64{0, 0, 0}, spd2},
		{"covariance not square", x2, []float64{0, 0}, mat.NewDense(2, 3, nil)},
		{"observation width", x3, []float64{0, 0}, spd2},
		{"shape checked before factorization", x3, []float64{0, 0}, notPD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dmvnrm(tt.x, tt.mean, tt.sigma, false, 2)
			require.Error(t, err)
			require.ErrorIs(t, err, core.ErrShape)
			require.NotErrorIs(t, err, core.ErrNumerical)

			var se *core.ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "mvn", se.Op)
		})
	}
}

func TestDmvnrmNotPositiveDefinite(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	mean := []float64{0, 0}

	tests := []struct {
		name  string
		sigma mat.Matrix
	}{
		{"negative eigenvalue", mat.NewSymDense(2, []float64{1, 2, 2, 1})},
		{"singular", mat.NewSymDense(2, []float64{1, 1, 1, 1})},
		{"negative variance", mat.NewSymDense(2, []float64{-1, 0, 0, 1})},
		{"asymmetric dense", mat.NewDense(2, 2, []float64{2, 0.5, 0.1, 2})},
		{"nan entry", mat.NewSymDense(2, []float64{1, 0, 0, math.NaN()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dmvnrm(x, mean, tt.sigma, true, 1)
			require.Nil(t, got)
			require.ErrorIs(t, err, core.ErrNumerical)
			require.ErrorIs(t, err, ErrNotPositiveDefinite)
		})
	}
}

func TestDmvnrmAcceptsSymmetricDense(t *testing.T) {
	sym := testutil.RandomSPD(61, 3)
	var dense mat.Dense
	dense.CloneFrom(sym)
	mean := []float64{0, 0, 0}
	x := testutil.GaussianRows(62, 10, mean, sym)

	want, err := Dmvnrm(x, mean, sym, true, 1)
	require.NoError(t, err)
	got, err := Dmvnrm(x, mean, &dense, true, 1)
	require.NoError(t, err)
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestDmvnrmIllConditionedDiagonal(t *testing.T) {
	tests := []struct {
		name string
		vars []float64
		x    []float64
	}{
		{"tiny variance", []float64{1, 1e-17}, []float64{0.5, 0}},
		{"mixed units", []float64{1e8, 1e-9}, []float64{3e3, 2e-5}},
		{"three scales", []float64{1e-12, 1, 1e6}, []float64{1e-6, -0.3, 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := len(tt.vars)
			sigma := mat.NewDiagDense(d, tt.vars)
			mean := make([]float64, d)

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			got, err := DmvnrmWith(mat.NewDense(1, d, tt.x), mean, sigma, true, core.WithLogger(logger))
			require.NoError(t, err)

			var want float64
			for k, v := range tt.vars {
				want += -0.5*math.Log(2*math.Pi*v) - 0.5*tt.x[k]*tt.x[k]/v
			}
			assert.InDelta(t, want, got[0], logTol*math.Max(1, math.Abs(want)))
			assert.Contains(t, buf.String(), "ill-conditioned")
		})
	}

	logd, err := Dmvnrm(mat.NewDense(1, 2, []float64{0.5, 0}), []float64{0, 0},
		mat.NewDiagDense(2, []float64{1, 1e-17}), true, 1)
	require.NoError(t, err)
	assert.InDelta(t, 17.609096224040044, logd[0], 1e-9)
}

func TestNotPositiveDefiniteMessage(t *testing.T) {
	_, err := NewEvaluator([]float64{0, 0}, mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	require.Error(t, err)
	assert.Equal(t, "mvn: cholesky factorization failed: covariance is not positive definite", err.Error())
}

func TestEvaluatorLogProb(t *testing.T) {
	mean := []float64{1, -1}
	sigma := testutil.RandomSPD(71, 2)
	x := testutil.GaussianRows(72, 8, mean, sigma)

	e, err := NewEvaluator(mean, sigma)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Dim())

	var chol mat.Cholesky
	require.True(t, chol.Factorize(sigma))
	assert.InDelta(t, chol.LogDet(), e.LogDet(), 1e-12)

	rows, err := e.Evaluate(x, true)
	require.NoError(t, err)
	for i := range rows {
		v, err := e.LogProb(mat.Row(nil, i, x))
		require.NoError(t, err)
		assert.Equal(t, rows[i], v)
	}

	_, err = e.LogProb([]float64{1, 2, 3})
	require.ErrorIs(t, err, core.ErrShape)
}

func TestEvaluatorDoesNotAliasMean(t *testing.T) {
	mean := []float64{0, 0}
	e, err := NewEvaluator(mean, testutil.RandomSPD(81, 2))
	require.NoError(t, err)
	before, err := e.LogProb([]float64{0.3, 0.4})
	require.NoError(t, err)

	mean[0] = 100
	after, err := e.LogProb([]float64{0.3, 0.4})
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestEvaluatorConcurrentUse(t *testing.T) {
	mean := []float64{0, 1, 2}
	sigma := testutil.RandomSPD(91, 3)
	x := testutil.GaussianRows(92, 64, mean, sigma)

	e, err := NewEvaluator(mean, sigma, core.WithWorkers(3))
	require.NoError(t, err)
	want, err := e.Evaluate(x, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Go(func() {
			got, err := e.Evaluate(x, false)
			if err != nil {
				errs <- err
				return
			}
			for i := range got {
				if got[i] != want[i] {
					errs <- errors.New("concurrent result differs")
					return
				}
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestEvaluatorLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	e, err := NewEvaluator([]float64{0}, mat.NewSymDense(1, []float64{1}), core.WithLogger(logger), core.WithWorkers(2))
	require.NoError(t, err)
	_, err = e.Evaluate(mat.NewDense(4, 1, []float64{0, 1, 2, 3}), true)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "mvn: factorized covariance"), out)
	assert.True(t, strings.Contains(out, "workers=2"), out)
}
