package diag

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-hmm/stats/core"
	"github.com/cwbudde/algo-hmm/stats/hmm"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const op = "diag"

// ErrEmptyInput is returned for an empty series.
var ErrEmptyInput = errors.New("diag: empty input")

// Autocorrelation returns the normalized sample autocorrelation of x for
// lags 0..maxLag. The mean is removed first and lag 0 is 1. A constant
// series yields 1 followed by zeros.
//
// The correlation is computed through an FFT zero padded to at least
// 2·len(x), so there is no circular wrap.
func Autocorrelation(x []float64, maxLag int) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	if maxLag < 0 || maxLag >= n {
		return nil, &core.ShapeError{Op: op, What: "max lag", Got: maxLag, Want: n - 1}
	}

	out := make([]float64, maxLag+1)
	out[0] = 1
	if isConstant(x) {
		return out, nil
	}
	mean := floats.Sum(x) / float64(n)

	size := nextPowerOf2(2 * n)
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("diag: failed to create FFT plan: %w", err)
	}

	padded := make([]complex128, size)
	for i, v := range x {
		padded[i] = complex(v-mean, 0)
	}
	freq := make([]complex128, size)
	if err := plan.Forward(freq, padded); err != nil {
		return nil, fmt.Errorf("diag: forward FFT failed: %w", err)
	}

	re := make([]float64, size)
	im := make([]float64, size)
	for i, c := range freq {
		re[i] = real(c)
		im[i] = imag(c)
	}
	power := make([]float64, size)
	vecmath.Power(power, re, im)

	for i, p := range power {
		freq[i] = complex(p, 0)
	}
	if err := plan.Inverse(padded, freq); err != nil {
		return nil, fmt.Errorf("diag: inverse FFT failed: %w", err)
	}

	r0 := real(padded[0])
	if r0 <= 0 {
		return out, nil
	}
	for k := 1; k <= maxLag; k++ {
		out[k] = real(padded[k]) / r0
	}
	return out, nil
}

// LogScaleACF is Autocorrelation applied to tr.LogScales.
func LogScaleACF(tr hmm.Trace, maxLag int) ([]float64, error) {
	return Autocorrelation(tr.LogScales, maxLag)
}

// LjungBox returns the Ljung-Box portmanteau statistic
//
//	Q = n(n+2) Σ_{k=1..lags} r_k² / (n-k)
//
// for x and its p-value under a χ² distribution with lags degrees of
// freedom. lags must be in [1, len(x)).
func LjungBox(x []float64, lags int) (q, pvalue float64, err error) {
	if len(x) > 0 && lags < 1 {
		return 0, 0, &core.ShapeError{Op: op, What: "lags", Got: lags, Want: 1}
	}
	acf, err := Autocorrelation(x, lags)
	if err != nil {
		return 0, 0, err
	}

	n := float64(len(x))
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k] / (n - float64(k))
	}
	q *= n * (n + 2)

	chi := distuv.ChiSquared{K: float64(lags)}
	return q, chi.Survival(q), nil
}

// isConstant reports whether every element of x equals x[0].
func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// nextPowerOf2 returns the smallest power of two >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
