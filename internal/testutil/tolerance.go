package testutil

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// RequireSliceNearlyEqual fails t unless got and want have the same length
// and every pair differs by at most eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	requireSlice(t, got, want, func(float64) float64 { return eps })
}

// RequireSliceRelNearlyEqual is RequireSliceNearlyEqual with eps scaled by
// max(1, |want[i]|), for log-densities and log-likelihoods of large
// magnitude.
func RequireSliceRelNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	requireSlice(t, got, want, func(w float64) float64 { return eps * math.Max(1, math.Abs(w)) })
}

func requireSlice(t *testing.T, got, want []float64, bound func(want float64) float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		b := bound(want[i])
		if diff := math.Abs(got[i] - want[i]); !(diff <= b) {
			t.Fatalf("index %d: got %v, want %v (diff %v > %v)", i, got[i], want[i], diff, b)
		}
	}
}

// RequireFinite fails t on the first NaN or Inf in data.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the L∞ distance between a and b.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, math.Inf(1)), nil
}
