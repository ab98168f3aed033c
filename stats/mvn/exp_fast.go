//go:build fastmath

package mvn

import (
	"github.com/meko-christian/algo-approx"
)

// mathExp computes e^x using fast approximation.
// Only the density output goes through it; log-densities stay exact.
func mathExp(x float64) float64 {
	return approx.FastExp(x)
}
