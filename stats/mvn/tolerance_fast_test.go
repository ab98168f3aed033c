//go:build fastmath

package mvn

// densityTol is the relative tolerance for exponentiated densities under
// the approximate exponential.
const densityTol = 1e-3
