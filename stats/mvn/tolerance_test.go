//go:build !fastmath

package mvn

// densityTol is the relative tolerance for exponentiated densities.
const densityTol = 1e-12
