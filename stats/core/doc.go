// Package core holds the pieces shared by the density and forward-recursion
// packages: the error taxonomy, functional options, and small numeric
// helpers.
//
// Shape problems are reported as *ShapeError and numerical failures as
// *NumericalError. Both can be matched with errors.Is against ErrShape and
// ErrNumerical:
//
//	ll, err := hmm.ForwardLogLikelihood(n, N, delta, gamma, allprobs)
//	if errors.Is(err, core.ErrNumerical) {
//		// the data has zero probability under these parameters
//	}
package core
