// Package mvn evaluates multivariate normal densities row by row.
//
// The covariance matrix is factorized once with a Cholesky decomposition.
// Each observation row then costs one triangular solve:
//
//	log f(x) = -D/2·ln(2π) - Σ ln L_kk - ½‖z‖²,  where L z = x - μ
//
// No explicit inverse or determinant is ever formed.
//
// # Usage
//
// For a one-shot call use [Dmvnrm]:
//
//	dens, err := mvn.Dmvnrm(x, mean, sigma, false, 4)
//
// When the same parameters are evaluated repeatedly, keep an [Evaluator]:
//
//	e, err := mvn.NewEvaluator(mean, sigma, core.WithWorkers(8))
//	logd, err := e.Evaluate(x, true)
//
// # Parallelism
//
// Rows are split into contiguous partitions, one per worker. Workers share
// the factor read-only and write disjoint output slots, so results are
// identical for every worker count. A worker count of 1 evaluates on the
// calling goroutine.
//
// Building with -tags fastmath swaps the final exponential for an
// approximation from algo-approx.
package mvn
