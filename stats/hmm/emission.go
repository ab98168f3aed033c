package hmm

import (
	"fmt"

	"github.com/cwbudde/algo-hmm/stats/core"
	"github.com/cwbudde/algo-hmm/stats/mvn"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// EmissionMatrix evaluates the Gaussian emission density of every state on
// every row of x. Column k of the n×N result holds the N(means[k],
// sigmas[k]) density of each observation.
//
// States are evaluated concurrently, at most Config.Workers at a time, and
// the remaining worker budget is spread over the rows of each state. A nil
// or empty x yields an empty matrix.
func EmissionMatrix(x mat.Matrix, means [][]float64, sigmas []mat.Matrix, opts ...core.Option) (*mat.Dense, error) {
	cfg := core.ApplyOptions(opts...)

	N := len(means)
	if N < 1 {
		return nil, &core.ShapeError{Op: op, What: "states", Got: N, Want: 1}
	}
	if err := core.CheckDim(op, "covariance count", len(sigmas), N); err != nil {
		return nil, err
	}

	n, d := core.Dims(x)
	for k := range N {
		if n > 0 {
			if err := core.CheckDim(op, fmt.Sprintf("state %d mean length", k), len(means[k]), d); err != nil {
				return nil, err
			}
		}
		r, c := core.Dims(sigmas[k])
		if err := core.CheckDim(op, fmt.Sprintf("state %d covariance rows", k), r, len(means[k])); err != nil {
			return nil, err
		}
		if err := core.CheckDim(op, fmt.Sprintf("state %d covariance columns", k), c, len(means[k])); err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}

	stateWorkers := min(N, cfg.Workers)
	rowWorkers := max(1, cfg.Workers/stateWorkers)
	cfg.Logger.Debug("hmm: building emission matrix", "rows", n, "states", N,
		"state_workers", stateWorkers, "row_workers", rowWorkers)

	out := mat.NewDense(n, N, nil)
	var g errgroup.Group
	g.SetLimit(stateWorkers)
	for k := range N {
		g.Go(func() error {
			e, err := mvn.NewEvaluator(means[k], sigmas[k],
				core.WithWorkers(rowWorkers), core.WithLogger(cfg.Logger))
			if err != nil {
				return fmt.Errorf("hmm: state %d: %w", k, err)
			}
			dens, err := e.Evaluate(x, false)
			if err != nil {
				return fmt.Errorf("hmm: state %d: %w", k, err)
			}
			out.SetCol(k, dens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
