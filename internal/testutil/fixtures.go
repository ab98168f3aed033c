package testutil

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DeterministicNoise generates uniform noise in [-amplitude, amplitude)
// with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// RandomSPD returns a well-conditioned d×d symmetric positive-definite
// matrix A·Aᵀ + d·I built from seeded noise.
func RandomSPD(seed int64, d int) *mat.SymDense {
	a := mat.NewDense(d, d, DeterministicNoise(seed, 1, d*d))
	var aat mat.Dense
	aat.Mul(a, a.T())

	out := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := 0.5 * (aat.At(i, j) + aat.At(j, i))
			if i == j {
				v += float64(d)
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

// RandomDistribution returns a strictly positive probability vector of
// length n.
func RandomDistribution(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	var sum float64
	for i := range out {
		out[i] = 0.05 + rng.Float64()
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// RandomStochastic returns an n×n row-stochastic matrix with strictly
// positive entries.
func RandomStochastic(seed int64, n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, RandomDistribution(seed+int64(i)*7919, n))
	}
	return out
}

// RandomProbs returns an n×cols matrix with entries in (0, 1], the shape of
// a per-state emission probability matrix.
func RandomProbs(seed int64, n, cols int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*cols)
	for i := range data {
		data[i] = 1 - rng.Float64()
	}
	return mat.NewDense(n, cols, data)
}

// GaussianRows draws r rows from N(mean, sigma) using the Cholesky factor
// of sigma. sigma must be positive definite.
func GaussianRows(seed int64, r int, mean []float64, sigma mat.Symmetric) *mat.Dense {
	d := len(mean)
	var chol mat.Cholesky
	if !chol.Factorize(sigma) {
		panic("testutil: sigma is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	rng := rand.New(rand.NewSource(seed))
	out := mat.NewDense(r, d, nil)
	z := mat.NewVecDense(d, nil)
	var y mat.VecDense
	for i := 0; i < r; i++ {
		for k := 0; k < d; k++ {
			z.SetVec(k, rng.NormFloat64())
		}
		y.MulVec(&l, z)
		for k := 0; k < d; k++ {
			out.Set(i, k, mean[k]+y.AtVec(k))
		}
	}
	return out
}

// NormalPDF is the scalar normal density, used as a closed-form reference.
func NormalPDF(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5*z*z) / (sigma * math.Sqrt(2*math.Pi))
}
