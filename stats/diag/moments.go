package diag

import (
	"math"

	"github.com/cwbudde/algo-hmm/stats/hmm"
)

// ScaleSummary describes a sequence of per-step log scale factors.
type ScaleSummary struct {
	Steps int

	Mean     float64
	Variance float64 // population variance
	Skewness float64
	Kurtosis float64 // excess kurtosis

	// Min is the least likely step given its past, at index MinStep.
	Min     float64
	MinStep int
	Max     float64
	MaxStep int
}

// Summarize returns the moments and extremes of x. An empty x yields a
// zero ScaleSummary with MinStep and MaxStep set to -1.
func Summarize(x []float64) ScaleSummary {
	var s ScaleStats
	s.Update(x...)
	return s.Result()
}

// SummarizeTrace is Summarize applied to tr.LogScales.
func SummarizeTrace(tr hmm.Trace) ScaleSummary {
	return Summarize(tr.LogScales)
}

// ScaleStats accumulates a ScaleSummary incrementally, typically one
// Filter step at a time. Update processes values in order, so the result
// is bit for bit identical to Summarize over the concatenated input.
type ScaleStats struct {
	n      int
	mean   float64
	m2     float64
	m3     float64
	m4     float64
	minVal float64
	minPos int
	maxVal float64
	maxPos int
}

// Update adds values to the running statistics.
func (s *ScaleStats) Update(values ...float64) {
	for _, x := range values {
		s.n++
		ni := float64(s.n)

		// Welford update.
		delta := x - s.mean
		deltaN := delta / ni
		deltaN2 := deltaN * deltaN
		term1 := delta * deltaN * float64(s.n-1)

		s.m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*s.m2 - 4*deltaN*s.m3
		s.m3 += term1*deltaN*(float64(s.n-1)-1) - 3*deltaN*s.m2
		s.m2 += term1
		s.mean += deltaN

		if s.n == 1 || x < s.minVal {
			s.minVal, s.minPos = x, s.n-1
		}
		if s.n == 1 || x > s.maxVal {
			s.maxVal, s.maxPos = x, s.n-1
		}
	}
}

// Result computes the summary of everything seen so far.
func (s *ScaleStats) Result() ScaleSummary {
	if s.n == 0 {
		return ScaleSummary{MinStep: -1, MaxStep: -1}
	}

	nf := float64(s.n)
	variance := s.m2 / nf

	var skewness, kurtosis float64
	if variance > 0 {
		skewness = (s.m3 / nf) / (variance * math.Sqrt(variance))
		kurtosis = (s.m4/nf)/(variance*variance) - 3
	}

	return ScaleSummary{
		Steps:    s.n,
		Mean:     s.mean,
		Variance: variance,
		Skewness: skewness,
		Kurtosis: kurtosis,
		Min:      s.minVal,
		MinStep:  s.minPos,
		Max:      s.maxVal,
		MaxStep:  s.maxPos,
	}
}

// Reset clears all accumulated data.
func (s *ScaleStats) Reset() {
	*s = ScaleStats{}
}
