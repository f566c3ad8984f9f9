// Package detector provides the unsupervised anomaly detectors used by
// the ensemble. Each detector fits and predicts once per batch and holds
// no state between runs.
package detector

import (
	"errors"
	"math"
	"sort"
)

// ErrDegenerate marks a batch a detector cannot model (constant features,
// singular covariance, too few rows). The caller treats the detector as
// abstaining rather than failing the run.
var ErrDegenerate = errors.New("detector: degenerate input")

// Result holds one detector's verdicts and scores for a batch. Scores
// are normalized to [0,1]; higher means more anomalous.
type Result struct {
	Outlier []bool
	Scores  []float64
}

// Detector is the common contract for the ensemble members. FitPredict
// trains on the batch and classifies the same batch; raw score scales
// differ structurally per algorithm, so each implementation normalizes
// its own output to [0,1].
type Detector interface {
	Name() string
	FitPredict(X [][]float64) (*Result, error)
}

// minMaxNormalize rescales scores into [0,1]. A constant slice maps to
// all zeros.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	if hi == lo {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// rankNormalize maps scores to their fractional rank in [0,1], which is
// robust to heavy-tailed raw score distributions.
func rankNormalize(scores []float64) []float64 {
	n := len(scores)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{0}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	out := make([]float64, n)
	for rank, i := range idx {
		out[i] = float64(rank) / float64(n-1)
	}
	return out
}

// quantileThreshold returns the decision cut for a contamination rate:
// scores strictly above it are outliers. The expected outlier count is
// rounded but floored at one so small batches still produce a decision
// boundary.
func quantileThreshold(scores []float64, contamination float64) float64 {
	n := len(scores)
	if n == 0 {
		return 0
	}
	k := int(math.Round(float64(n) * contamination))
	if k < 1 {
		k = 1
	}
	if k >= n {
		k = n - 1
	}
	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)
	return sorted[n-1-k]
}

// numFeatures returns the column count of a non-empty matrix.
func numFeatures(X [][]float64) int {
	if len(X) == 0 {
		return 0
	}
	return len(X[0])
}
