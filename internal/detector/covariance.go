package detector

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// shrinkage pulls the covariance estimate toward the identity so it
// stays invertible with correlated or near-constant features.
const shrinkage = 0.05

// RobustCovariance models the normal feature distribution with a
// median-centered, shrinkage-regularized covariance and flags points
// whose Mahalanobis distance clears a chi-square quantile at the
// contamination rate.
type RobustCovariance struct {
	Contamination float64
}

func NewRobustCovariance(contamination float64) *RobustCovariance {
	return &RobustCovariance{Contamination: contamination}
}

func (r *RobustCovariance) Name() string { return "covariance" }

func (r *RobustCovariance) FitPredict(X [][]float64) (*Result, error) {
	n := len(X)
	d := numFeatures(X)
	if n <= d || !hasVariance(X) {
		return nil, ErrDegenerate
	}

	center := columnMedians(X)

	// Covariance of the centered data.
	centered := mat.NewDense(n, d, nil)
	for i, row := range X {
		for j, v := range row {
			centered.Set(i, j, v-center[j])
		}
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, centered, nil)

	// Shrink toward a scaled identity.
	var trace float64
	for j := 0; j < d; j++ {
		trace += cov.At(j, j)
	}
	target := trace / float64(d)
	if target <= 0 {
		return nil, ErrDegenerate
	}
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := (1 - shrinkage) * cov.At(i, j)
			if i == j {
				v += shrinkage * target
			}
			cov.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		return nil, ErrDegenerate
	}

	dist2 := make([]float64, n)
	diff := mat.NewVecDense(d, nil)
	for i, row := range X {
		for j, v := range row {
			diff.SetVec(j, v-center[j])
		}
		md := stat.Mahalanobis(diff, mat.NewVecDense(d, nil), &chol)
		dist2[i] = md * md
	}

	chi := distuv.ChiSquared{K: float64(d)}
	threshold := chi.Quantile(1 - r.Contamination)

	outlier := make([]bool, n)
	for i, v := range dist2 {
		outlier[i] = v > threshold
	}

	return &Result{Outlier: outlier, Scores: rankNormalize(dist2)}, nil
}

func columnMedians(X [][]float64) []float64 {
	d := numFeatures(X)
	medians := make([]float64, d)
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		medians[j] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return medians
}
