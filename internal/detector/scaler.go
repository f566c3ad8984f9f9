package detector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column on its mean and divides by its
// standard deviation. Constant columns pass through centered only.
type StandardScaler struct {
	mean []float64
	std  []float64
}

func (s *StandardScaler) FitTransform(X [][]float64) [][]float64 {
	d := numFeatures(X)
	s.mean = make([]float64, d)
	s.std = make([]float64, d)

	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		s.mean[j], s.std[j] = stat.MeanStdDev(col, nil)
		if s.std[j] < 1e-12 || math.IsNaN(s.std[j]) {
			s.std[j] = 1
		}
	}
	return s.apply(X)
}

func (s *StandardScaler) apply(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(X[i]))
		for j := range row {
			row[j] = (X[i][j] - s.mean[j]) / s.std[j]
		}
		out[i] = row
	}
	return out
}

// RobustScaler centers each column on its median and divides by its
// interquartile range, so the outliers the detectors are hunting do not
// distort the scaling itself.
type RobustScaler struct {
	median []float64
	iqr    []float64
}

func (s *RobustScaler) FitTransform(X [][]float64) [][]float64 {
	d := numFeatures(X)
	s.median = make([]float64, d)
	s.iqr = make([]float64, d)

	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		sorted := make([]float64, len(col))
		copy(sorted, col)
		sort.Float64s(sorted)

		s.median[j] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		s.iqr[j] = q3 - q1
		if s.iqr[j] < 1e-12 {
			s.iqr[j] = 1
		}
	}

	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(X[i]))
		for j := range row {
			row[j] = (X[i][j] - s.median[j]) / s.iqr[j]
		}
		out[i] = row
	}
	return out
}
