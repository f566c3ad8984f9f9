package detector

import (
	"math"
	"sort"
)

// DBSCAN groups points by local density; points that land in no
// sufficiently dense cluster are noise and get flagged as outliers. The
// continuity score is the distance to each point's minPts-th nearest
// neighbor, rank-normalized, since raw k-distances are unbounded.
type DBSCAN struct {
	// Eps of 0 means derive from the feature count: density radii grow
	// with dimensionality, so eps scales with sqrt(d).
	Eps    float64
	MinPts int
}

func NewDBSCAN(eps float64, minPts int) *DBSCAN {
	if minPts < 2 {
		minPts = 5
	}
	return &DBSCAN{Eps: eps, MinPts: minPts}
}

func (d *DBSCAN) Name() string { return "clustering" }

func (d *DBSCAN) FitPredict(X [][]float64) (*Result, error) {
	n := len(X)
	if n < d.MinPts || !hasVariance(X) {
		return nil, ErrDegenerate
	}

	eps := d.Eps
	if eps <= 0 {
		eps = 0.75 * math.Sqrt(float64(numFeatures(X)))
	}

	dist := pairwiseDistances(X)

	// Core points have at least MinPts neighbors (self included) within eps.
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if dist[i][j] <= eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	const (
		unvisited = 0
		noise     = -1
	)
	labels := make([]int, n)
	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbors[i]) < d.MinPts {
			labels[i] = noise
			continue
		}
		cluster++
		labels[i] = cluster
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] == noise {
				labels[p] = cluster // border point reached from a core
			}
			if labels[p] != unvisited {
				continue
			}
			labels[p] = cluster
			if len(neighbors[p]) >= d.MinPts {
				queue = append(queue, neighbors[p]...)
			}
		}
	}

	outlier := make([]bool, n)
	for i, l := range labels {
		outlier[i] = l == noise
	}

	k := d.MinPts
	if k >= n {
		k = n - 1
	}
	kdist := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		copy(row, dist[i])
		sort.Float64s(row)
		kdist[i] = row[k]
	}

	return &Result{Outlier: outlier, Scores: rankNormalize(kdist)}, nil
}

func pairwiseDistances(X [][]float64) [][]float64 {
	n := len(X)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(X[i], X[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
