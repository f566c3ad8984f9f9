package detector

import (
	"math"
	"math/rand"
)

const (
	defaultTreeCount  = 100
	defaultSampleSize = 256
)

// IsolationForest isolates points through random recursive splits; the
// fewer splits needed to isolate a point, the more anomalous it is.
type IsolationForest struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

func NewIsolationForest(contamination float64, seed int64) *IsolationForest {
	return &IsolationForest{
		Trees:         defaultTreeCount,
		SampleSize:    defaultSampleSize,
		Contamination: contamination,
		Seed:          seed,
	}
}

func (f *IsolationForest) Name() string { return "isolation" }

type isoNode struct {
	left, right *isoNode
	splitFeat   int
	splitVal    float64
	size        int
}

func (f *IsolationForest) FitPredict(X [][]float64) (*Result, error) {
	n := len(X)
	if n < 2 || !hasVariance(X) {
		return nil, ErrDegenerate
	}

	sampleSize := f.SampleSize
	if sampleSize > n {
		sampleSize = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))
	rng := rand.New(rand.NewSource(f.Seed))

	trees := make([]*isoNode, f.Trees)
	for t := range trees {
		sample := sampleRows(X, sampleSize, rng)
		trees[t] = buildIsoTree(sample, 0, heightLimit, rng)
	}

	// Anomaly score per Liu et al.: s = 2^(-E[h(x)] / c(m)).
	cm := avgPathLength(float64(sampleSize))
	raw := make([]float64, n)
	for i, row := range X {
		var total float64
		for _, tree := range trees {
			total += pathLength(tree, row, 0)
		}
		raw[i] = math.Pow(2, -(total/float64(f.Trees))/cm)
	}

	threshold := quantileThreshold(raw, f.Contamination)
	outlier := make([]bool, n)
	for i, s := range raw {
		outlier[i] = s > threshold
	}

	return &Result{Outlier: outlier, Scores: minMaxNormalize(raw)}, nil
}

func sampleRows(X [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size >= len(X) {
		return X
	}
	perm := rng.Perm(len(X))
	out := make([][]float64, size)
	for i := 0; i < size; i++ {
		out[i] = X[perm[i]]
	}
	return out
}

func buildIsoTree(rows [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if len(rows) <= 1 || depth >= heightLimit {
		return &isoNode{size: len(rows)}
	}

	d := numFeatures(rows)
	// Pick a feature that still varies in this node; give up after a few
	// attempts and close the node.
	for attempt := 0; attempt < d; attempt++ {
		feat := rng.Intn(d)
		lo, hi := rows[0][feat], rows[0][feat]
		for _, r := range rows {
			if r[feat] < lo {
				lo = r[feat]
			}
			if r[feat] > hi {
				hi = r[feat]
			}
		}
		if hi <= lo {
			continue
		}
		split := lo + rng.Float64()*(hi-lo)

		var left, right [][]float64
		for _, r := range rows {
			if r[feat] < split {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		return &isoNode{
			left:      buildIsoTree(left, depth+1, heightLimit, rng),
			right:     buildIsoTree(right, depth+1, heightLimit, rng),
			splitFeat: feat,
			splitVal:  split,
			size:      len(rows),
		}
	}
	return &isoNode{size: len(rows)}
}

func pathLength(node *isoNode, row []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(float64(node.size))
	}
	if row[node.splitFeat] < node.splitVal {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search, used to normalize isolation depths.
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	const eulerMascheroni = 0.5772156649
	h := math.Log(n-1) + eulerMascheroni
	return 2*h - 2*(n-1)/n
}

func hasVariance(X [][]float64) bool {
	for j := 0; j < numFeatures(X); j++ {
		first := X[0][j]
		for i := 1; i < len(X); i++ {
			if X[i][j] != first {
				return true
			}
		}
	}
	return false
}
