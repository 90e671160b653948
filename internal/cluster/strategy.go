// Package cluster groups component identifications from multiple providers
// into consensus components. Clustering is spatial first, refined
// semantically, and never fails: malformed input degrades the result instead
// of erroring.
package cluster

import (
	"math"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Group is one spatial cluster produced by a strategy. Noise marks the
// DBSCAN leftover bucket of unclustered points.
type Group struct {
	Members []model.ComponentIdentification
	Noise   bool

	// halveConfidence marks a small cluster kept under the
	// reduce_confidence outlier policy.
	halveConfidence bool
}

// Strategy is one interchangeable spatial clustering algorithm. Every
// implementation is stateless: Cluster is a pure function of its inputs.
type Strategy interface {
	Name() model.ClusteringAlgorithm
	Cluster(points []model.ComponentIdentification, cfg model.ClusteringConfig) []Group
}

// StrategyFor returns the strategy for the configured algorithm, defaulting
// to adaptive for unknown names.
func StrategyFor(algorithm model.ClusteringAlgorithm) Strategy {
	switch algorithm {
	case model.AlgorithmDBSCAN:
		return &DBSCAN{}
	case model.AlgorithmKMeans:
		return &KMeans{}
	case model.AlgorithmHierarchical:
		return &Hierarchical{}
	default:
		return &Adaptive{}
	}
}

// distance is Euclidean over x,y, extended with the width/height delta when
// both points report a size. Presence is what matters: an explicit zero size
// still counts as reported.
func distance(a, b model.ComponentIdentification) float64 {
	dx := a.Location.X - b.Location.X
	dy := a.Location.Y - b.Location.Y
	sum := dx*dx + dy*dy
	if a.Location.HasSize() && b.Location.HasSize() {
		dw := *a.Location.Width - *b.Location.Width
		dh := *a.Location.Height - *b.Location.Height
		sum += dw*dw + dh*dh
	}
	d := math.Sqrt(sum)
	if !model.IsFinite(d) {
		return math.MaxFloat64
	}
	return d
}

// meanPairwiseDistance returns the average distance over all point pairs,
// zero for fewer than two points.
func meanPairwiseDistance(points []model.ComponentIdentification) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += distance(points[i], points[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}
