package cluster

import (
	"math"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Hierarchical implements agglomerative clustering with average linkage:
// start from singletons and repeatedly merge the two closest clusters until
// the minimum inter-cluster distance exceeds the spatial threshold.
type Hierarchical struct{}

// Name identifies the strategy.
func (h *Hierarchical) Name() model.ClusteringAlgorithm { return model.AlgorithmHierarchical }

// Cluster runs average-linkage agglomeration over the points.
func (h *Hierarchical) Cluster(points []model.ComponentIdentification, cfg model.ClusteringConfig) []Group {
	if len(points) == 0 {
		return nil
	}

	clusters := make([][]model.ComponentIdentification, len(points))
	for i, p := range points {
		clusters[i] = []model.ComponentIdentification{p}
	}

	for len(clusters) > 1 {
		bestA, bestB := -1, -1
		bestDist := math.MaxFloat64
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if d := averageLinkage(clusters[i], clusters[j]); d < bestDist {
					bestDist = d
					bestA, bestB = i, j
				}
			}
		}
		if bestDist > cfg.SpatialThreshold {
			break
		}
		clusters[bestA] = append(clusters[bestA], clusters[bestB]...)
		clusters = append(clusters[:bestB], clusters[bestB+1:]...)
	}

	groups := make([]Group, len(clusters))
	for i, c := range clusters {
		groups[i] = Group{Members: c}
	}
	return groups
}

// averageLinkage is the mean pairwise distance between two clusters.
func averageLinkage(a, b []model.ComponentIdentification) float64 {
	var sum float64
	for _, pa := range a {
		for _, pb := range b {
			sum += distance(pa, pb)
		}
	}
	return sum / float64(len(a)*len(b))
}
