package cluster

import (
	"math"
	"sort"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Adaptive is a meta-strategy: it inspects the point distribution and
// delegates to the best-suited concrete strategy. Dense, uniform data goes
// to k-means; sparse or outlier-laden data goes to DBSCAN; everything else
// goes to hierarchical. It holds no state and has no side effects.
type Adaptive struct{}

// Name identifies the strategy.
func (a *Adaptive) Name() model.ClusteringAlgorithm { return model.AlgorithmAdaptive }

// Cluster routes the points to a concrete strategy.
func (a *Adaptive) Cluster(points []model.ComponentIdentification, cfg model.ClusteringConfig) []Group {
	return a.pick(points, cfg).Cluster(points, cfg)
}

func (a *Adaptive) pick(points []model.ComponentIdentification, cfg model.ClusteringConfig) Strategy {
	if len(points) < 4 {
		return &Hierarchical{}
	}

	meanDist := meanPairwiseDistance(points)
	// Density relative to the spatial threshold: points packed tighter than
	// the threshold count as dense.
	dense := meanDist > 0 && meanDist < cfg.SpatialThreshold*2
	uniform, hasOutliers := a.distribution(points)

	switch {
	case dense && uniform && !hasOutliers:
		return &KMeans{}
	case !dense || hasOutliers:
		return &DBSCAN{}
	default:
		return &Hierarchical{}
	}
}

// distribution checks nearest-neighbor distances with an IQR fence:
// uniform means the spread of the middle half is small relative to the
// median, outliers are points beyond 1.5 IQR above Q3.
func (a *Adaptive) distribution(points []model.ComponentIdentification) (uniform, hasOutliers bool) {
	n := len(points)
	dists := make([]float64, 0, n)
	for i := range points {
		nearest := math.MaxFloat64
		for j := range points {
			if i == j {
				continue
			}
			if d := distance(points[i], points[j]); d < nearest {
				nearest = d
			}
		}
		if model.IsFinite(nearest) && nearest < math.MaxFloat64 {
			dists = append(dists, nearest)
		}
	}
	if len(dists) < 4 {
		return true, false
	}
	sort.Float64s(dists)

	q1 := dists[len(dists)/4]
	q3 := dists[(3*len(dists))/4]
	median := dists[len(dists)/2]
	iqr := q3 - q1

	if median > 0 {
		uniform = iqr/median < 1.0
	} else {
		uniform = true
	}
	fence := q3 + 1.5*iqr
	for _, d := range dists {
		if d > fence {
			hasOutliers = true
			break
		}
	}
	return uniform, hasOutliers
}
