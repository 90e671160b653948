package cluster

import (
	"math"
	"math/rand"

	"github.com/Jmjcoke/quorum/internal/model"
)

// KMeans implements k-means clustering with k-means++ style seeding.
// k = min(maxClusters, ceil(n/3)); iteration stops when centroid movement
// drops below 0.1 or after 100 rounds.
type KMeans struct {
	// Seed fixes the random source; zero means a fixed default so results
	// are reproducible across runs.
	Seed int64
}

const (
	kmeansMaxIterations = 100
	kmeansConvergence   = 0.1
)

// Name identifies the strategy.
func (k *KMeans) Name() model.ClusteringAlgorithm { return model.AlgorithmKMeans }

// Cluster runs k-means over the points.
func (k *KMeans) Cluster(points []model.ComponentIdentification, cfg model.ClusteringConfig) []Group {
	n := len(points)
	if n == 0 {
		return nil
	}

	kk := (n + 2) / 3 // ceil(n/3)
	if cfg.MaxClusters > 0 && kk > cfg.MaxClusters {
		kk = cfg.MaxClusters
	}
	if kk < 1 {
		kk = 1
	}
	if kk >= n {
		groups := make([]Group, n)
		for i, p := range points {
			groups[i] = Group{Members: []model.ComponentIdentification{p}}
		}
		return groups
	}

	rng := rand.New(rand.NewSource(k.Seed + 1))
	centroids := k.seedCentroids(points, kk, rng)

	assignment := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		// Assign each point to the nearest centroid.
		for i, p := range points {
			best := 0
			bestDist := math.MaxFloat64
			for c, cent := range centroids {
				if d := pointDist(p.Location.X, p.Location.Y, cent[0], cent[1]); d < bestDist {
					bestDist = d
					best = c
				}
			}
			assignment[i] = best
		}

		// Recompute centroids; an emptied cluster reseeds from a random point.
		moved := 0.0
		counts := make([]int, kk)
		sums := make([][2]float64, kk)
		for i, p := range points {
			c := assignment[i]
			counts[c]++
			sums[c][0] += p.Location.X
			sums[c][1] += p.Location.Y
		}
		for c := 0; c < kk; c++ {
			var next [2]float64
			if counts[c] == 0 {
				p := points[rng.Intn(n)]
				next = [2]float64{p.Location.X, p.Location.Y}
			} else {
				next = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
			moved += pointDist(centroids[c][0], centroids[c][1], next[0], next[1])
			centroids[c] = next
		}
		if moved < kmeansConvergence {
			break
		}
	}

	buckets := make([][]model.ComponentIdentification, kk)
	for i, p := range points {
		buckets[assignment[i]] = append(buckets[assignment[i]], p)
	}
	var groups []Group
	for _, b := range buckets {
		if len(b) > 0 {
			groups = append(groups, Group{Members: b})
		}
	}
	return groups
}

// seedCentroids picks the first centroid at random and each subsequent one
// as the point with maximum minimum-distance to the centroids chosen so far.
func (k *KMeans) seedCentroids(points []model.ComponentIdentification, kk int, rng *rand.Rand) [][2]float64 {
	centroids := make([][2]float64, 0, kk)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, [2]float64{first.Location.X, first.Location.Y})

	for len(centroids) < kk {
		bestIdx := 0
		bestDist := -1.0
		for i, p := range points {
			minDist := math.MaxFloat64
			for _, c := range centroids {
				if d := pointDist(p.Location.X, p.Location.Y, c[0], c[1]); d < minDist {
					minDist = d
				}
			}
			if minDist > bestDist {
				bestDist = minDist
				bestIdx = i
			}
		}
		p := points[bestIdx]
		centroids = append(centroids, [2]float64{p.Location.X, p.Location.Y})
	}
	return centroids
}

func pointDist(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	d := math.Sqrt(dx*dx + dy*dy)
	if !model.IsFinite(d) {
		return math.MaxFloat64
	}
	return d
}
