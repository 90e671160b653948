package cluster

import "github.com/Jmjcoke/quorum/internal/model"

// DBSCAN implements density-based clustering. Points whose neighborhood
// within the spatial threshold holds at least the minimum cluster size form
// a cluster; everything left over is returned as a single noise group.
type DBSCAN struct{}

// Name identifies the strategy.
func (d *DBSCAN) Name() model.ClusteringAlgorithm { return model.AlgorithmDBSCAN }

// Cluster runs DBSCAN over the points.
func (d *DBSCAN) Cluster(points []model.ComponentIdentification, cfg model.ClusteringConfig) []Group {
	if len(points) == 0 {
		return nil
	}

	eps := cfg.SpatialThreshold
	minPts := cfg.MinimumClusterSize
	if minPts < 1 {
		minPts = 1
	}

	visited := make([]bool, len(points))
	assigned := make([]bool, len(points))
	var groups []Group

	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := d.neighbors(points, i, eps)
		if len(neighbors) < minPts {
			continue
		}

		// Grow the cluster by expanding every dense neighbor's neighborhood.
		var members []model.ComponentIdentification
		queue := neighbors
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			if !visited[idx] {
				visited[idx] = true
				next := d.neighbors(points, idx, eps)
				if len(next) >= minPts {
					queue = append(queue, next...)
				}
			}
			if !assigned[idx] {
				assigned[idx] = true
				members = append(members, points[idx])
			}
		}
		if len(members) > 0 {
			groups = append(groups, Group{Members: members})
		}
	}

	// Unclustered points become one noise group.
	var noise []model.ComponentIdentification
	for i := range points {
		if !assigned[i] {
			noise = append(noise, points[i])
		}
	}
	if len(noise) > 0 {
		groups = append(groups, Group{Members: noise, Noise: true})
	}
	return groups
}

// neighbors returns indices within eps of point i, including i itself.
func (d *DBSCAN) neighbors(points []model.ComponentIdentification, i int, eps float64) []int {
	var out []int
	for j := range points {
		if distance(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}
