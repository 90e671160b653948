package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetConfig(t *testing.T) {
	for _, name := range []string{"", "default", "high_precision", "fast"} {
		cfg, err := PresetConfig(name)
		require.NoError(t, err, "preset %q", name)
		validation := cfg.Validate()
		assert.True(t, validation.Valid, "preset %q should validate: %v", name, validation.Errors)
	}

	_, err := PresetConfig("turbo")
	assert.Error(t, err)
}

func TestPresetDifferences(t *testing.T) {
	def := DefaultConfig()
	hp := HighPrecisionConfig()
	fast := FastConfig()

	assert.Less(t, hp.Clustering.SpatialThreshold, def.Clustering.SpatialThreshold,
		"high precision uses a tighter spatial tolerance")
	assert.Greater(t, fast.Clustering.SpatialThreshold, def.Clustering.SpatialThreshold,
		"fast uses a coarser spatial tolerance")
	assert.Less(t, fast.Performance.MaxProcessingTime, def.Performance.MaxProcessingTime)
	assert.False(t, fast.Ranking.AssessCoherence)
	assert.False(t, fast.Confidence.EnablePropagation)
}

func TestValidate_NegativeWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confidence.Weights.Quality = -0.2

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "negative_weight")
}

func TestValidate_WeightExceedsOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confidence.Weights.Agreement = 1.5

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "weight_exceeds_one")
}

func TestValidate_WeightSumTolerance(t *testing.T) {
	cfg := DefaultConfig()
	// Within the 0.1 tolerance: still valid.
	cfg.Confidence.Weights.Agreement = 0.30
	v := cfg.Validate()
	assert.True(t, v.Valid, "drift of 0.05 is inside tolerance: %v", v.Errors)

	// Outside the tolerance.
	cfg.Confidence.Weights.Agreement = 0.60
	v = cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "invalid_weight_sum")
}

func TestValidate_InvertedThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confidence.Levels.High = 0.3
	cfg.Confidence.Levels.Medium = 0.6

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "inverted_thresholds")
}

func TestValidate_ClusteringBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clustering.SpatialThreshold = -1
	cfg.Clustering.MinimumClusterSize = 0

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "non_positive_spatial_threshold")
	assertHasError(t, v, "invalid_minimum_cluster_size")
}

func TestValidate_UnknownNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clustering.Algorithm = "voronoi"
	cfg.Clustering.OutlierHandling = "ignore"

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assertHasError(t, v, "unknown_clustering_algorithm")
	assertHasError(t, v, "unknown_outlier_policy")
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Confidence.Weights.Quality = -0.2
	cfg.Clustering.SpatialThreshold = 0
	cfg.Performance.MaxProcessingTime = 0

	v := cfg.Validate()
	assert.False(t, v.Valid)
	assert.GreaterOrEqual(t, len(v.Errors), 3, "all violations should be reported at once")
}

func assertHasError(t *testing.T, v ConfigValidation, name string) {
	t.Helper()
	for _, e := range v.Errors {
		if len(e) >= len(name) && e[:len(name)] == name {
			return
		}
	}
	t.Errorf("expected a %q error, got %v", name, v.Errors)
}
