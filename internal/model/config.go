package model

import (
	"fmt"
	"math"
	"time"
)

// Config is the full configuration tree consumed by one aggregation run.
// It is treated as read-only for the duration of an invocation; preset or
// threshold changes apply only to subsequent invocations.
type Config struct {
	Preset      string            `json:"preset" yaml:"preset" mapstructure:"preset"`
	Agreement   AgreementConfig   `json:"agreement" yaml:"agreement" mapstructure:"agreement"`
	Confidence  ConfidenceConfig  `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	Clustering  ClusteringConfig  `json:"clustering" yaml:"clustering" mapstructure:"clustering"`
	Ranking     RankingConfig     `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Uncertainty UncertaintyConfig `json:"uncertainty" yaml:"uncertainty" mapstructure:"uncertainty"`
	Performance PerformanceConfig `json:"performance" yaml:"performance" mapstructure:"performance"`
	Voting      VotingStrategy    `json:"voting" yaml:"voting" mapstructure:"voting"`
	LLM         LLMConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
}

// AgreementConfig tunes the agreement analyzer.
type AgreementConfig struct {
	DisagreementThreshold float64 `json:"disagreement_threshold" yaml:"disagreement_threshold" mapstructure:"disagreement_threshold"` // significant-disagreement cutoff
	OutlierSensitivity    float64 `json:"outlier_sensitivity" yaml:"outlier_sensitivity" mapstructure:"outlier_sensitivity"`          // combined deviation cutoff
	SimilarityThreshold   float64 `json:"similarity_threshold" yaml:"similarity_threshold" mapstructure:"similarity_threshold"`       // candidate-group clustering in the orchestrator
}

// FactorWeights weight the six confidence factors. They should sum to roughly 1;
// validation reports drift but never renormalizes silently.
type FactorWeights struct {
	Agreement    float64 `json:"agreement" yaml:"agreement" mapstructure:"agreement"`
	Quality      float64 `json:"quality" yaml:"quality" mapstructure:"quality"`
	Consistency  float64 `json:"consistency" yaml:"consistency" mapstructure:"consistency"`
	Coverage     float64 `json:"coverage" yaml:"coverage" mapstructure:"coverage"`
	Completeness float64 `json:"completeness" yaml:"completeness" mapstructure:"completeness"`
	Uncertainty  float64 `json:"uncertainty" yaml:"uncertainty" mapstructure:"uncertainty"`
}

// Sum returns the total of all factor weights.
func (w FactorWeights) Sum() float64 {
	return w.Agreement + w.Quality + w.Consistency + w.Coverage + w.Completeness + w.Uncertainty
}

// LevelThresholds classify an overall confidence score into a level.
// The ordering invariant High > Medium > Low > Critical is enforced at
// validation time, not at scoring time.
type LevelThresholds struct {
	High     float64 `json:"high" yaml:"high" mapstructure:"high"`
	Medium   float64 `json:"medium" yaml:"medium" mapstructure:"medium"`
	Low      float64 `json:"low" yaml:"low" mapstructure:"low"`
	Critical float64 `json:"critical" yaml:"critical" mapstructure:"critical"`
}

// ConfidenceConfig tunes the advanced confidence calculator.
type ConfidenceConfig struct {
	Weights           FactorWeights   `json:"weights" yaml:"weights" mapstructure:"weights"`
	Levels            LevelThresholds `json:"levels" yaml:"levels" mapstructure:"levels"`
	EnableDegradation bool            `json:"enable_degradation" yaml:"enable_degradation" mapstructure:"enable_degradation"`
	EnablePropagation bool            `json:"enable_propagation" yaml:"enable_propagation" mapstructure:"enable_propagation"`
	TimeoutThreshold  time.Duration   `json:"timeout_threshold" yaml:"timeout_threshold" mapstructure:"timeout_threshold"` // response latency beyond this is penalized
}

// ClusteringAlgorithm selects the spatial clustering strategy.
type ClusteringAlgorithm string

const (
	AlgorithmDBSCAN       ClusteringAlgorithm = "dbscan"
	AlgorithmKMeans       ClusteringAlgorithm = "kmeans"
	AlgorithmHierarchical ClusteringAlgorithm = "hierarchical"
	AlgorithmAdaptive     ClusteringAlgorithm = "adaptive"
)

// OutlierPolicy decides what happens to clusters below minimum size.
type OutlierPolicy string

const (
	OutlierInclude          OutlierPolicy = "include"
	OutlierExclude          OutlierPolicy = "exclude"
	OutlierSeparateCluster  OutlierPolicy = "separate_cluster"
	OutlierReduceConfidence OutlierPolicy = "reduce_confidence"
)

// ClusteringConfig tunes the component consensus clusterer.
type ClusteringConfig struct {
	Algorithm                   ClusteringAlgorithm `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	SpatialThreshold            float64             `json:"spatial_threshold" yaml:"spatial_threshold" mapstructure:"spatial_threshold"` // drawing units
	SemanticSimilarityThreshold float64             `json:"semantic_similarity_threshold" yaml:"semantic_similarity_threshold" mapstructure:"semantic_similarity_threshold"`
	MinimumClusterSize          int                 `json:"minimum_cluster_size" yaml:"minimum_cluster_size" mapstructure:"minimum_cluster_size"`
	MaxClusters                 int                 `json:"max_clusters" yaml:"max_clusters" mapstructure:"max_clusters"`
	OutlierHandling             OutlierPolicy       `json:"outlier_handling" yaml:"outlier_handling" mapstructure:"outlier_handling"`
}

// SimilarityWeights weight the four similarity dimensions in ranking.
type SimilarityWeights struct {
	Semantic   float64 `json:"semantic" yaml:"semantic" mapstructure:"semantic"`
	Lexical    float64 `json:"lexical" yaml:"lexical" mapstructure:"lexical"`
	Structural float64 `json:"structural" yaml:"structural" mapstructure:"structural"`
	Contextual float64 `json:"contextual" yaml:"contextual" mapstructure:"contextual"`
}

// RankingConfig tunes the consensus text ranker.
type RankingConfig struct {
	Strategy            RankingStrategy   `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Generation          GenerationMethod  `json:"generation" yaml:"generation" mapstructure:"generation"`
	Similarity          SimilarityWeights `json:"similarity" yaml:"similarity" mapstructure:"similarity"`
	SimilarityWeight    float64           `json:"similarity_weight" yaml:"similarity_weight" mapstructure:"similarity_weight"` // vs quality vs confidence in the consensus score
	QualityWeight       float64           `json:"quality_weight" yaml:"quality_weight" mapstructure:"quality_weight"`
	ConfidenceWeight    float64           `json:"confidence_weight" yaml:"confidence_weight" mapstructure:"confidence_weight"`
	AssessCoherence     bool              `json:"assess_coherence" yaml:"assess_coherence" mapstructure:"assess_coherence"`
	ValidateConsistency bool              `json:"validate_consistency" yaml:"validate_consistency" mapstructure:"validate_consistency"`
}

// UncertaintyConfig tunes the uncertainty quantifier.
type UncertaintyConfig struct {
	IntervalLevel           float64 `json:"interval_level" yaml:"interval_level" mapstructure:"interval_level"` // e.g. 0.95
	AgreementWarnThreshold  float64 `json:"agreement_warn_threshold" yaml:"agreement_warn_threshold" mapstructure:"agreement_warn_threshold"`
	ConfidenceWarnThreshold float64 `json:"confidence_warn_threshold" yaml:"confidence_warn_threshold" mapstructure:"confidence_warn_threshold"`
}

// PerformanceConfig bounds resource use per invocation.
type PerformanceConfig struct {
	MaxProcessingTime time.Duration `json:"max_processing_time" yaml:"max_processing_time" mapstructure:"max_processing_time"`
	MaxClusters       int           `json:"max_clusters" yaml:"max_clusters" mapstructure:"max_clusters"`
	BatchSize         int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// LLMConfig configures the optional provider clients used in live collection.
// The algorithmic core never reads this section.
type LLMConfig struct {
	Providers  []ProviderConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	Timeout    time.Duration    `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	RateLimit  float64          `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec per provider
	RateBurst  int              `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`
	HTTPProxy  string           `json:"http_proxy" yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string           `json:"https_proxy" yaml:"https_proxy" mapstructure:"https_proxy"`
}

// ProviderConfig describes one OpenAI-compatible provider endpoint.
type ProviderConfig struct {
	Name    string `json:"name" yaml:"name" mapstructure:"name"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`
	APIKey  string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// ConcurrencyConfig bounds batch-mode parallelism.
type ConcurrencyConfig struct {
	BatchWorkers int `json:"batch_workers" yaml:"batch_workers" mapstructure:"batch_workers"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format        string `json:"format" yaml:"format" mapstructure:"format"` // "json", "yaml", "markdown"
	IncludeFooter bool   `json:"include_footer" yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the "default" preset.
func DefaultConfig() *Config {
	return &Config{
		Preset: "default",
		Agreement: AgreementConfig{
			DisagreementThreshold: 0.4,
			OutlierSensitivity:    0.5,
			SimilarityThreshold:   0.6,
		},
		Confidence: ConfidenceConfig{
			Weights: FactorWeights{
				Agreement:    0.25,
				Quality:      0.20,
				Consistency:  0.10,
				Coverage:     0.15,
				Completeness: 0.15,
				Uncertainty:  0.15,
			},
			Levels: LevelThresholds{
				High:     0.8,
				Medium:   0.6,
				Low:      0.4,
				Critical: 0.2,
			},
			EnableDegradation: true,
			EnablePropagation: true,
			TimeoutThreshold:  20 * time.Second,
		},
		Clustering: ClusteringConfig{
			Algorithm:                   AlgorithmAdaptive,
			SpatialThreshold:            25.0,
			SemanticSimilarityThreshold: 0.6,
			MinimumClusterSize:          2,
			MaxClusters:                 50,
			OutlierHandling:             OutlierReduceConfidence,
		},
		Ranking: RankingConfig{
			Strategy:   RankWeightedScore,
			Generation: GenerateHighestRanked,
			Similarity: SimilarityWeights{
				Semantic:   0.4,
				Lexical:    0.2,
				Structural: 0.2,
				Contextual: 0.2,
			},
			SimilarityWeight:    0.4,
			QualityWeight:       0.4,
			ConfidenceWeight:    0.2,
			AssessCoherence:     true,
			ValidateConsistency: true,
		},
		Uncertainty: UncertaintyConfig{
			IntervalLevel:           0.95,
			AgreementWarnThreshold:  0.5,
			ConfidenceWarnThreshold: 0.4,
		},
		Performance: PerformanceConfig{
			MaxProcessingTime: 30 * time.Second,
			MaxClusters:       50,
			BatchSize:         25,
		},
		Voting: VoteConfidenceWeighted,
		LLM: LLMConfig{
			Timeout:   30 * time.Second,
			RateLimit: 2,
			RateBurst: 5,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
		Output: OutputConfig{
			Format:        "json",
			IncludeFooter: true,
		},
	}
}

// HighPrecisionConfig returns the "high_precision" preset: tighter spatial
// tolerance, stricter disagreement cutoff, longer time budget.
func HighPrecisionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Preset = "high_precision"
	cfg.Agreement.DisagreementThreshold = 0.3
	cfg.Agreement.SimilarityThreshold = 0.75
	cfg.Clustering.Algorithm = AlgorithmDBSCAN
	cfg.Clustering.SpatialThreshold = 10.0
	cfg.Clustering.SemanticSimilarityThreshold = 0.75
	cfg.Clustering.MinimumClusterSize = 3
	cfg.Clustering.OutlierHandling = OutlierExclude
	cfg.Ranking.Strategy = RankMultiCriteria
	cfg.Performance.MaxProcessingTime = 2 * time.Minute
	return cfg
}

// FastConfig returns the "fast" preset: coarse thresholds, cheap strategies,
// optional passes disabled, tight time budget.
func FastConfig() *Config {
	cfg := DefaultConfig()
	cfg.Preset = "fast"
	cfg.Clustering.Algorithm = AlgorithmKMeans
	cfg.Clustering.SpatialThreshold = 50.0
	cfg.Ranking.AssessCoherence = false
	cfg.Ranking.ValidateConsistency = false
	cfg.Confidence.EnablePropagation = false
	cfg.Performance.MaxProcessingTime = 5 * time.Second
	return cfg
}

// PresetConfig returns a complete configuration for a named preset, or an
// error for an unknown name.
func PresetConfig(name string) (*Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "high_precision":
		return HighPrecisionConfig(), nil
	case "fast":
		return FastConfig(), nil
	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}
}

// ConfigValidation is the structured result of validating a Config.
// Validation reports problems by name and never panics.
type ConfigValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks the configuration invariants and returns all violations.
func (c *Config) Validate() ConfigValidation {
	var errs []string

	w := c.Confidence.Weights
	for name, v := range map[string]float64{
		"agreement":    w.Agreement,
		"quality":      w.Quality,
		"consistency":  w.Consistency,
		"coverage":     w.Coverage,
		"completeness": w.Completeness,
		"uncertainty":  w.Uncertainty,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("negative_weight: confidence factor %q has weight %.3f", name, v))
		}
		if v > 1 {
			errs = append(errs, fmt.Sprintf("weight_exceeds_one: confidence factor %q has weight %.3f", name, v))
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > 0.1 {
		errs = append(errs, fmt.Sprintf("invalid_weight_sum: confidence factor weights sum to %.3f, expected 1.0 (tolerance 0.1)", sum))
	}

	lv := c.Confidence.Levels
	if !(lv.High > lv.Medium && lv.Medium > lv.Low && lv.Low > lv.Critical) {
		errs = append(errs, fmt.Sprintf("inverted_thresholds: confidence levels must satisfy high>medium>low>critical, got %.2f/%.2f/%.2f/%.2f",
			lv.High, lv.Medium, lv.Low, lv.Critical))
	}

	if c.Clustering.SpatialThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("non_positive_spatial_threshold: %.3f", c.Clustering.SpatialThreshold))
	}
	if c.Clustering.MinimumClusterSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid_minimum_cluster_size: %d, must be >= 1", c.Clustering.MinimumClusterSize))
	}
	if c.Performance.MaxProcessingTime <= 0 {
		errs = append(errs, fmt.Sprintf("non_positive_time_budget: %s", c.Performance.MaxProcessingTime))
	}
	switch c.Clustering.Algorithm {
	case AlgorithmDBSCAN, AlgorithmKMeans, AlgorithmHierarchical, AlgorithmAdaptive:
	default:
		errs = append(errs, fmt.Sprintf("unknown_clustering_algorithm: %q", c.Clustering.Algorithm))
	}
	switch c.Clustering.OutlierHandling {
	case OutlierInclude, OutlierExclude, OutlierSeparateCluster, OutlierReduceConfidence:
	default:
		errs = append(errs, fmt.Sprintf("unknown_outlier_policy: %q", c.Clustering.OutlierHandling))
	}

	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}
