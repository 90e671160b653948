package model

// AgreementMeasures summarizes how much a response set agrees. All similarity
// values are in [0,1]; correlation coefficients are in [-1,1].
type AgreementMeasures struct {
	SemanticSimilarity   float64        `json:"semantic_similarity"`
	StructuralSimilarity float64        `json:"structural_similarity"`
	Correlation          CorrelationSet `json:"correlation"`
	Variance             float64        `json:"variance"` // over clamped confidences
	Entropy              float64        `json:"entropy"`  // normalized Shannon entropy of confidence buckets
	OutlierCount         int            `json:"outlier_count"`
	SampleCount          int            `json:"sample_count"`
}

// CorrelationSet carries the three rank/linear correlation coefficients,
// averaged over response pairs.
type CorrelationSet struct {
	Pearson  float64 `json:"pearson"`
	Spearman float64 `json:"spearman"`
	Kendall  float64 `json:"kendall"`
}

// DisagreementAnalysis explains where a response set diverges.
type DisagreementAnalysis struct {
	HasSignificantDisagreement bool               `json:"has_significant_disagreement"`
	DisagreementScore          float64            `json:"disagreement_score"` // [0,1]
	Consensus                  DimensionConsensus `json:"consensus"`
	Outliers                   []ResponseOutlier  `json:"outliers,omitempty"`
}

// DimensionConsensus holds per-dimension consensus levels in [0,1].
type DimensionConsensus struct {
	Semantic   float64 `json:"semantic"`
	Confidence float64 `json:"confidence"`
	Structural float64 `json:"structural"`
}

// ResponseOutlier flags one provider whose response deviates from the rest.
type ResponseOutlier struct {
	Provider       string   `json:"provider"`
	DeviationScore float64  `json:"deviation_score"`
	Reasons        []string `json:"reasons"` // e.g. "semantic", "confidence"
}
