package model

// ConfidenceLevel buckets an overall confidence score.
type ConfidenceLevel string

const (
	LevelHigh     ConfidenceLevel = "high"
	LevelMedium   ConfidenceLevel = "medium"
	LevelLow      ConfidenceLevel = "low"
	LevelCritical ConfidenceLevel = "critical"
)

// AdvancedConfidenceResult is the multi-factor confidence assessment.
type AdvancedConfidenceResult struct {
	OverallConfidence float64         `json:"overall_confidence"`
	Factors           FactorScores    `json:"factors"`
	Level             ConfidenceLevel `json:"level"`
	Degradation       Degradation     `json:"degradation"`
	Propagation       Propagation     `json:"propagation"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// FactorScores holds the six independently computed confidence factors,
// each in [0,1].
type FactorScores struct {
	Agreement    float64 `json:"agreement"`
	Quality      float64 `json:"quality"`
	Consistency  float64 `json:"consistency"`
	Coverage     float64 `json:"coverage"`
	Completeness float64 `json:"completeness"`
	Uncertainty  float64 `json:"uncertainty"` // inverse of disagreement score
}

// Penalty names a detected data-quality condition and its cost.
type Penalty struct {
	Kind   string  `json:"kind"` // "partial_response", "missing_data", "timeout"
	Amount float64 `json:"amount"`
	Detail string  `json:"detail,omitempty"`
}

// Degradation records the penalties subtracted from overall confidence.
type Degradation struct {
	Enabled      bool      `json:"enabled"`
	Penalties    []Penalty `json:"penalties,omitempty"`
	TotalPenalty float64   `json:"total_penalty"`
}

// Propagation records how confidence was adjusted as it flowed downstream.
// FinalConfidence never exceeds the pre-propagation overall confidence.
type Propagation struct {
	Enabled         bool                          `json:"enabled"`
	Decay           float64                       `json:"decay"`
	Amplification   float64                       `json:"amplification"`
	CrossInfluence  map[string]map[string]float64 `json:"cross_influence,omitempty"`
	FinalConfidence float64                       `json:"final_confidence"`
}
