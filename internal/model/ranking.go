package model

// SimilarityProfile is one response's averaged similarity against the rest of
// the set, per dimension plus the configured weighted aggregate.
type SimilarityProfile struct {
	Semantic   float64 `json:"semantic"`
	Lexical    float64 `json:"lexical"`
	Structural float64 `json:"structural"`
	Contextual float64 `json:"contextual"`
	Aggregate  float64 `json:"aggregate"`
}

// QualityDimension is one independently scored quality axis with the evidence
// that produced the score. Factors are signed contributions: positive pushed
// the score up, negative pulled it down.
type QualityDimension struct {
	Score    float64   `json:"score"` // [0,1]
	Evidence []string  `json:"evidence,omitempty"`
	Factors  []float64 `json:"factors,omitempty"`
}

// QualityMetrics holds the six quality dimensions for one response.
type QualityMetrics struct {
	Completeness QualityDimension `json:"completeness"`
	Specificity  QualityDimension `json:"specificity"`
	Accuracy     QualityDimension `json:"accuracy"`
	Coherence    QualityDimension `json:"coherence"`
	Relevance    QualityDimension `json:"relevance"`
	Clarity      QualityDimension `json:"clarity"`
}

// Average returns the mean of the six dimension scores.
func (q QualityMetrics) Average() float64 {
	return (q.Completeness.Score + q.Specificity.Score + q.Accuracy.Score +
		q.Coherence.Score + q.Relevance.Score + q.Clarity.Score) / 6.0
}

// RankedResponse pairs one response with its scores and final rank (1-based).
type RankedResponse struct {
	Provider   string            `json:"provider"`
	ResponseID string            `json:"response_id"`
	Similarity SimilarityProfile `json:"similarity"`
	Quality    QualityMetrics    `json:"quality"`
	Score      float64           `json:"score"` // combined consensus score
	Rank       int               `json:"rank"`
}

// ConsensusAlternative is a non-primary consensus text candidate.
type ConsensusAlternative struct {
	Text       string  `json:"text"`
	Provider   string  `json:"provider"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
}

// GeneratedConsensus is the produced consensus text with provenance.
type GeneratedConsensus struct {
	Text         string                 `json:"text"`
	Method       GenerationMethod       `json:"method"`
	Sources      []string               `json:"sources,omitempty"` // contributing providers
	Confidence   float64                `json:"confidence"`
	Alternatives []ConsensusAlternative `json:"alternatives,omitempty"`
}

// GenerationMethod selects how consensus text is produced.
type GenerationMethod string

const (
	GenerateHighestRanked GenerationMethod = "highest_ranked"
	GenerateWeightedMerge GenerationMethod = "weighted_merge"
	GenerateTemplate      GenerationMethod = "template"
	GenerateExtractive    GenerationMethod = "extractive"
	GenerateAbstractive   GenerationMethod = "abstractive"
)

// RankingStrategy selects how responses are ordered.
type RankingStrategy string

const (
	RankWeightedScore     RankingStrategy = "weighted_score"
	RankTournament        RankingStrategy = "tournament"
	RankPairwise          RankingStrategy = "pairwise"
	RankConsensusDistance RankingStrategy = "consensus_distance"
	RankMultiCriteria     RankingStrategy = "multi_criteria"
)

// Finding is a structured issue surfaced by the optional coherence and
// consistency passes. Findings are informational, never errors.
type Finding struct {
	Kind        string  `json:"kind"` // e.g. "incoherent_response", "cross_inconsistency"
	Provider    string  `json:"provider,omitempty"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	Score       float64 `json:"score,omitempty"`
}

// ConsensusRankingResult is the full output of the text ranker.
type ConsensusRankingResult struct {
	Ranked    []RankedResponse   `json:"ranked"`
	Consensus GeneratedConsensus `json:"consensus"`
	Findings  []Finding          `json:"findings,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}
