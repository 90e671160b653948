package model

import "time"

// VotingStrategy selects the rule that picks the winning candidate group.
type VotingStrategy string

const (
	VoteMajority           VotingStrategy = "majority"
	VoteWeightedMajority   VotingStrategy = "weighted_majority"
	VotePlurality          VotingStrategy = "plurality"
	VoteConfidenceWeighted VotingStrategy = "confidence_weighted"
	VoteUnanimous          VotingStrategy = "unanimous"
)

// UncertaintyResult is the output of the uncertainty quantifier.
type UncertaintyResult struct {
	Intervals        map[string]ConfidenceInterval `json:"intervals"`
	DisagreementLevel string                       `json:"disagreement_level"` // "low", "medium", "high"
	Propagated       PropagatedUncertainty         `json:"propagated"`
	Warnings         []string                      `json:"warnings,omitempty"`
}

// ConfidenceInterval is a two-sided interval around a point estimate.
type ConfidenceInterval struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"` // e.g. 0.95
}

// PropagationStep names one hop of uncertainty flow through the pipeline.
type PropagationStep struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Factor float64 `json:"factor"`
}

// PropagatedUncertainty is the end-to-end uncertainty with its path.
// FinalConfidence never exceeds the confidence calculator's overall score.
type PropagatedUncertainty struct {
	Value           float64           `json:"value"`
	Path            []PropagationStep `json:"path"`
	FinalConfidence float64           `json:"final_confidence"`
}

// ConsensusResult is the orchestrator's single reconciled answer.
type ConsensusResult struct {
	ID               string                    `json:"id"`
	Content          string                    `json:"content"` // winning consensus text
	Strategy         VotingStrategy            `json:"strategy"`
	AgreementLevel   float64                   `json:"agreement_level"` // [0,1]
	Confidence       float64                   `json:"confidence"`
	Agreement        AgreementMeasures         `json:"agreement"`
	Disagreement     DisagreementAnalysis      `json:"disagreement"`
	ConfidenceDetail AdvancedConfidenceResult  `json:"confidence_detail"`
	Uncertainty      UncertaintyResult         `json:"uncertainty"`
	Components       ComponentConsensusResult  `json:"components"`
	Ranking          ConsensusRankingResult    `json:"ranking"`
	MetadataVotes    map[string]MetadataVote   `json:"metadata_votes,omitempty"`
	Providers        []string                  `json:"providers"` // deduplicated
	Elapsed          time.Duration             `json:"elapsed_ns"`
	Warnings         []string                  `json:"warnings,omitempty"`
}

// MetadataVote is the outcome of voting on one structured metadata field.
type MetadataVote struct {
	Winner  interface{}         `json:"winner"`
	Support float64             `json:"support"`
	Ballots []PropertyCandidate `json:"ballots,omitempty"`
}
