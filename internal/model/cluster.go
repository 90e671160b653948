package model

import "time"

// ComponentCluster groups identifications believed to denote one physical
// entity, together with the metrics that justify the grouping.
type ComponentCluster struct {
	ID         string                    `json:"id"`
	Members    []ComponentIdentification `json:"members"`
	Centroid   Centroid                  `json:"centroid"`
	Confidence ConfidenceBreakdown       `json:"confidence"`
	Spatial    SpatialMetrics            `json:"spatial"`
	Semantic   SemanticMetrics           `json:"semantic"`
	IsNoise    bool                      `json:"is_noise,omitempty"` // DBSCAN noise bucket
}

// Centroid is the confidence-weighted center of a cluster.
type Centroid struct {
	Location   Location               `json:"location"`
	Type       string                 `json:"type"` // majority member type
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ConfidenceBreakdown decomposes cluster confidence into its factors.
// All values are in [0,1].
type ConfidenceBreakdown struct {
	Overall   float64 `json:"overall"`
	Spatial   float64 `json:"spatial"`
	Semantic  float64 `json:"semantic"`
	Agreement float64 `json:"agreement"`
	Stability float64 `json:"stability"`
}

// SpatialMetrics describe the geometric quality of a cluster.
// Separation and Silhouette are reserved: they stay zero until a full
// inter-cluster comparison is implemented, and nothing downstream reads them.
type SpatialMetrics struct {
	Variance    float64 `json:"variance"`
	Cohesion    float64 `json:"cohesion"`
	Compactness float64 `json:"compactness"`
	Separation  float64 `json:"separation"`
	Silhouette  float64 `json:"silhouette"`
}

// SemanticMetrics describe how semantically uniform a cluster is.
type SemanticMetrics struct {
	TypeConsistency       float64 `json:"type_consistency"`
	PropertyAgreement     float64 `json:"property_agreement"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	FunctionalAlignment   float64 `json:"functional_alignment"`
}

// ConsensusComponent is the finalized entity derived from one cluster.
type ConsensusComponent struct {
	ID                  string              `json:"id"`
	Type                ConsensusType       `json:"type"`
	Location            ConsensusLocation   `json:"location"`
	Properties          ConsensusProperties `json:"properties"`
	Confidence          float64             `json:"confidence"`
	SupportingProviders []string            `json:"supporting_providers"` // deduplicated
	Disagreements       []Disagreement      `json:"disagreements,omitempty"`
}

// ConsensusType holds the winning type and its runners-up.
type ConsensusType struct {
	Primary      string            `json:"primary"`
	Alternatives []TypeAlternative `json:"alternatives,omitempty"`
}

// TypeAlternative is a non-winning type candidate ranked by support.
type TypeAlternative struct {
	Type    string  `json:"type"`
	Support float64 `json:"support"` // fraction of weighted votes
}

// ConsensusLocation is the agreed position with per-axis uncertainty.
type ConsensusLocation struct {
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	RangeX     [2]float64      `json:"range_x"` // [min,max] over members
	RangeY     [2]float64      `json:"range_y"`
	Confidence float64         `json:"confidence"`
}

// ConsensusProperties partitions property keys by how well providers agree.
type ConsensusProperties struct {
	Agreed   map[string]AgreedProperty   `json:"agreed,omitempty"`
	Disputed map[string]DisputedProperty `json:"disputed,omitempty"`
	Missing  []string                    `json:"missing,omitempty"` // present in some members only
}

// AgreedProperty is a property value that won the vote.
type AgreedProperty struct {
	Value        interface{}         `json:"value"`
	Support      float64             `json:"support"`
	Alternatives []PropertyCandidate `json:"alternatives,omitempty"`
}

// DisputedProperty is a property with no clear winner.
type DisputedProperty struct {
	Candidates []PropertyCandidate `json:"candidates"`
	Strategy   string              `json:"strategy"` // resolution strategy recorded, not applied
}

// PropertyCandidate is one competing value for a property key.
type PropertyCandidate struct {
	Value   interface{} `json:"value"`
	Support float64     `json:"support"`
}

// DisagreementAspect names the dimension providers diverge on.
type DisagreementAspect string

const (
	AspectLocation   DisagreementAspect = "location"
	AspectType       DisagreementAspect = "type"
	AspectProperties DisagreementAspect = "properties"
	AspectExistence  DisagreementAspect = "existence"
)

// DisagreementSeverity grades how serious a disagreement is.
type DisagreementSeverity string

const (
	SeverityMinor    DisagreementSeverity = "minor"
	SeverityModerate DisagreementSeverity = "moderate"
	SeverityMajor    DisagreementSeverity = "major"
	SeverityCritical DisagreementSeverity = "critical"
)

// Disagreement records where and how providers diverged on one component.
type Disagreement struct {
	Aspect     DisagreementAspect   `json:"aspect"`
	Severity   DisagreementSeverity `json:"severity"`
	Score      float64              `json:"score"` // [0,1], higher is worse
	Kind       string               `json:"kind"`  // e.g. "type_mismatch", "spatial_mismatch", "malformed_data"
	Providers  []string             `json:"providers,omitempty"`
	Resolution Resolution           `json:"resolution"`
}

// Resolution describes how a disagreement was settled.
type Resolution struct {
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ComponentConsensusResult is the full output of the component clusterer.
type ComponentConsensusResult struct {
	Clusters   []ComponentCluster        `json:"clusters"`
	Components []ConsensusComponent      `json:"components"`
	Outliers   []ComponentIdentification `json:"outliers,omitempty"`
	Metrics    ClusteringMetrics         `json:"metrics"`
	Summary    ClusteringSummary         `json:"summary"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

// ClusteringMetrics aggregates counts over a clustering run.
type ClusteringMetrics struct {
	TotalIdentifications int           `json:"total_identifications"`
	ClusterCount         int           `json:"cluster_count"`
	OutlierCount         int           `json:"outlier_count"`
	MalformedCount       int           `json:"malformed_count"`
	Elapsed              time.Duration `json:"elapsed_ns"`
}

// ClusteringSummary is the reviewer-facing rollup.
type ClusteringSummary struct {
	AgreedComponents   int `json:"agreed_components"`
	DisputedComponents int `json:"disputed_components"`
	HighConfidence     int `json:"high_confidence"`      // confidence >= 0.8
	NeedsReview        int `json:"needs_review"`         // confidence < 0.5 or a major disagreement
}
