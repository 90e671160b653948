// Package uncertainty derives confidence intervals and propagated
// uncertainty from the agreement and confidence stages.
package uncertainty

import (
	"fmt"
	"math"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Quantifier computes the uncertainty view of a consensus run.
type Quantifier struct {
	cfg model.UncertaintyConfig
}

// NewQuantifier creates a quantifier with the given warning thresholds.
func NewQuantifier(cfg model.UncertaintyConfig) *Quantifier {
	return &Quantifier{cfg: cfg}
}

// Quantify produces intervals, the disagreement level, the propagation path
// and quality warnings. It never fails; an empty response set yields wide
// degenerate intervals.
func (q *Quantifier) Quantify(responses []model.LLMResponse, measures model.AgreementMeasures, disagreement model.DisagreementAnalysis, conf model.AdvancedConfidenceResult) model.UncertaintyResult {
	level := q.cfg.IntervalLevel
	if level <= 0 || level >= 1 {
		level = 0.95
	}

	confidences := make([]float64, 0, len(responses))
	for _, r := range responses {
		confidences = append(confidences, r.ClampedConfidence())
	}

	intervals := map[string]model.ConfidenceInterval{
		"provider_confidence": meanInterval(confidences, level),
		"semantic_similarity": pointInterval(measures.SemanticSimilarity, measures.Variance, len(responses), level),
		"overall_confidence":  pointInterval(conf.OverallConfidence, measures.Variance, len(responses), level),
	}

	result := model.UncertaintyResult{
		Intervals:         intervals,
		DisagreementLevel: classifyDisagreement(disagreement.DisagreementScore),
		Propagated:        q.propagate(measures, disagreement, conf),
	}

	if measures.SemanticSimilarity < q.cfg.AgreementWarnThreshold && measures.SampleCount > 1 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"low agreement: semantic similarity %.2f is below the %.2f warning threshold",
			measures.SemanticSimilarity, q.cfg.AgreementWarnThreshold))
	}
	if conf.OverallConfidence < q.cfg.ConfidenceWarnThreshold {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"low confidence: overall confidence %.2f is below the %.2f warning threshold",
			conf.OverallConfidence, q.cfg.ConfidenceWarnThreshold))
	}
	if len(disagreement.Outliers) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d outlier provider(s) detected", len(disagreement.Outliers)))
	}
	return result
}

// propagate walks uncertainty through the pipeline stages in dependency
// order, compounding per-stage factors. FinalConfidence stays at or below
// the confidence calculator's overall score.
func (q *Quantifier) propagate(measures model.AgreementMeasures, disagreement model.DisagreementAnalysis, conf model.AdvancedConfidenceResult) model.PropagatedUncertainty {
	steps := []model.PropagationStep{
		{Source: "individual_responses", Target: "agreement_analysis", Factor: model.Clamp01(measures.Variance * 4)},
		{Source: "agreement_analysis", Target: "disagreement_analysis", Factor: disagreement.DisagreementScore},
		{Source: "disagreement_analysis", Target: "consensus_confidence", Factor: model.Clamp01(1 - conf.OverallConfidence)},
	}

	// Compound residual certainty across the path.
	certainty := 1.0
	for _, s := range steps {
		certainty *= 1 - s.Factor*0.5
	}
	value := model.Clamp01(1 - certainty)

	final := conf.OverallConfidence * (1 - value*0.5)
	if conf.Propagation.Enabled && conf.Propagation.FinalConfidence < final {
		final = conf.Propagation.FinalConfidence
	}
	if final > conf.OverallConfidence {
		final = conf.OverallConfidence
	}

	return model.PropagatedUncertainty{
		Value:           value,
		Path:            steps,
		FinalConfidence: model.Clamp01(final),
	}
}

func classifyDisagreement(score float64) string {
	switch {
	case score < 0.25:
		return "low"
	case score < 0.5:
		return "medium"
	default:
		return "high"
	}
}

// meanInterval is a normal-approximation interval around the sample mean.
func meanInterval(values []float64, level float64) model.ConfidenceInterval {
	n := len(values)
	if n == 0 {
		return model.ConfidenceInterval{Lower: 0, Upper: 1, Level: level}
	}
	m := mean(values)
	if n == 1 {
		return model.ConfidenceInterval{Point: m, Lower: model.Clamp01(m - 0.5), Upper: model.Clamp01(m + 0.5), Level: level}
	}
	se := math.Sqrt(variance(values) / float64(n))
	z := zFor(level)
	return model.ConfidenceInterval{
		Point: m,
		Lower: model.Clamp01(m - z*se),
		Upper: model.Clamp01(m + z*se),
		Level: level,
	}
}

// pointInterval widens a point estimate by the set's confidence variance.
func pointInterval(point, variance float64, n int, level float64) model.ConfidenceInterval {
	width := 0.5
	if n > 0 {
		width = zFor(level) * math.Sqrt(variance/float64(n)+0.001)
	}
	return model.ConfidenceInterval{
		Point: model.Clamp01(point),
		Lower: model.Clamp01(point - width),
		Upper: model.Clamp01(point + width),
		Level: level,
	}
}

// zFor maps common interval levels to z-scores; anything else approximates.
func zFor(level float64) float64 {
	switch {
	case level >= 0.99:
		return 2.576
	case level >= 0.95:
		return 1.96
	case level >= 0.9:
		return 1.645
	default:
		return 1.282
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}
