// Package confidence computes the multi-factor confidence score for a
// consensus run, with optional degradation penalties and downstream
// propagation adjustments.
package confidence

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/textsim"
)

// Calculator derives AdvancedConfidenceResult from the agreement stage.
type Calculator struct {
	cfg model.ConfidenceConfig
}

// NewCalculator creates a calculator with the given configuration.
func NewCalculator(cfg model.ConfidenceConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate scores the response set. Zero responses yield a critical result
// with zero confidence rather than an error.
func (c *Calculator) Calculate(responses []model.LLMResponse, measures model.AgreementMeasures, disagreement model.DisagreementAnalysis) model.AdvancedConfidenceResult {
	if len(responses) == 0 {
		return model.AdvancedConfidenceResult{
			Level:       model.LevelCritical,
			Degradation: model.Degradation{Enabled: c.cfg.EnableDegradation},
			Propagation: model.Propagation{Enabled: c.cfg.EnablePropagation},
		}
	}

	var warnings []string
	factors := model.FactorScores{
		Agreement:    factorAgreement(measures),
		Quality:      factorQuality(responses),
		Consistency:  factorConsistency(responses),
		Completeness: factorCompleteness(responses),
		Uncertainty:  model.Clamp01(1 - disagreement.DisagreementScore),
	}
	factors.Coverage, warnings = factorCoverage(responses, warnings)

	w := c.cfg.Weights
	overall := model.Clamp01(
		factors.Agreement*w.Agreement +
			factors.Quality*w.Quality +
			factors.Consistency*w.Consistency +
			factors.Coverage*w.Coverage +
			factors.Completeness*w.Completeness +
			factors.Uncertainty*w.Uncertainty)

	degradation := c.degrade(responses)
	overall = model.Clamp01(overall - degradation.TotalPenalty)

	result := model.AdvancedConfidenceResult{
		OverallConfidence: overall,
		Factors:           factors,
		Level:             c.classify(overall),
		Degradation:       degradation,
		Propagation:       c.propagate(overall, factors, disagreement),
		Warnings:          warnings,
	}
	return result
}

// classify maps an overall score to a confidence level via the configured
// thresholds. Ordering is validated at config time, not here.
func (c *Calculator) classify(overall float64) model.ConfidenceLevel {
	lv := c.cfg.Levels
	switch {
	case overall >= lv.High:
		return model.LevelHigh
	case overall >= lv.Medium:
		return model.LevelMedium
	case overall >= lv.Low:
		return model.LevelLow
	default:
		return model.LevelCritical
	}
}

// degrade detects data-quality conditions and converts each into a named
// penalty. With degradation disabled no penalties apply.
func (c *Calculator) degrade(responses []model.LLMResponse) model.Degradation {
	d := model.Degradation{Enabled: c.cfg.EnableDegradation}
	if !c.cfg.EnableDegradation {
		return d
	}

	timeout := c.cfg.TimeoutThreshold
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	for _, r := range responses {
		if len(strings.TrimSpace(r.Content)) < 40 {
			d.Penalties = append(d.Penalties, model.Penalty{
				Kind:   "partial_response",
				Amount: 0.08,
				Detail: fmt.Sprintf("provider %s returned a truncated or empty response", r.Provider),
			})
		}
		if !r.HasComponents() {
			d.Penalties = append(d.Penalties, model.Penalty{
				Kind:   "missing_data",
				Amount: 0.05,
				Detail: fmt.Sprintf("provider %s supplied no structured component data", r.Provider),
			})
		}
		if r.Latency > timeout {
			d.Penalties = append(d.Penalties, model.Penalty{
				Kind:   "timeout",
				Amount: 0.1,
				Detail: fmt.Sprintf("provider %s exceeded the %s latency threshold", r.Provider, timeout),
			})
		}
	}
	for _, p := range d.Penalties {
		d.TotalPenalty += p.Amount
	}
	if d.TotalPenalty > 0.5 {
		d.TotalPenalty = 0.5
	}
	return d
}

// propagate applies confidence decay and uncertainty amplification and fills
// the cross-factor influence matrix. FinalConfidence never exceeds the
// pre-propagation overall score; with propagation disabled they are equal.
func (c *Calculator) propagate(overall float64, factors model.FactorScores, disagreement model.DisagreementAnalysis) model.Propagation {
	p := model.Propagation{Enabled: c.cfg.EnablePropagation, FinalConfidence: overall}
	if !c.cfg.EnablePropagation {
		return p
	}

	p.Decay = 0.05
	p.Amplification = model.Clamp01(disagreement.DisagreementScore * 0.3)
	p.CrossInfluence = crossInfluence(factors)

	final := overall * (1 - p.Decay) * (1 - p.Amplification)
	if final > overall {
		final = overall
	}
	p.FinalConfidence = model.Clamp01(final)
	return p
}

// crossInfluence records how strongly each factor pulls on the others,
// scaled by how far the source factor sits from perfect.
func crossInfluence(f model.FactorScores) map[string]map[string]float64 {
	values := map[string]float64{
		"agreement":    f.Agreement,
		"quality":      f.Quality,
		"consistency":  f.Consistency,
		"coverage":     f.Coverage,
		"completeness": f.Completeness,
		"uncertainty":  f.Uncertainty,
	}
	out := make(map[string]map[string]float64, len(values))
	for src, sv := range values {
		row := make(map[string]float64, len(values)-1)
		for dst := range values {
			if src == dst {
				continue
			}
			// A weak factor drags its neighbors; a perfect one exerts none.
			row[dst] = math.Round((1-sv)*0.2*1000) / 1000
		}
		out[src] = row
	}
	return out
}

func factorAgreement(m model.AgreementMeasures) float64 {
	confConsensus := model.Clamp01(1 - m.Variance*4)
	return model.Clamp01(0.4*m.SemanticSimilarity + 0.3*m.StructuralSimilarity + 0.3*confConsensus)
}

// factorQuality scores the response length distribution and technical
// density of the set.
func factorQuality(responses []model.LLMResponse) float64 {
	var lengths []float64
	var technical float64
	for _, r := range responses {
		words := float64(len(strings.Fields(r.Content)))
		lengths = append(lengths, words)
		if words > 0 {
			technical += float64(len(textsim.ComponentRefs(r.Content))+len(textsim.Measurements(r.Content))) / words
		}
	}
	meanLen := mean(lengths)

	// 30-400 words is the useful band for a drawing description.
	lengthScore := 0.0
	switch {
	case meanLen >= 30 && meanLen <= 400:
		lengthScore = 1
	case meanLen < 30:
		lengthScore = meanLen / 30
	default:
		lengthScore = 400 / meanLen
	}

	density := technical / float64(len(responses)) * 10
	if density > 1 {
		density = 1
	}
	return model.Clamp01(0.6*lengthScore + 0.4*density)
}

// factorConsistency scores response-time spread: a tight latency band means
// providers worked comparably hard on the same input.
func factorConsistency(responses []model.LLMResponse) float64 {
	var times []float64
	for _, r := range responses {
		times = append(times, float64(r.Latency)/1e9)
	}
	m := mean(times)
	if m <= 0 {
		return 1
	}
	cv := math.Sqrt(variance(times)) / m
	return model.Clamp01(1 / (1 + cv))
}

// factorCoverage scores distinct-provider coverage. A single provider gets
// the explicit limited-validation warning plus a score penalty.
func factorCoverage(responses []model.LLMResponse, warnings []string) (float64, []string) {
	distinct := make(map[string]bool)
	for _, r := range responses {
		distinct[r.Provider] = true
	}
	n := len(distinct)
	score := model.Clamp01(float64(n) / 4.0)
	if n <= 1 {
		warnings = append(warnings, "limited consensus validation: single provider")
		score *= 0.5
	}
	return score, warnings
}

// factorCompleteness scores how much structured component data the set
// carries.
func factorCompleteness(responses []model.LLMResponse) float64 {
	var sum float64
	for _, r := range responses {
		switch {
		case len(r.Components) >= 3:
			sum += 1
		case len(r.Components) > 0:
			sum += 0.6
		case len(textsim.ComponentRefs(r.Content)) > 0:
			sum += 0.3
		}
	}
	return model.Clamp01(sum / float64(len(responses)))
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
