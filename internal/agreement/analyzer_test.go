package agreement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jmjcoke/quorum/internal/model"
)

func testConfig() model.AgreementConfig {
	return model.AgreementConfig{
		DisagreementThreshold: 0.4,
		OutlierSensitivity:    0.5,
		SimilarityThreshold:   0.6,
	}
}

func resp(provider, content string, confidence float64) model.LLMResponse {
	return model.LLMResponse{
		Provider:   provider,
		Content:    content,
		Confidence: confidence,
		Latency:    150 * time.Millisecond,
		Tokens:     model.TokenUsage{Total: 120},
	}
}

func TestMeasureEmpty(t *testing.T) {
	a := NewAnalyzer(testConfig())
	m := a.Measure(nil)
	assert.Equal(t, model.AgreementMeasures{}, m)
}

func TestMeasureSingleResponse(t *testing.T) {
	a := NewAnalyzer(testConfig())
	m := a.Measure([]model.LLMResponse{
		resp("openai", "The board has a resistor R1 at the top edge.", 0.9),
	})

	assert.Equal(t, 1.0, m.SemanticSimilarity)
	assert.Equal(t, 1.0, m.StructuralSimilarity)
	assert.Equal(t, 1.0, m.Correlation.Pearson)
	assert.Equal(t, 1.0, m.Correlation.Spearman)
	assert.Equal(t, 1.0, m.Correlation.Kendall)
	assert.Zero(t, m.Variance)
	assert.Zero(t, m.Entropy)
	assert.Equal(t, 1, m.SampleCount)
	assert.Zero(t, m.OutlierCount)
}

func TestMeasureIdenticalResponses(t *testing.T) {
	a := NewAnalyzer(testConfig())
	content := "Resistor R1 at 100,200 with value 4.7k ohm. Capacitor C3 near the connector J2."
	responses := []model.LLMResponse{
		resp("openai", content, 0.85),
		resp("anthropic", content, 0.85),
		resp("google", content, 0.85),
	}

	m := a.Measure(responses)

	assert.InDelta(t, 1.0, m.SemanticSimilarity, 0.01)
	assert.InDelta(t, 1.0, m.StructuralSimilarity, 0.01)
	assert.Zero(t, m.Variance)
	assert.Zero(t, m.Entropy)
	assert.Equal(t, 3, m.SampleCount)
	assert.Zero(t, m.OutlierCount)
}

func TestMeasureDivergentResponses(t *testing.T) {
	a := NewAnalyzer(testConfig())
	agreeing := []model.LLMResponse{
		resp("openai", "Resistor R1 and capacitor C2 on the power rail.", 0.9),
		resp("anthropic", "A resistor R1 next to capacitor C2 by the power rail.", 0.88),
	}
	divergent := []model.LLMResponse{
		resp("openai", "Resistor R1 and capacitor C2 on the power rail.", 0.95),
		resp("anthropic", "The schematic is illegible, no components identified.", 0.2),
	}

	high := a.Measure(agreeing)
	low := a.Measure(divergent)

	assert.Greater(t, high.SemanticSimilarity, low.SemanticSimilarity)
	assert.Less(t, high.Variance, low.Variance)
}

func TestMeasureVarianceAndEntropyBounds(t *testing.T) {
	a := NewAnalyzer(testConfig())
	responses := []model.LLMResponse{
		resp("a", "resistor near the edge", 0.1),
		resp("b", "inductor near the edge", 0.5),
		resp("c", "capacitor near the edge", 0.95),
	}

	m := a.Measure(responses)

	// Variance of values in [0,1] never exceeds 0.25.
	assert.GreaterOrEqual(t, m.Variance, 0.0)
	assert.LessOrEqual(t, m.Variance, 0.25)
	assert.GreaterOrEqual(t, m.Entropy, 0.0)
	assert.LessOrEqual(t, m.Entropy, 1.0)
	// Three distinct confidence buckets carry nonzero entropy.
	assert.Greater(t, m.Entropy, 0.0)
}

func TestMeasureClampsConfidence(t *testing.T) {
	a := NewAnalyzer(testConfig())
	responses := []model.LLMResponse{
		resp("a", "resistor R1", 4.2),
		resp("b", "resistor R1", -3.0),
	}

	m := a.Measure(responses)

	// Clamped to 1 and 0: variance of {0,1} is 0.25.
	assert.InDelta(t, 0.25, m.Variance, 1e-9)
}

func TestCorrelationConstantFeatures(t *testing.T) {
	a := NewAnalyzer(testConfig())
	// Identical feature vectors correlate perfectly.
	responses := []model.LLMResponse{
		resp("a", "resistor R1 at the top", 0.8),
		resp("b", "resistor R1 at the top", 0.8),
	}

	m := a.Measure(responses)

	assert.InDelta(t, 1.0, m.Correlation.Spearman, 0.01)
	assert.InDelta(t, 1.0, m.Correlation.Kendall, 0.01)
	assert.GreaterOrEqual(t, m.Correlation.Pearson, -1.0)
	assert.LessOrEqual(t, m.Correlation.Pearson, 1.0)
}

func TestAnalyzeDisagreementsSingle(t *testing.T) {
	a := NewAnalyzer(testConfig())
	responses := []model.LLMResponse{resp("openai", "resistor R1", 0.9)}
	m := a.Measure(responses)

	d := a.AnalyzeDisagreements(responses, m)

	assert.False(t, d.HasSignificantDisagreement)
	assert.Zero(t, d.DisagreementScore)
	assert.Equal(t, 1.0, d.Consensus.Semantic)
	assert.Equal(t, 1.0, d.Consensus.Confidence)
	assert.Equal(t, 1.0, d.Consensus.Structural)
	assert.Empty(t, d.Outliers)
}

func TestAnalyzeDisagreementsAgreeingSet(t *testing.T) {
	a := NewAnalyzer(testConfig())
	content := "Resistor R1 at 100,200. Capacitor C3 near connector J2."
	responses := []model.LLMResponse{
		resp("openai", content, 0.85),
		resp("anthropic", content, 0.84),
		resp("google", content, 0.86),
	}
	m := a.Measure(responses)

	d := a.AnalyzeDisagreements(responses, m)

	assert.False(t, d.HasSignificantDisagreement)
	assert.Less(t, d.DisagreementScore, 0.2)
	assert.Greater(t, d.Consensus.Semantic, 0.9)
	assert.Greater(t, d.Consensus.Confidence, 0.95)
}

func TestAnalyzeDisagreementsSignificant(t *testing.T) {
	cfg := testConfig()
	cfg.DisagreementThreshold = 0.25
	a := NewAnalyzer(cfg)
	responses := []model.LLMResponse{
		resp("openai", "Resistor R1 and capacitor C2 mounted on the power rail near the regulator.", 0.95),
		resp("anthropic", "Blurry scan, unable to identify anything meaningful here.", 0.1),
		resp("google", "A mechanical bracket drawing with no electrical parts at all.", 0.4),
	}
	m := a.Measure(responses)

	d := a.AnalyzeDisagreements(responses, m)

	assert.True(t, d.HasSignificantDisagreement)
	assert.Greater(t, d.DisagreementScore, 0.25)
}

func TestAnalyzeDisagreementsThresholdBoundary(t *testing.T) {
	responses := []model.LLMResponse{
		resp("openai", "Resistor R1 on the rail.", 0.9),
		resp("anthropic", "Capacitor bank near the transformer winding.", 0.3),
	}

	loose := NewAnalyzer(model.AgreementConfig{DisagreementThreshold: 0.99, OutlierSensitivity: 0.5})
	strict := NewAnalyzer(model.AgreementConfig{DisagreementThreshold: 0.0, OutlierSensitivity: 0.5})

	m := loose.Measure(responses)
	assert.False(t, loose.AnalyzeDisagreements(responses, m).HasSignificantDisagreement)
	assert.True(t, strict.AnalyzeDisagreements(responses, m).HasSignificantDisagreement)
}

func TestOutlierDetection(t *testing.T) {
	cfg := testConfig()
	cfg.OutlierSensitivity = 0.35
	a := NewAnalyzer(cfg)
	content := "Resistor R1 at 100,200 with 4.7k ohm. Capacitor C3 near connector J2."
	responses := []model.LLMResponse{
		resp("openai", content, 0.85),
		resp("anthropic", content, 0.84),
		resp("google", "Completely unrelated text about a plumbing diagram and water valves.", 0.1),
	}
	m := a.Measure(responses)

	d := a.AnalyzeDisagreements(responses, m)

	require.Len(t, d.Outliers, 1)
	out := d.Outliers[0]
	assert.Equal(t, "google", out.Provider)
	assert.Greater(t, out.DeviationScore, 0.35)
	assert.LessOrEqual(t, out.DeviationScore, 1.0)
	assert.NotEmpty(t, out.Reasons)
	assert.Contains(t, out.Reasons, "semantic")
	assert.Equal(t, 1, m.OutlierCount)
}

func TestOutlierSensitivityDefault(t *testing.T) {
	// Zero sensitivity falls back to 0.5 instead of flagging everything.
	a := NewAnalyzer(model.AgreementConfig{DisagreementThreshold: 0.4})
	content := "Resistor R1 at the top edge of the board."
	responses := []model.LLMResponse{
		resp("openai", content, 0.8),
		resp("anthropic", content, 0.8),
	}
	m := a.Measure(responses)

	d := a.AnalyzeDisagreements(responses, m)

	assert.Empty(t, d.Outliers)
}
