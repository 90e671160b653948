package rank

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jmjcoke/quorum/internal/model"
)

func testConfig() model.RankingConfig {
	return model.DefaultConfig().Ranking
}

func response(provider, content string, confidence float64) model.LLMResponse {
	return model.LLMResponse{
		ID:         provider + "-1",
		Provider:   provider,
		Content:    content,
		Confidence: confidence,
		Latency:    time.Second,
	}
}

func sampleSet() []model.LLMResponse {
	return []model.LLMResponse{
		response("openai", "Resistor R1 at 100,200 rated 4.7k ohm. Capacitor C2 at 150,210 rated 100nF. Connector J1 at 300,50. All on the power rail.", 0.9),
		response("anthropic", "The drawing shows resistor R1 near 100,200 with 4.7k ohm and capacitor C2 at 150,210 rated 100nF by the power rail.", 0.85),
		response("google", "Possibly a relay somewhere, the scan is too blurry to tell anything specific.", 0.3),
	}
}

func TestRankEmpty(t *testing.T) {
	rk := NewRanker(testConfig())
	result := rk.Rank(nil)

	assert.Empty(t, result.Ranked)
	assert.Empty(t, result.Consensus.Text)
}

func TestRankSingleResponse(t *testing.T) {
	rk := NewRanker(testConfig())
	result := rk.Rank([]model.LLMResponse{
		response("openai", "**Resistor** R1 at 100,200 rated 4.7k ohm.", 0.8),
	})

	require.Len(t, result.Ranked, 1)
	r := result.Ranked[0]
	assert.Equal(t, 1, r.Rank)
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, 1.0, r.Similarity.Aggregate)

	assert.Equal(t, "Resistor R1 at 100,200 rated 4.7k ohm.", result.Consensus.Text)
	assert.Equal(t, []string{"openai"}, result.Consensus.Sources)
	assert.Equal(t, 0.8, result.Consensus.Confidence)
}

func TestRankOrdersAgreeingAboveOutlier(t *testing.T) {
	rk := NewRanker(testConfig())
	result := rk.Rank(sampleSet())

	require.Len(t, result.Ranked, 3)
	assert.Equal(t, 3, result.Ranked[2].Rank)
	assert.Equal(t, "google", result.Ranked[2].Provider)
	for i, r := range result.Ranked {
		assert.Equal(t, i+1, r.Rank)
		assert.GreaterOrEqual(t, r.Score, result.Ranked[len(result.Ranked)-1].Score)
	}
}

func TestRankMissingIDs(t *testing.T) {
	rk := NewRanker(testConfig())
	responses := []model.LLMResponse{
		{Provider: "openai", Content: "Two resistors R1 and R2 near the power input on the left edge.", Confidence: 0.9},
		{Provider: "google", Content: "The enclosure appears empty, no components visible anywhere.", Confidence: 0.3},
	}

	result := rk.Rank(responses)

	require.Len(t, result.Ranked, 2)
	assert.NotEmpty(t, result.Ranked[0].ResponseID)
	assert.NotEmpty(t, result.Ranked[1].ResponseID)
	assert.NotEqual(t, result.Ranked[0].ResponseID, result.Ranked[1].ResponseID)
	for _, r := range result.Ranked {
		assert.Less(t, r.Similarity.Aggregate, 1.0,
			"a divergent peer must not be mistaken for self")
	}
}

func TestRankDuplicateIDs(t *testing.T) {
	rk := NewRanker(testConfig())
	a := response("openai", "Resistor R1 at 100,200 rated 4.7k ohm.", 0.9)
	b := response("google", "A blurry scan, nothing identifiable.", 0.3)
	b.ID = a.ID

	result := rk.Rank([]model.LLMResponse{a, b})

	require.Len(t, result.Ranked, 2)
	assert.NotEqual(t, result.Ranked[0].ResponseID, result.Ranked[1].ResponseID)
}

func TestRankDeterministicTieBreak(t *testing.T) {
	rk := NewRanker(testConfig())
	content := "Resistor R1 at 100,200 rated 4.7k ohm on the power rail."
	responses := []model.LLMResponse{
		response("zeta", content, 0.8),
		response("alpha", content, 0.8),
	}

	result := rk.Rank(responses)

	require.Len(t, result.Ranked, 2)
	assert.Equal(t, "alpha", result.Ranked[0].Provider)
	assert.Equal(t, "zeta", result.Ranked[1].Provider)
}

func TestRankStrategiesProduceValidScores(t *testing.T) {
	strategies := []model.RankingStrategy{
		model.RankWeightedScore,
		model.RankTournament,
		model.RankPairwise,
		model.RankConsensusDistance,
		model.RankMultiCriteria,
	}

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			cfg := testConfig()
			cfg.Strategy = s
			result := NewRanker(cfg).Rank(sampleSet())

			require.Len(t, result.Ranked, 3)
			for _, r := range result.Ranked {
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
			}
			// The blurry outlier never wins.
			assert.NotEqual(t, "google", result.Ranked[0].Provider)
		})
	}
}

func TestTournamentScoresAreWinShares(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = model.RankTournament
	result := NewRanker(cfg).Rank(sampleSet())

	// With three distinct contenders the win shares are 1, 0.5 and 0.
	scores := []float64{result.Ranked[0].Score, result.Ranked[1].Score, result.Ranked[2].Score}
	assert.Equal(t, []float64{1, 0.5, 0}, scores)
}

func TestGenerateHighestRanked(t *testing.T) {
	cfg := testConfig()
	cfg.Generation = model.GenerateHighestRanked
	result := NewRanker(cfg).Rank(sampleSet())

	top := result.Ranked[0]
	assert.Equal(t, model.GenerateHighestRanked, result.Consensus.Method)
	assert.Equal(t, []string{top.Provider}, result.Consensus.Sources)
	assert.Equal(t, top.Score, result.Consensus.Confidence)
	assert.NotEmpty(t, result.Consensus.Text)
	assert.LessOrEqual(t, len(result.Consensus.Alternatives), 3)
	for _, alt := range result.Consensus.Alternatives {
		assert.NotEqual(t, top.Provider, alt.Provider)
		assert.GreaterOrEqual(t, alt.Support, 0.0)
		assert.LessOrEqual(t, alt.Support, 1.0)
	}
}

func TestGenerateWeightedMerge(t *testing.T) {
	cfg := testConfig()
	cfg.Generation = model.GenerateWeightedMerge
	result := NewRanker(cfg).Rank(sampleSet())

	assert.Equal(t, model.GenerateWeightedMerge, result.Consensus.Method)
	assert.NotEmpty(t, result.Consensus.Text)
	assert.NotEmpty(t, result.Consensus.Sources)
	// The top response's lead sentence survives the merge.
	assert.Contains(t, result.Consensus.Text, "R1")
}

func TestGenerateTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.Generation = model.GenerateTemplate
	result := NewRanker(cfg).Rank(sampleSet())

	assert.Contains(t, result.Consensus.Text, "Consensus across 3 providers")
	assert.Contains(t, result.Consensus.Text, "Components referenced:")
	assert.Contains(t, result.Consensus.Text, "R1")
	assert.Len(t, result.Consensus.Sources, 3)
}

func TestGenerateAbstractiveDegradesToExtractive(t *testing.T) {
	extractive := testConfig()
	extractive.Generation = model.GenerateExtractive
	abstractive := testConfig()
	abstractive.Generation = model.GenerateAbstractive

	a := NewRanker(extractive).Rank(sampleSet())
	b := NewRanker(abstractive).Rank(sampleSet())

	assert.Equal(t, a.Consensus.Text, b.Consensus.Text)
	assert.Equal(t, model.GenerateExtractive, a.Consensus.Method)
	assert.Equal(t, model.GenerateAbstractive, b.Consensus.Method)
}

func TestCoherenceFindings(t *testing.T) {
	cfg := testConfig()
	cfg.AssessCoherence = true

	word := strings.Repeat("fragmentary ", 1)
	var garbled []string
	for i := 0; i < 40; i++ {
		garbled = append(garbled, word)
	}
	responses := append(sampleSet(), response("broken", strings.Join(garbled, ". ")+".", 0.5))

	result := NewRanker(cfg).Rank(responses)

	for _, f := range result.Findings {
		if f.Kind == "incoherent_response" {
			assert.Equal(t, "warning", f.Severity)
			assert.NotEmpty(t, f.Description)
		}
	}
}

func TestConsistencyFindings(t *testing.T) {
	cfg := testConfig()
	cfg.ValidateConsistency = true

	responses := []model.LLMResponse{
		response("openai", "Resistor R1 is rated 4.7k ohm on the rail.", 0.9),
		response("anthropic", "Resistor R1 is rated 10k ohm on the rail.", 0.85),
	}

	result := NewRanker(cfg).Rank(responses)

	var found bool
	for _, f := range result.Findings {
		if f.Kind == "cross_inconsistency" {
			found = true
			assert.Contains(t, f.Description, "R1")
		}
	}
	assert.True(t, found)
}

func TestConsistencyFindingsAgreeingMeasurements(t *testing.T) {
	cfg := testConfig()
	cfg.ValidateConsistency = true
	cfg.AssessCoherence = false

	responses := []model.LLMResponse{
		response("openai", "Resistor R1 is rated 4.7k ohm on the rail.", 0.9),
		response("anthropic", "Resistor R1 is rated 4.7K OHM on the rail.", 0.85),
	}

	result := NewRanker(cfg).Rank(responses)

	for _, f := range result.Findings {
		assert.NotEqual(t, "cross_inconsistency", f.Kind, fmt.Sprintf("unexpected finding: %+v", f))
	}
}

func TestQualityDimensionsBounded(t *testing.T) {
	rk := NewRanker(testConfig())
	result := rk.Rank(sampleSet())

	for _, r := range result.Ranked {
		q := r.Quality
		for name, dim := range map[string]model.QualityDimension{
			"completeness": q.Completeness,
			"specificity":  q.Specificity,
			"accuracy":     q.Accuracy,
			"coherence":    q.Coherence,
			"relevance":    q.Relevance,
			"clarity":      q.Clarity,
		} {
			assert.GreaterOrEqual(t, dim.Score, 0.0, name)
			assert.LessOrEqual(t, dim.Score, 1.0, name)
		}
		avg := q.Average()
		assert.GreaterOrEqual(t, avg, 0.0)
		assert.LessOrEqual(t, avg, 1.0)
	}
}
