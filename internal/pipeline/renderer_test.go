package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jmjcoke/quorum/internal/model"
)

func sampleResult() *model.ConsensusResult {
	return &model.ConsensusResult{
		ID:             "test-result",
		Content:        "Resistor R1 at 100,200 rated 4.7k ohm.",
		Strategy:       model.VoteMajority,
		AgreementLevel: 0.9,
		Confidence:     0.82,
		Providers:      []string{"anthropic", "openai"},
		ConfidenceDetail: model.AdvancedConfidenceResult{
			OverallConfidence: 0.8,
			Level:             model.LevelHigh,
		},
		Components: model.ComponentConsensusResult{
			Components: []model.ConsensusComponent{{
				Type:       model.ConsensusType{Primary: "resistor"},
				Location:   model.ConsensusLocation{X: 100, Y: 200},
				Confidence: 0.9,
			}},
		},
		Ranking: model.ConsensusRankingResult{
			Ranked: []model.RankedResponse{
				{Provider: "openai", Rank: 1, Score: 0.9},
				{Provider: "anthropic", Rank: 2, Score: 0.8},
			},
		},
		Warnings: []string{"sample warning"},
	}
}

func TestRenderJSONFile(t *testing.T) {
	r := NewRenderer(true)
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, r.RenderJSON(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded model.ConsensusResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "test-result", decoded.ID)
	assert.Equal(t, model.VoteMajority, decoded.Strategy)
}

func TestRenderYAMLFile(t *testing.T) {
	r := NewRenderer(true)
	path := filepath.Join(t.TempDir(), "out.yaml")

	require.NoError(t, r.Render(sampleResult(), "yaml", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test-result")
}

func TestRenderMarkdownSections(t *testing.T) {
	r := NewRenderer(true)
	md := r.markdown(sampleResult())

	assert.Contains(t, md, "# Consensus Report")
	assert.Contains(t, md, "## Consensus")
	assert.Contains(t, md, "Resistor R1 at 100,200 rated 4.7k ohm.")
	assert.Contains(t, md, "## Agreement")
	assert.Contains(t, md, "## Components")
	assert.Contains(t, md, "| resistor | (100.0, 200.0) | 0.90 | 0 |")
	assert.Contains(t, md, "## Response Ranking")
	assert.Contains(t, md, "| 1 | openai | 0.900 |")
	assert.Contains(t, md, "## Warnings")
	assert.Contains(t, md, "sample warning")
	assert.Contains(t, md, "Generated by quorum")
}

func TestRenderMarkdownNoFooter(t *testing.T) {
	r := NewRenderer(false)
	md := r.markdown(sampleResult())

	assert.NotContains(t, md, "Generated by quorum")
}

func TestRenderMarkdownDisagreementSection(t *testing.T) {
	r := NewRenderer(false)
	result := sampleResult()
	result.Disagreement = model.DisagreementAnalysis{
		HasSignificantDisagreement: true,
		DisagreementScore:          0.55,
		Outliers: []model.ResponseOutlier{
			{Provider: "google", DeviationScore: 0.7, Reasons: []string{"semantic"}},
		},
	}

	md := r.markdown(result)

	assert.Contains(t, md, "## Disagreement")
	assert.Contains(t, md, "score 0.55")
	assert.Contains(t, md, "**google**")

	// Absent disagreement omits the section entirely.
	assert.False(t, strings.Contains(r.markdown(sampleResult()), "## Disagreement"))
}

func TestRenderUnknownFormat(t *testing.T) {
	r := NewRenderer(true)
	err := r.Render(sampleResult(), "xml", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}
