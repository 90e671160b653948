package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jmjcoke/quorum/internal/model"
)

func TestExtractJSONArray(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		assert.Equal(t, `[1, 2, 3]`, extractJSONArray(`[1, 2, 3]`))
	})

	t.Run("fenced array", func(t *testing.T) {
		text := "Here are the components:\n```json\n[{\"type\": \"resistor\"}]\n```\nLet me know if you need more."
		assert.Equal(t, `[{"type": "resistor"}]`, extractJSONArray(text))
	})

	t.Run("nested arrays", func(t *testing.T) {
		assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`prefix [[1, 2], [3]] suffix`))
	})

	t.Run("brackets inside strings", func(t *testing.T) {
		text := `[{"note": "see section ] 4 [ of the legend"}]`
		assert.Equal(t, text, extractJSONArray(text))
	})

	t.Run("escaped quotes inside strings", func(t *testing.T) {
		text := `[{"note": "a \"quoted\" value"}]`
		assert.Equal(t, text, extractJSONArray(text))
	})

	t.Run("no array", func(t *testing.T) {
		assert.Empty(t, extractJSONArray("no structured data in this answer"))
	})

	t.Run("unbalanced array", func(t *testing.T) {
		assert.Empty(t, extractJSONArray(`[{"type": "resistor"}`))
	})
}

func TestParseComponents(t *testing.T) {
	content := "The drawing contains:\n```json\n" + `[
		{"type": " Resistor ", "x": 100, "y": 200, "width": 10, "height": 4, "confidence": 0.9, "description": "pull-up near U1", "properties": {"value": "4.7k"}},
		{"type": "capacitor", "x": 150, "y": 210, "confidence": 1.4}
	]` + "\n```"

	components := parseComponents(content, "openai")

	require.Len(t, components, 2)

	r := components[0]
	assert.Equal(t, "resistor", r.Type)
	assert.Equal(t, "openai", r.Provider)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 100.0, r.Location.X)
	assert.Equal(t, 200.0, r.Location.Y)
	require.NotNil(t, r.Location.Width)
	assert.Equal(t, 10.0, *r.Location.Width)
	assert.Equal(t, 0.9, r.Confidence)
	assert.Equal(t, "4.7k", r.Properties["value"])
	assert.Equal(t, "pull-up near U1", r.Properties["description"])
	assert.Equal(t, model.ExtractionStructured, r.Extraction.Method)

	c := components[1]
	assert.Nil(t, c.Location.Width)
	assert.Nil(t, c.Location.Height)
	assert.Nil(t, c.Properties)
	// Out-of-range self-reported confidence is clamped.
	assert.Equal(t, 1.0, c.Confidence)
}

func TestParseComponentsNoArray(t *testing.T) {
	assert.Nil(t, parseComponents("free prose with no JSON at all", "openai"))
	assert.Nil(t, parseComponents(`[{"type": broken]`, "openai"))
}

func TestAggregateConfidence(t *testing.T) {
	assert.Zero(t, aggregateConfidence(nil))

	components := []model.ComponentIdentification{
		{Confidence: 0.8},
		{Confidence: 0.6},
	}
	assert.InDelta(t, 0.7, aggregateConfidence(components), 1e-9)
}

func TestNewOpenAIProviderValidation(t *testing.T) {
	_, err := NewOpenAIProvider(model.ProviderConfig{Name: "openai"}, time.Second)
	require.Error(t, err)

	p, err := NewOpenAIProvider(model.ProviderConfig{Name: "local", APIKey: "sk-test"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
}

func TestKeyFromEnv(t *testing.T) {
	t.Setenv("QUORUM_MY_LOCAL_API_KEY", "sk-env")
	assert.Equal(t, "sk-env", keyFromEnv("my-local"))
	assert.Empty(t, keyFromEnv("unset-provider"))
}

func TestNewProviderRequiresName(t *testing.T) {
	_, err := NewProvider(model.ProviderConfig{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("drawing shows a power supply section")
	assert.Contains(t, prompt, "drawing shows a power supply section")
	assert.Contains(t, prompt, "JSON")
}
