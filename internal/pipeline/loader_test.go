package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResponsesJSON(t *testing.T) {
	path := writeFile(t, "set.json", `{
		"prompt": "identify components",
		"responses": [
			{"provider": "openai", "content": "Resistor R1 at 100,200.", "confidence": 0.9},
			{"provider": "anthropic", "content": "Resistor R1 near 100,200.", "confidence": 0.85}
		]
	}`)

	result, err := LoadResponses(path)

	require.NoError(t, err)
	assert.Equal(t, "identify components", result.Prompt)
	assert.Equal(t, path, result.Path)
	require.Len(t, result.Responses, 2)
	assert.Empty(t, result.Skipped)
	for _, r := range result.Responses {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.Timestamp.IsZero())
	}
}

func TestLoadResponsesBareArray(t *testing.T) {
	path := writeFile(t, "set.json", `[
		{"provider": "openai", "content": "Resistor R1.", "confidence": 0.9}
	]`)

	result, err := LoadResponses(path)

	require.NoError(t, err)
	assert.Empty(t, result.Prompt)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "openai", result.Responses[0].Provider)
}

func TestLoadResponsesYAML(t *testing.T) {
	path := writeFile(t, "set.yaml", `prompt: identify components
responses:
  - provider: openai
    content: Resistor R1 at 100,200.
    confidence: 0.9
  - provider: anthropic
    content: Resistor R1 near 100,200.
    confidence: 0.85
`)

	result, err := LoadResponses(path)

	require.NoError(t, err)
	require.Len(t, result.Responses, 2)
	assert.Equal(t, "anthropic", result.Responses[1].Provider)
}

func TestLoadResponsesSkipsMissingProvider(t *testing.T) {
	path := writeFile(t, "set.json", `{
		"responses": [
			{"provider": "openai", "content": "Resistor R1.", "confidence": 0.9},
			{"provider": "  ", "content": "orphaned", "confidence": 0.5}
		]
	}`)

	result, err := LoadResponses(path)

	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "entry 1: missing provider", result.Skipped[0])
}

func TestLoadResponsesAllUnusable(t *testing.T) {
	path := writeFile(t, "set.json", `{"responses": [{"content": "no provider"}]}`)

	_, err := LoadResponses(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains no usable responses")
}

func TestLoadResponsesMalformed(t *testing.T) {
	path := writeFile(t, "set.json", `{not json`)

	_, err := LoadResponses(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json response set")
}

func TestLoadResponsesMissingFile(t *testing.T) {
	_, err := LoadResponses(filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read response set")
}

func TestLoadResponsesPreservesExistingIDs(t *testing.T) {
	path := writeFile(t, "set.json", `{
		"responses": [
			{"id": "keep-me", "provider": "openai", "content": "Resistor R1.", "confidence": 0.9}
		]
	}`)

	result, err := LoadResponses(path)

	require.NoError(t, err)
	assert.Equal(t, "keep-me", result.Responses[0].ID)
}
