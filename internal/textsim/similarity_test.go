package textsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Jmjcoke/quorum/internal/model"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The resistor R1 is near the power supply.")
	assert.Contains(t, tokens, "resistor")
	assert.Contains(t, tokens, "r1")
	assert.NotContains(t, tokens, "the", "stop words are dropped")
	assert.NotContains(t, tokens, "is")
}

func TestComponentRefs(t *testing.T) {
	refs := ComponentRefs("R1 and C22 connect to U3; pin 4 goes to ground")
	assert.Equal(t, []string{"R1", "C22", "U3"}, refs)

	assert.Empty(t, ComponentRefs("no designators here"))
}

func TestMeasurements(t *testing.T) {
	ms := Measurements("a 10k resistor and a 4.7uF capacitor rated 25V")
	assert.Len(t, ms, 3)
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "three resistors", StripMarkup("**three** `resistors`"))
	assert.Equal(t, "Heading", StripMarkup("## Heading"))
}

func TestAnalyzeStructure(t *testing.T) {
	text := "Components found:\n\n- R1 resistor 10k\n- C2 capacitor 100nf\n\nAll near the top edge."
	s := AnalyzeStructure(text)

	assert.True(t, s.Patterns["bullet_list"])
	assert.True(t, s.Patterns["component_refs"])
	assert.True(t, s.Patterns["measurements"])
	assert.Equal(t, 3, s.Paragraphs)
	assert.Positive(t, s.Words)
}

func TestEngine_Semantic(t *testing.T) {
	a := "Three resistors R1 R2 R3 near the power input, each 10k"
	b := "Found resistors R1 R2 R3 beside the power input rated 10k"
	c := "The enclosure is made of brushed aluminum with four screws"
	engine := NewEngine([]string{a, b, c})

	same := engine.Semantic(a, a)
	close := engine.Semantic(a, b)
	far := engine.Semantic(a, c)

	assert.InDelta(t, 1.0, same, 0.01, "identical text scores ~1")
	assert.Greater(t, close, far, "related text outranks unrelated text")
	assert.GreaterOrEqual(t, close, 0.0)
	assert.LessOrEqual(t, close, 1.0)
}

func TestEngine_SemanticNoSynonymTerms(t *testing.T) {
	// Neither text mentions any synonym-group term; the overlap term must
	// drop out instead of capping the score at its cosine weight.
	a := "The bracket is mounted with four screws near the hinge."
	engine := NewEngine([]string{a, a, a})

	assert.InDelta(t, 1.0, engine.Semantic(a, a), 0.01,
		"identical non-electrical text still scores ~1")
}

func TestEngine_SemanticSynonyms(t *testing.T) {
	a := "a resistor near the connector"
	b := "a res close to the jack"
	c := "a flux capacitor on the mezzanine"
	engine := NewEngine([]string{a, b, c})

	// "resistor"/"res" and "connector"/"jack" share synonym groups.
	assert.Greater(t, engine.Semantic(a, b), engine.Semantic(a, c))
}

func TestEngine_Lexical(t *testing.T) {
	engine := NewEngine(nil)

	assert.InDelta(t, 1.0, engine.Lexical("resistor capacitor diode", "resistor capacitor diode"), 0.01)
	assert.Equal(t, 0.0, engine.Lexical("resistor capacitor", "enclosure aluminum"))

	partial := engine.Lexical("resistor capacitor diode", "resistor capacitor relay")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}

func TestEngine_Structural(t *testing.T) {
	engine := NewEngine(nil)

	listA := "- R1 resistor\n- C2 capacitor\n- D3 diode"
	listB := "- U1 ic\n- Q2 transistor\n- J3 connector"
	prose := "The drawing shows a power supply section in the lower left corner with several passive components arranged around a regulator and its heatsink, plus a long harness."

	assert.Greater(t, engine.Structural(listA, listB), engine.Structural(listA, prose),
		"two bullet lists are structurally closer than a list and prose")
}

func TestEngine_Contextual(t *testing.T) {
	engine := NewEngine(nil)

	a := model.LLMResponse{Provider: "openai", Confidence: 0.9, Latency: time.Second, Tokens: model.TokenUsage{Total: 500}}
	b := model.LLMResponse{Provider: "openai", Confidence: 0.9, Latency: time.Second, Tokens: model.TokenUsage{Total: 500}}
	c := model.LLMResponse{Provider: "other", Confidence: 0.1, Latency: 30 * time.Second, Tokens: model.TokenUsage{Total: 50}}

	assert.Greater(t, engine.Contextual(a, b), engine.Contextual(a, c))
}

func TestEngine_SymmetryAndMemo(t *testing.T) {
	a := "resistor R1 at the top"
	b := "capacitor C2 at the bottom"
	engine := NewEngine([]string{a, b})

	first := engine.Semantic(a, b)
	swapped := engine.Semantic(b, a)
	again := engine.Semantic(a, b)

	assert.Equal(t, first, swapped, "similarity is symmetric")
	assert.Equal(t, first, again, "memoized value is stable")
}
