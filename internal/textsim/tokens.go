package textsim

import (
	"regexp"
	"strings"
)

// stopWords are filtered out before any token-based comparison.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "have": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "which": true, "with": true, "will": true, "would": true,
	"there": true, "their": true, "they": true, "been": true, "being": true,
}

var (
	tokenRe       = regexp.MustCompile(`[a-z0-9]+`)
	componentRe   = regexp.MustCompile(`\b[RCLDUQJKM]\d+\b`)
	measurementRe = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(ohm|ohms|k|kohm|mohm|uf|nf|pf|mh|uh|nh|v|mv|kv|a|ma|ua|w|mw|hz|khz|mhz)\b`)
	bulletRe      = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	numberedRe    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	headerRe      = regexp.MustCompile(`(?m)^\s*(#{1,6}\s+|[A-Z][A-Z ]{3,}:)`)
	numericRe     = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	markupRe      = regexp.MustCompile("[*_`#]+")
)

// Tokenize lowercases the text, splits it into alphanumeric runs and drops
// stop words.
func Tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if stopWords[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// ComponentRefs returns the reference designators mentioned in the text
// (R1, C22, U3 and so on), preserving case.
func ComponentRefs(text string) []string {
	return componentRe.FindAllString(text, -1)
}

// Measurements returns measurement expressions (value + electrical unit).
func Measurements(text string) []string {
	return measurementRe.FindAllString(text, -1)
}

// StripMarkup removes lightweight markdown decoration from text.
func StripMarkup(text string) string {
	return strings.TrimSpace(markupRe.ReplaceAllString(text, ""))
}

// Structure captures the coarse shape of a text for structural comparison.
type Structure struct {
	Sentences  int
	Paragraphs int
	Words      int
	Patterns   map[string]bool // bullet_list, numbered_list, headers, component_refs, measurements
}

// AnalyzeStructure extracts structural features from a text.
func AnalyzeStructure(text string) Structure {
	s := Structure{Patterns: map[string]bool{}}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return s
	}

	s.Words = len(strings.Fields(trimmed))
	s.Sentences = countSentences(trimmed)
	for _, para := range strings.Split(trimmed, "\n\n") {
		if strings.TrimSpace(para) != "" {
			s.Paragraphs++
		}
	}

	if bulletRe.MatchString(text) {
		s.Patterns["bullet_list"] = true
	}
	if numberedRe.MatchString(text) {
		s.Patterns["numbered_list"] = true
	}
	if headerRe.MatchString(text) {
		s.Patterns["headers"] = true
	}
	if componentRe.MatchString(text) {
		s.Patterns["component_refs"] = true
	}
	if measurementRe.MatchString(text) {
		s.Patterns["measurements"] = true
	}
	return s
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Sentences splits text into trimmed sentences, dropping empty fragments.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NumericDensity returns numeric values per word, in [0,1].
func NumericDensity(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	d := float64(len(numericRe.FindAllString(text, -1))) / float64(words)
	if d > 1 {
		d = 1
	}
	return d
}
