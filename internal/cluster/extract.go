package cluster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jmjcoke/quorum/internal/model"
)

// FallbackExtractor derives component identifications from free text. It is
// consulted only for responses that carry no structured component data, so
// the clustering contract never depends on text-parsing heuristics.
type FallbackExtractor interface {
	Extract(content, provider string) []model.ComponentIdentification
}

// designatorTypes maps reference-designator prefixes to component types.
var designatorTypes = map[byte]string{
	'R': "resistor",
	'C': "capacitor",
	'L': "inductor",
	'D': "diode",
	'U': "ic",
	'Q': "transistor",
	'J': "connector",
	'K': "relay",
	'M': "motor",
}

var (
	designatorRe = regexp.MustCompile(`\b([RCLDUQJKM])(\d+)\b`)
	// Coordinates written near a designator: "(120, 340)", "at 120,340",
	// "x=120 y=340".
	coordParenRe = regexp.MustCompile(`\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)`)
	coordAtRe    = regexp.MustCompile(`(?i)\bat\s+(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)
	coordXYRe    = regexp.MustCompile(`(?i)x\s*=\s*(-?\d+(?:\.\d+)?)\s*,?\s*y\s*=\s*(-?\d+(?:\.\d+)?)`)
)

// fallbackConfidence is deliberately low: pattern extraction knows far less
// than a structured identification.
const fallbackConfidence = 0.5

// DesignatorExtractor is the default fallback: it scans for reference
// designators and pairs each with the nearest coordinate expression.
type DesignatorExtractor struct{}

// NewDesignatorExtractor returns the pattern-based fallback extractor.
func NewDesignatorExtractor() *DesignatorExtractor {
	return &DesignatorExtractor{}
}

// Extract scans free text for reference designators.
func (e *DesignatorExtractor) Extract(content, provider string) []model.ComponentIdentification {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	matches := designatorRe.FindAllStringSubmatchIndex(content, -1)
	var out []model.ComponentIdentification
	seen := make(map[string]bool)

	for _, m := range matches {
		ref := content[m[0]:m[1]]
		if seen[ref] {
			continue
		}
		seen[ref] = true

		typ := designatorTypes[content[m[2]]]
		x, y, found := nearestCoordinates(content, m[0])

		id := model.ComponentIdentification{
			ID:         fmt.Sprintf("%s-%s", provider, ref),
			Provider:   provider,
			Type:       typ,
			Location:   model.Location{X: x, Y: y},
			Confidence: fallbackConfidence,
			Properties: map[string]interface{}{"designator": ref},
			Extraction: model.ExtractionMeta{
				Method: model.ExtractionPattern,
				SubConfidences: map[string]float64{
					"designator": 0.9,
					"type":       0.8,
					"location":   locationSubConfidence(found),
				},
			},
		}
		out = append(out, id)
	}
	return out
}

func locationSubConfidence(found bool) float64 {
	if found {
		return 0.6
	}
	return 0.1
}

// nearestCoordinates finds the coordinate expression closest to offset in
// the text. Without one, the identification sits at the origin with a near
// zero location sub-confidence.
func nearestCoordinates(content string, offset int) (x, y float64, found bool) {
	type hit struct {
		pos  int
		x, y float64
	}
	var hits []hit
	for _, re := range []*regexp.Regexp{coordParenRe, coordAtRe, coordXYRe} {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			xv, errX := strconv.ParseFloat(content[m[2]:m[3]], 64)
			yv, errY := strconv.ParseFloat(content[m[4]:m[5]], 64)
			if errX != nil || errY != nil {
				continue
			}
			hits = append(hits, hit{pos: m[0], x: xv, y: yv})
		}
	}
	if len(hits) == 0 {
		return 0, 0, false
	}

	best := hits[0]
	bestDist := abs(best.pos - offset)
	for _, h := range hits[1:] {
		if d := abs(h.pos - offset); d < bestDist {
			bestDist = d
			best = h
		}
	}
	// Coordinates further than a few lines away are probably unrelated.
	if bestDist > 200 {
		return 0, 0, false
	}
	return best.x, best.y, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// extractionIssue records one dropped or degraded input entry.
type extractionIssue struct {
	kind     string // "malformed_data", "missing_data", "invalid_data"
	provider string
	detail   string
}

// extractIdentifications pulls structured identifications from the
// responses, falling back to pattern extraction for responses without them.
// Malformed entries are dropped and recorded, never propagated.
func extractIdentifications(responses []model.LLMResponse, fallback FallbackExtractor) ([]model.ComponentIdentification, []extractionIssue) {
	var ids []model.ComponentIdentification
	var issues []extractionIssue

	for _, r := range responses {
		if !r.HasComponents() {
			if fallback == nil {
				issues = append(issues, extractionIssue{
					kind:     "missing_data",
					provider: r.Provider,
					detail:   "response carries no structured component data",
				})
				continue
			}
			extracted := fallback.Extract(r.Content, r.Provider)
			if len(extracted) == 0 {
				issues = append(issues, extractionIssue{
					kind:     "missing_data",
					provider: r.Provider,
					detail:   "no component data in metadata or text",
				})
			}
			ids = append(ids, extracted...)
			continue
		}

		for _, c := range r.Components {
			cleaned, issue := sanitizeIdentification(c, r.Provider)
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			ids = append(ids, cleaned)
		}
	}
	return ids, issues
}

// sanitizeIdentification validates one structured entry. Invalid coordinates
// or a missing type make the entry unusable.
func sanitizeIdentification(c model.ComponentIdentification, provider string) (model.ComponentIdentification, *extractionIssue) {
	if c.Provider == "" {
		c.Provider = provider
	}
	if strings.TrimSpace(c.Type) == "" {
		return c, &extractionIssue{
			kind:     "malformed_data",
			provider: c.Provider,
			detail:   "identification without a type",
		}
	}
	if !c.Location.Valid() {
		return c, &extractionIssue{
			kind:     "invalid_data",
			provider: c.Provider,
			detail:   fmt.Sprintf("invalid coordinates for %q", c.Type),
		}
	}
	c.Confidence = model.Clamp01(c.Confidence)
	if c.ID == "" {
		c.ID = fmt.Sprintf("%s-%s-%.0f-%.0f", c.Provider, c.Type, c.Location.X, c.Location.Y)
	}
	if c.Extraction.Method == "" {
		c.Extraction.Method = model.ExtractionStructured
	}
	return c, nil
}
