package model

import "math"

// ComponentIdentification is one provider's claim that a physical component
// exists at a location. It comes either from structured response metadata or
// from the text fallback extractor (with reduced confidence).
type ComponentIdentification struct {
	ID         string                 `json:"id"`
	Provider   string                 `json:"provider"`
	Type       string                 `json:"type"` // open category, e.g. "resistor"
	Location   Location               `json:"location"`
	Confidence float64                `json:"confidence"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Extraction ExtractionMeta         `json:"extraction"`
}

// Location is a point in drawing coordinates. Width, height and rotation are
// optional: a nil pointer means the provider did not report the field, which
// is distinct from an explicit zero value.
type Location struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// HasSize reports whether both width and height were reported, regardless of
// their values. A zero-width-but-present field counts as present.
func (l Location) HasSize() bool {
	return l.Width != nil && l.Height != nil
}

// Valid reports whether the coordinates are finite and of sane magnitude.
func (l Location) Valid() bool {
	return IsFinite(l.X) && IsFinite(l.Y) &&
		math.Abs(l.X) < 1e9 && math.Abs(l.Y) < 1e9
}

// ExtractionMeta records how an identification was obtained.
type ExtractionMeta struct {
	Method         ExtractionMethod   `json:"method"`
	SubConfidences map[string]float64 `json:"sub_confidences,omitempty"`
}

// ExtractionMethod classifies the source of a component identification.
type ExtractionMethod string

const (
	ExtractionStructured ExtractionMethod = "structured" // from response metadata
	ExtractionPattern    ExtractionMethod = "pattern"    // regex fallback over free text
)

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp01 forces v into [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampCorrelation forces v into [-1,1]; NaN maps to 0.
func ClampCorrelation(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
