package model

import "time"

// LLMResponse is one provider's raw answer for an artifact. Responses are
// treated as immutable snapshots: the engine never mutates them, it only
// derives consensus values from them.
type LLMResponse struct {
	ID         string                 `json:"id"`
	Provider   string                 `json:"provider"`              // provider identifier (e.g., "openai:gpt-4o")
	Content    string                 `json:"content"`               // free-text description of the artifact
	Confidence float64                `json:"confidence"`            // self-reported, nominally [0,1]; not trusted
	Latency    time.Duration          `json:"latency_ns"`            // time the provider took to answer
	Tokens     TokenUsage             `json:"tokens"`                // token accounting
	Timestamp  time.Time              `json:"timestamp"`             // when the response arrived
	Components []ComponentIdentification `json:"components,omitempty"` // structured identifications, may be absent
	Metadata   map[string]interface{} `json:"metadata,omitempty"`    // arbitrary provider metadata
}

// TokenUsage tracks token consumption for a single response.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ClampedConfidence returns the self-reported confidence forced into [0,1].
// Providers occasionally report negative or >1 values; those are clamped
// rather than rejected so one bad provider cannot poison the statistics.
func (r LLMResponse) ClampedConfidence() float64 {
	return Clamp01(r.Confidence)
}

// HasComponents reports whether the response carries structured component data.
func (r LLMResponse) HasComponents() bool {
	return len(r.Components) > 0
}
