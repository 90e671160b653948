package llm

import (
	"context"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Provider defines the interface for LLM providers used in live collection.
type Provider interface {
	// Name returns the provider name as it appears in responses
	Name() string

	// Query sends the prompt and returns the provider's response
	Query(ctx context.Context, req QueryRequest) (*model.LLMResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// QueryRequest contains the input for one provider query.
type QueryRequest struct {
	// Prompt describes the drawing content to analyze
	Prompt string

	// Model overrides the provider's configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// BuildPrompt constructs the default component identification prompt.
func BuildPrompt(drawing string) string {
	return `You are analyzing an electrical drawing. Identify every physical component you can find.

For each component report:
- a reference designator where one is visible (R1, C3, U2, ...)
- the component type (resistor, capacitor, ic, connector, ...)
- its approximate location as x/y coordinates in drawing units
- any readable properties (value, rating, part number)
- your confidence in the identification from 0.0 to 1.0

Respond with a JSON array of objects with fields: type, x, y, width, height, properties, confidence, description.

Drawing content:
` + drawing
}
