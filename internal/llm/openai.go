package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Option customizes the underlying API client configuration.
type Option func(*openai.ClientConfig)

// WithHTTPClient replaces the API client's transport, e.g. to route through
// a proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *openai.ClientConfig) {
		cfg.HTTPClient = c
	}
}

// OpenAIProvider implements Provider for any OpenAI-compatible endpoint.
// Setting BaseURL points it at self-hosted gateways that speak the same API.
type OpenAIProvider struct {
	client *openai.Client
	config model.ProviderConfig
	timeout time.Duration
}

// NewOpenAIProvider creates a provider from one endpoint configuration.
func NewOpenAIProvider(cfg model.ProviderConfig, timeout time.Duration, opts ...Option) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: API key is required", cfg.Name)
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(&clientConfig)
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		timeout: timeout,
	}, nil
}

// Name returns the configured provider name.
func (p *OpenAIProvider) Name() string {
	if p.config.Name != "" {
		return p.config.Name
	}
	return "openai"
}

// IsAvailable checks if the endpoint is reachable with the configured key.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider %s: availability check failed: %v\n", p.Name(), err)
		return false
	}
	return true
}

// Query sends a component identification prompt and converts the completion
// into a response. Structured component output is parsed opportunistically;
// unparseable content is kept as text for the downstream fallback extractor.
func (p *OpenAIProvider) Query(ctx context.Context, req QueryRequest) (*model.LLMResponse, error) {
	mdl := req.Model
	if mdl == "" {
		mdl = p.config.Model
	}
	if mdl == "" {
		mdl = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You identify physical components in electrical drawings and report them as structured JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider %s: empty completion", p.Name())
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	response := &model.LLMResponse{
		ID:        uuid.NewString(),
		Provider:  p.Name(),
		Content:   content,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
		Tokens: model.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		Metadata: map[string]interface{}{
			"model": mdl,
		},
	}
	response.Components = parseComponents(content, p.Name())
	response.Confidence = aggregateConfidence(response.Components)
	return response, nil
}

// wireComponent is the JSON shape providers are asked to emit.
type wireComponent struct {
	Type        string                 `json:"type"`
	X           float64                `json:"x"`
	Y           float64                `json:"y"`
	Width       *float64               `json:"width,omitempty"`
	Height      *float64               `json:"height,omitempty"`
	Rotation    *float64               `json:"rotation,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Confidence  float64                `json:"confidence"`
	Description string                 `json:"description,omitempty"`
}

// parseComponents extracts a structured component array from completion text.
// Providers often wrap JSON in code fences or prose; the first top-level
// array found is used.
func parseComponents(content, provider string) []model.ComponentIdentification {
	raw := extractJSONArray(content)
	if raw == "" {
		return nil
	}
	var wire []wireComponent
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil
	}

	out := make([]model.ComponentIdentification, 0, len(wire))
	for _, w := range wire {
		props := w.Properties
		if w.Description != "" {
			if props == nil {
				props = map[string]interface{}{}
			}
			props["description"] = w.Description
		}
		out = append(out, model.ComponentIdentification{
			ID:       uuid.NewString(),
			Provider: provider,
			Type:     strings.ToLower(strings.TrimSpace(w.Type)),
			Location: model.Location{
				X:        w.X,
				Y:        w.Y,
				Width:    w.Width,
				Height:   w.Height,
				Rotation: w.Rotation,
			},
			Properties: props,
			Confidence: model.Clamp01(w.Confidence),
			Extraction: model.ExtractionMeta{Method: model.ExtractionStructured},
		})
	}
	return out
}

// extractJSONArray finds the first balanced top-level JSON array in text.
func extractJSONArray(text string) string {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// aggregateConfidence derives a response-level confidence from its parsed
// components. Responses with no structured components report zero and rely
// on the fallback extractor's default.
func aggregateConfidence(components []model.ComponentIdentification) float64 {
	if len(components) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range components {
		sum += c.Confidence
	}
	return sum / float64(len(components))
}
