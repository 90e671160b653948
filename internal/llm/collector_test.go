package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/worker"
)

type stubProvider struct {
	name string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Query(ctx context.Context, req QueryRequest) (*model.LLMResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.LLMResponse{
		ID:         s.name + "-1",
		Provider:   s.name,
		Content:    "Resistor R1 at 100,200.",
		Confidence: 0.9,
	}, nil
}

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return s.err == nil }

func TestCollectAllSucceed(t *testing.T) {
	c := NewCollector([]Provider{
		&stubProvider{name: "openai"},
		&stubProvider{name: "local"},
	}, worker.NewLimiter(100, 10))

	result, err := c.Collect(context.Background(), "power supply section")

	require.NoError(t, err)
	assert.Len(t, result.Responses, 2)
	assert.Empty(t, result.Failures)
}

func TestCollectPartialFailure(t *testing.T) {
	c := NewCollector([]Provider{
		&stubProvider{name: "openai"},
		&stubProvider{name: "flaky", err: fmt.Errorf("connection refused")},
	}, nil)

	result, err := c.Collect(context.Background(), "power supply section")

	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "openai", result.Responses[0].Provider)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "flaky: connection refused")
}

func TestCollectAllFail(t *testing.T) {
	c := NewCollector([]Provider{
		&stubProvider{name: "a", err: fmt.Errorf("boom")},
		&stubProvider{name: "b", err: fmt.Errorf("bust")},
	}, nil)

	_, err := c.Collect(context.Background(), "power supply section")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
}

func TestCollectNoProviders(t *testing.T) {
	c := NewCollector(nil, nil)

	_, err := c.Collect(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")
}
