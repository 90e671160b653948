package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/worker"
)

// Collector fans one drawing prompt out to every configured provider and
// gathers the responses for aggregation. Provider failures are collected as
// warnings; the set succeeds as long as at least one provider answers.
type Collector struct {
	providers []Provider
	limiter   *worker.Limiter
}

// NewCollector creates a collector over the given providers.
func NewCollector(providers []Provider, limiter *worker.Limiter) *Collector {
	return &Collector{providers: providers, limiter: limiter}
}

// CollectResult carries the gathered responses plus per-provider failures.
type CollectResult struct {
	Responses []model.LLMResponse
	Failures  []string
}

// Collect queries all providers concurrently under the rate limiter.
func (c *Collector) Collect(ctx context.Context, drawing string) (*CollectResult, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	prompt := BuildPrompt(drawing)

	type outcome struct {
		response *model.LLMResponse
		provider string
		err      error
	}

	results := make(chan outcome, len(c.providers))
	var wg sync.WaitGroup
	for _, p := range c.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx, p.Name()); err != nil {
					results <- outcome{provider: p.Name(), err: err}
					return
				}
			}
			resp, err := p.Query(ctx, QueryRequest{Prompt: prompt})
			results <- outcome{response: resp, provider: p.Name(), err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	var out CollectResult
	for o := range results {
		if o.err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("%s: %v", o.provider, o.err))
			continue
		}
		out.Responses = append(out.Responses, *o.response)
	}
	if len(out.Responses) == 0 {
		return nil, fmt.Errorf("all providers failed: %v", out.Failures)
	}
	return &out, nil
}
