package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/util"
)

// NewProvider creates one provider client from its endpoint configuration.
// Every supported provider speaks the OpenAI chat completion API; self-hosted
// runtimes are reached through BaseURL.
func NewProvider(cfg model.ProviderConfig, timeout time.Duration, opts ...Option) (Provider, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("provider configuration missing name")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = keyFromEnv(cfg.Name)
	}
	return NewOpenAIProvider(cfg, timeout, opts...)
}

// NewProviders creates clients for every configured endpoint. Endpoints that
// fail to construct are skipped with a warning so one bad entry does not
// block collection from the rest.
func NewProviders(cfg model.LLMConfig) []Provider {
	var opts []Option
	if cfg.HTTPProxy != "" || cfg.HTTPSProxy != "" {
		opts = append(opts, WithHTTPClient(util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy)))
	}
	var providers []Provider
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc, cfg.Timeout, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping provider %s: %v\n", pc.Name, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

// keyFromEnv resolves an API key from QUORUM_<NAME>_API_KEY.
func keyFromEnv(name string) string {
	env := "QUORUM_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
	return os.Getenv(env)
}
