package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jmjcoke/quorum/internal/llm"
	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/worker"
)

var (
	collectOut     string
	collectTimeout time.Duration
	alsoAnalyze    bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <drawing-file>",
	Short: "Query all configured providers about a drawing",
	Long: `Collect sends a drawing description to every configured provider and
saves the responses as a response-set file for later analysis.

Providers are configured under llm.providers in the config file; each
entry needs a name, a model, and either an API key or a QUORUM_<NAME>_API_KEY
environment variable. Self-hosted OpenAI-compatible endpoints are reached
through base_url.

Example:
  quorum collect drawing.txt --out responses.json
  quorum collect drawing.txt --analyze --strategy majority`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectOut, "out", "responses.json", "response-set output path")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 5*time.Minute, "total collection timeout")
	collectCmd.Flags().BoolVar(&alsoAnalyze, "analyze", false, "build a consensus immediately after collecting")
	collectCmd.Flags().StringVar(&strategy, "strategy", "", "voting strategy when --analyze is set")
}

func runCollect(cmd *cobra.Command, args []string) error {
	drawingPath := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	drawing, err := os.ReadFile(drawingPath)
	if err != nil {
		return fmt.Errorf("read drawing: %w", err)
	}

	providers := llm.NewProviders(cfg.LLM)
	if len(providers) == 0 {
		return fmt.Errorf("no providers configured; add llm.providers entries to the config file")
	}
	limiter := worker.NewLimiter(cfg.LLM.RateLimit, cfg.LLM.RateBurst)

	if verbose {
		fmt.Fprintf(os.Stderr, "Collecting from %d providers\n", len(providers))
	}
	collected, err := llm.NewCollector(providers, limiter).Collect(ctx, string(drawing))
	if err != nil {
		return fmt.Errorf("collect responses: %w", err)
	}
	for _, failure := range collected.Failures {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", failure)
	}

	set := struct {
		Prompt    string              `json:"prompt"`
		Responses []model.LLMResponse `json:"responses"`
	}{
		Prompt:    drawingPath,
		Responses: collected.Responses,
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response set: %w", err)
	}
	if err := os.WriteFile(collectOut, data, 0o644); err != nil {
		return fmt.Errorf("write response set: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Collected %d responses: %s\n", len(collected.Responses), collectOut)

	if !alsoAnalyze {
		return nil
	}
	return runAnalyze(cmd, []string{collectOut})
}
