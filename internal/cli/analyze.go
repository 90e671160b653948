package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jmjcoke/quorum/internal/cache"
	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/pipeline"
)

var (
	strategy  string
	outPath   string
	outFormat string
	noCache   bool
	cacheDir  string
	cacheTTL  time.Duration
	noFooter  bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <response-set>",
	Short: "Build a consensus from a collected response-set file",
	Long: `Analyze reconciles the provider responses in a response-set file:
- Measure cross-provider agreement and flag outliers
- Cluster component identifications spatially and semantically
- Vote on disputed types, locations and properties
- Rank response texts and generate a consensus answer
- Quantify confidence and propagate uncertainty

Example:
  quorum analyze responses.json
  quorum analyze responses.yaml --strategy majority --format markdown --out report.md
  quorum analyze responses.json --preset high_precision`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&strategy, "strategy", "", "voting strategy (majority, weighted_majority, plurality, confidence_weighted, unanimous)")
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "output path (default: stdout)")
	analyzeCmd.Flags().StringVar(&outFormat, "format", "", "output format (json, yaml, markdown)")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	analyzeCmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "result cache directory")
	analyzeCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 24*time.Hour, "result cache entry lifetime")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in markdown reports")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outFormat != "" {
		cfg.Output.Format = outFormat
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	result, err := analyzeFile(context.Background(), cfg, path)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if err := renderer.Render(result, cfg.Output.Format, outPath); err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	if outPath != "" {
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s report: %s\n", cfg.Output.Format, outPath)
		}
		renderer.RenderSummary(result)
	}
	return nil
}

// analyzeFile loads one response set and builds its consensus, consulting the
// result cache when enabled.
func analyzeFile(ctx context.Context, cfg *model.Config, path string) (*model.ConsensusResult, error) {
	var store cache.Cache
	var key string
	if !noCache {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read response set: %w", err)
		}
		store = cache.NewLayeredCache(10*time.Minute, cacheDir, cacheTTL)
		key = cache.ResultKey(raw, strategy, cfg.Preset)
		if cached, ok := cache.GetResult(store, key); ok {
			if verbose {
				fmt.Fprintf(os.Stderr, "Cache hit: %s\n", path)
			}
			return cached, nil
		}
	}

	loaded, err := pipeline.LoadResponses(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d responses from %s\n", len(loaded.Responses), path)
		for _, skipped := range loaded.Skipped {
			fmt.Fprintf(os.Stderr, "Warning: skipped %s\n", skipped)
		}
	}

	p := pipeline.NewPipeline(cfg)
	result, err := p.BuildConsensus(ctx, loaded.Responses, model.VotingStrategy(strategy))
	if err != nil {
		return nil, fmt.Errorf("build consensus: %w", err)
	}

	if store != nil {
		if err := cache.SetResult(store, key, result, cacheTTL); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "Warning: cache write failed: %v\n", err)
		}
	}
	return result, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quorum-cache"
	}
	return home + "/.quorum/cache"
}
