package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/pipeline"
	"github.com/Jmjcoke/quorum/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Analyze multiple response-set files in parallel",
	Long: `Batch analyzes many response-set files concurrently:
- Read file paths from a manifest (one per line, # comments allowed)
- Build a consensus for each set with a configurable worker count
- Write one report per input file into the output directory

Example:
  quorum batch sets.txt
  quorum batch sets.txt --concurrency 8 --output-dir ./reports
  quorum batch sets.txt --strategy weighted_majority --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: configured batch_workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./quorum-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&strategy, "strategy", "", "voting strategy for every set")
	batchCmd.Flags().StringVar(&outFormat, "format", "", "report format (json, yaml, markdown)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	batchCmd.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "result cache directory")
	batchCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 24*time.Hour, "result cache entry lifetime")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in markdown reports")
}

// batchAnalyzer adapts the CLI analysis path to the worker pool.
type batchAnalyzer struct {
	cfg *model.Config
}

func (b *batchAnalyzer) AnalyzeFile(ctx context.Context, path string) (*model.ConsensusResult, error) {
	return analyzeFile(ctx, b.cfg, path)
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

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
	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.BatchWorkers
	}
	if workers <= 0 {
		workers = 1
	}

	fmt.Fprintf(os.Stderr, "Batch analysis\n")
	fmt.Fprintf(os.Stderr, "  Manifest:   %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir: %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:    %v\n\n", batchTimeout)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(&batchAnalyzer{cfg: cfg}, workers)
	results, err := processor.ProcessManifest(ctx, manifest)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", result.Path, result.Error)
			continue
		}

		reportPath := filepath.Join(outputDir, reportName(result.Path, cfg.Output.Format))
		if err := renderer.Render(result.Consensus, cfg.Output.Format, reportPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "FAIL %s: write report: %v\n", result.Path, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "OK   %s (agreement %.2f, confidence %.2f)\n",
			result.Path, result.Consensus.AgreementLevel, result.Consensus.Confidence)
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d total, %d ok, %d failed, reports in %s\n",
		len(results), successCount, failureCount, outputDir)
	if failureCount > 0 {
		return fmt.Errorf("%d of %d sets failed", failureCount, len(results))
	}
	return nil
}

// reportName derives an output file name from the input path and format.
func reportName(inputPath, format string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	switch format {
	case "yaml":
		return base + ".yaml"
	case "markdown", "md":
		return base + ".md"
	default:
		return base + ".json"
	}
}
