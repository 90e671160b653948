package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Analyzer defines the interface for analyzing one response-set file.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*model.ConsensusResult, error)
}

// AnalyzeJob analyzes a single response-set file.
type AnalyzeJob struct {
	Path     string
	Analyzer Analyzer
}

// Execute runs the analysis job.
func (j *AnalyzeJob) Execute(ctx context.Context) *AnalyzeResult {
	result, err := j.Analyzer.AnalyzeFile(ctx, j.Path)
	return &AnalyzeResult{
		Path:      j.Path,
		Consensus: result,
		Error:     err,
	}
}

// AnalyzeResult is the outcome of one batch analysis job.
type AnalyzeResult struct {
	Path      string
	Consensus *model.ConsensusResult
	Error     error
}

// BatchProcessor analyzes multiple response-set files concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessFiles analyzes the given response-set files concurrently. Results
// arrive in completion order, one per input file.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*AnalyzeResult {
	if len(paths) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&AnalyzeJob{Path: path, Analyzer: b.analyzer})
	}

	return pool.Wait()
}

// ProcessManifest reads file paths from a manifest and analyzes them
// concurrently.
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string) ([]*AnalyzeResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ReadManifest reads response-set file paths from a manifest, one per line.
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadManifest(manifestPath string) ([]string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return paths, nil
}
