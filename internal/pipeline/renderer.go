package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Renderer writes consensus results to files and the terminal.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// Render writes the result to path in the given format ("json", "yaml" or
// "markdown"). An empty path writes to stdout.
func (r *Renderer) Render(result *model.ConsensusResult, format, path string) error {
	var data []byte
	var err error
	switch format {
	case "", "json":
		data, err = json.MarshalIndent(result, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(result)
	case "markdown", "md":
		data = []byte(r.markdown(result))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if path == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderJSON writes the result as indented JSON.
func (r *Renderer) RenderJSON(result *model.ConsensusResult, path string) error {
	return r.Render(result, "json", path)
}

// RenderMarkdown writes the result as a human-readable markdown report.
func (r *Renderer) RenderMarkdown(result *model.ConsensusResult, path string) error {
	return r.Render(result, "markdown", path)
}

// RenderSummary prints a short digest to stdout.
func (r *Renderer) RenderSummary(result *model.ConsensusResult) {
	fmt.Printf("Consensus %s\n", result.ID)
	fmt.Printf("  Strategy:    %s\n", result.Strategy)
	fmt.Printf("  Agreement:   %.2f\n", result.AgreementLevel)
	fmt.Printf("  Confidence:  %.2f (%s)\n", result.Confidence, result.ConfidenceDetail.Level)
	fmt.Printf("  Providers:   %s\n", strings.Join(result.Providers, ", "))
	fmt.Printf("  Components:  %d agreed, %d disputed, %d need review\n",
		result.Components.Summary.AgreedComponents,
		result.Components.Summary.DisputedComponents,
		result.Components.Summary.NeedsReview)
	if len(result.Warnings) > 0 {
		fmt.Printf("  Warnings:    %d\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("    - %s\n", w)
		}
	}
}

func (r *Renderer) markdown(result *model.ConsensusResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Consensus Report\n\n")
	fmt.Fprintf(&b, "- **ID**: %s\n", result.ID)
	fmt.Fprintf(&b, "- **Strategy**: %s\n", result.Strategy)
	fmt.Fprintf(&b, "- **Agreement level**: %.2f\n", result.AgreementLevel)
	fmt.Fprintf(&b, "- **Confidence**: %.2f (%s)\n", result.Confidence, result.ConfidenceDetail.Level)
	fmt.Fprintf(&b, "- **Providers**: %s\n", strings.Join(result.Providers, ", "))
	fmt.Fprintf(&b, "- **Elapsed**: %s\n\n", result.Elapsed)

	fmt.Fprintf(&b, "## Consensus\n\n%s\n\n", result.Content)

	fmt.Fprintf(&b, "## Agreement\n\n")
	fmt.Fprintf(&b, "| Measure | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Semantic similarity | %.3f |\n", result.Agreement.SemanticSimilarity)
	fmt.Fprintf(&b, "| Structural similarity | %.3f |\n", result.Agreement.StructuralSimilarity)
	fmt.Fprintf(&b, "| Confidence variance | %.3f |\n", result.Agreement.Variance)
	fmt.Fprintf(&b, "| Entropy | %.3f |\n", result.Agreement.Entropy)
	fmt.Fprintf(&b, "| Outliers | %d |\n\n", result.Agreement.OutlierCount)

	if result.Disagreement.HasSignificantDisagreement {
		fmt.Fprintf(&b, "## Disagreement\n\n")
		fmt.Fprintf(&b, "Significant disagreement detected (score %.2f).\n\n", result.Disagreement.DisagreementScore)
		for _, o := range result.Disagreement.Outliers {
			fmt.Fprintf(&b, "- Outlier **%s** (deviation %.2f): %s\n", o.Provider, o.DeviationScore, strings.Join(o.Reasons, ", "))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(result.Components.Components) > 0 {
		fmt.Fprintf(&b, "## Components\n\n")
		fmt.Fprintf(&b, "| Type | Location | Confidence | Disagreements |\n|---|---|---|---|\n")
		for _, c := range result.Components.Components {
			fmt.Fprintf(&b, "| %s | (%.1f, %.1f) | %.2f | %d |\n",
				c.Type.Primary, c.Location.X, c.Location.Y, c.Confidence, len(c.Disagreements))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(result.Ranking.Ranked) > 0 {
		fmt.Fprintf(&b, "## Response Ranking\n\n")
		fmt.Fprintf(&b, "| Rank | Provider | Score |\n|---|---|---|\n")
		for _, rr := range result.Ranking.Ranked {
			fmt.Fprintf(&b, "| %d | %s | %.3f |\n", rr.Rank, rr.Provider, rr.Score)
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		fmt.Fprintf(&b, "\n")
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "---\n\nGenerated by quorum. Scores reflect cross-provider agreement, not ground truth.\n")
	}

	return b.String()
}
