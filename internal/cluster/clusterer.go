package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Clusterer turns raw responses into consensus components. It never returns
// an error: empty or malformed input yields a well-formed empty result.
type Clusterer struct {
	cfg      model.ClusteringConfig
	strategy Strategy
	fallback FallbackExtractor
}

// NewClusterer builds a clusterer for the configured algorithm with the
// default pattern-based fallback extractor.
func NewClusterer(cfg model.ClusteringConfig) *Clusterer {
	return &Clusterer{
		cfg:      cfg,
		strategy: StrategyFor(cfg.Algorithm),
		fallback: NewDesignatorExtractor(),
	}
}

// WithFallback swaps the fallback extractor. A nil extractor disables text
// fallback entirely; responses without structured data are then recorded as
// missing_data.
func (c *Clusterer) WithFallback(f FallbackExtractor) *Clusterer {
	c.fallback = f
	return c
}

// BuildConsensus extracts identifications from the responses and clusters
// them into consensus components. Context expiry aborts between phases and
// returns the best-effort partial result with a warning.
func (c *Clusterer) BuildConsensus(ctx context.Context, responses []model.LLMResponse) model.ComponentConsensusResult {
	start := time.Now()
	ids, issues := extractIdentifications(responses, c.fallback)
	return c.build(ctx, ids, issues, start)
}

// BuildFromGrouped clusters pre-extracted identifications grouped by
// provider, the alternative input form for callers that already hold
// structured data.
func (c *Clusterer) BuildFromGrouped(ctx context.Context, byProvider map[string][]model.ComponentIdentification) model.ComponentConsensusResult {
	start := time.Now()
	var ids []model.ComponentIdentification
	var issues []extractionIssue

	providers := make([]string, 0, len(byProvider))
	for p := range byProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		for _, raw := range byProvider[p] {
			cleaned, issue := sanitizeIdentification(raw, p)
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			ids = append(ids, cleaned)
		}
	}
	return c.build(ctx, ids, issues, start)
}

func (c *Clusterer) build(ctx context.Context, ids []model.ComponentIdentification, issues []extractionIssue, start time.Time) model.ComponentConsensusResult {
	result := model.ComponentConsensusResult{
		Metrics: model.ClusteringMetrics{
			TotalIdentifications: len(ids),
			MalformedCount:       len(issues),
		},
	}
	for _, issue := range issues {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: provider %s: %s", issue.kind, issue.provider, issue.detail))
	}
	if len(ids) == 0 {
		result.Metrics.Elapsed = time.Since(start)
		return result
	}

	groups := c.strategy.Cluster(ids, c.cfg)
	if budgetExceeded(ctx) {
		return c.finish(result, groups, start, true)
	}

	groups = c.refineSemantics(groups)
	return c.finish(result, groups, start, false)
}

// finish applies the outlier policy, scores clusters and assembles the
// consensus components, metrics and summary.
func (c *Clusterer) finish(result model.ComponentConsensusResult, groups []Group, start time.Time, partial bool) model.ComponentConsensusResult {
	if partial {
		result.Warnings = append(result.Warnings, "clustering_failed: processing budget exceeded, semantic refinement skipped")
	}

	kept, outliers := c.applyOutlierPolicy(groups)
	if c.cfg.MaxClusters > 0 && len(kept) > c.cfg.MaxClusters {
		// Keep the largest clusters; the rest become outliers.
		sort.SliceStable(kept, func(i, j int) bool { return len(kept[i].Members) > len(kept[j].Members) })
		for _, g := range kept[c.cfg.MaxClusters:] {
			outliers = append(outliers, g.Members...)
		}
		kept = kept[:c.cfg.MaxClusters]
		result.Warnings = append(result.Warnings, fmt.Sprintf("cluster cap reached: kept %d largest clusters", c.cfg.MaxClusters))
	}

	for _, g := range kept {
		cl := buildCluster(g.Members, c.cfg, g.Noise)
		if g.halveConfidence {
			cl.Confidence.Overall = model.Clamp01(cl.Confidence.Overall / 2)
		}
		result.Clusters = append(result.Clusters, cl)
		comp := buildConsensusComponent(cl, c.cfg)
		if g.halveConfidence {
			comp.Confidence = model.Clamp01(comp.Confidence / 2)
		}
		result.Components = append(result.Components, comp)
	}

	result.Outliers = outliers
	result.Metrics.ClusterCount = len(result.Clusters)
	result.Metrics.OutlierCount = len(outliers)
	result.Metrics.Elapsed = time.Since(start)
	result.Summary = summarize(result.Components)
	return result
}

// applyOutlierPolicy routes clusters below the minimum size according to the
// configured policy.
func (c *Clusterer) applyOutlierPolicy(groups []Group) ([]Group, []model.ComponentIdentification) {
	var kept []Group
	var outliers []model.ComponentIdentification
	var separated []model.ComponentIdentification

	for _, g := range groups {
		if len(g.Members) >= c.cfg.MinimumClusterSize && !g.Noise {
			kept = append(kept, g)
			continue
		}
		switch c.cfg.OutlierHandling {
		case model.OutlierInclude:
			kept = append(kept, g)
		case model.OutlierExclude:
			outliers = append(outliers, g.Members...)
		case model.OutlierSeparateCluster:
			separated = append(separated, g.Members...)
		default: // reduce_confidence
			g.halveConfidence = true
			kept = append(kept, g)
		}
	}
	if len(separated) > 0 {
		kept = append(kept, Group{Members: separated, Noise: true})
	}
	return kept, outliers
}

// refineSemantics splits clusters whose type consistency falls below the
// semantic threshold into subgroups of pairwise semantically similar
// members. A split that would produce an undersized subcluster is abandoned
// and the original cluster kept.
func (c *Clusterer) refineSemantics(groups []Group) []Group {
	var out []Group
	for _, g := range groups {
		if len(g.Members) < 2 {
			out = append(out, g)
			continue
		}
		metrics := semanticMetrics(g.Members)
		if metrics.TypeConsistency >= c.cfg.SemanticSimilarityThreshold {
			out = append(out, g)
			continue
		}

		subs := c.splitBySimilarity(g.Members)
		if len(subs) <= 1 {
			out = append(out, g)
			continue
		}
		viable := true
		for _, s := range subs {
			if len(s) < c.cfg.MinimumClusterSize {
				viable = false
				break
			}
		}
		if !viable {
			out = append(out, g)
			continue
		}
		for _, s := range subs {
			out = append(out, Group{Members: s, Noise: g.Noise})
		}
	}
	return out
}

// splitBySimilarity partitions members into connected groups of pairwise
// semantically similar identifications.
func (c *Clusterer) splitBySimilarity(members []model.ComponentIdentification) [][]model.ComponentIdentification {
	n := len(members)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if c.semanticallySimilar(members[i], members[j]) {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]model.ComponentIdentification)
	for i, m := range members {
		r := find(i)
		byRoot[r] = append(byRoot[r], m)
	}
	roots := make([]int, 0, len(byRoot))
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	out := make([][]model.ComponentIdentification, 0, len(roots))
	for _, r := range roots {
		out = append(out, byRoot[r])
	}
	return out
}

// semanticallySimilar requires the same type and at least the threshold
// fraction of shared-key properties matching by canonical value. Same-typed
// members with no shared keys are vacuously similar.
func (c *Clusterer) semanticallySimilar(a, b model.ComponentIdentification) bool {
	if !strings.EqualFold(a.Type, b.Type) {
		return false
	}
	shared, matching := 0, 0
	for k, va := range a.Properties {
		vb, ok := b.Properties[k]
		if !ok {
			continue
		}
		shared++
		if CanonicalKey(va) == CanonicalKey(vb) {
			matching++
		}
	}
	if shared == 0 {
		return true
	}
	return float64(matching)/float64(shared) >= c.cfg.SemanticSimilarityThreshold
}

func summarize(components []model.ConsensusComponent) model.ClusteringSummary {
	var s model.ClusteringSummary
	for _, comp := range components {
		disputed := len(comp.Disagreements) > 0
		major := false
		for _, d := range comp.Disagreements {
			if d.Severity == model.SeverityMajor || d.Severity == model.SeverityCritical {
				major = true
			}
		}
		if disputed {
			s.DisputedComponents++
		} else {
			s.AgreedComponents++
		}
		if comp.Confidence >= 0.8 {
			s.HighConfidence++
		}
		if comp.Confidence < 0.5 || major {
			s.NeedsReview++
		}
	}
	return s
}

func budgetExceeded(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
