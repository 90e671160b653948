// Package agreement computes pairwise statistical agreement over a set of
// provider responses. It never returns errors: malformed input degrades the
// measures instead of failing the run.
package agreement

import (
	"math"
	"sort"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/textsim"
)

// Analyzer measures how much a response set agrees.
type Analyzer struct {
	cfg model.AgreementConfig
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(cfg model.AgreementConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Measure computes AgreementMeasures for the response set.
// Zero responses yield all-zero measures; a single response is degenerate
// perfect agreement.
func (a *Analyzer) Measure(responses []model.LLMResponse) model.AgreementMeasures {
	n := len(responses)
	switch n {
	case 0:
		return model.AgreementMeasures{}
	case 1:
		return model.AgreementMeasures{
			SemanticSimilarity:   1,
			StructuralSimilarity: 1,
			Correlation:          model.CorrelationSet{Pearson: 1, Spearman: 1, Kendall: 1},
			Variance:             0,
			Entropy:              0,
			SampleCount:          1,
		}
	}

	engine := textsim.NewEngine(texts(responses))

	var semSum, strSum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			semSum += engine.Semantic(responses[i].Content, responses[j].Content)
			strSum += engine.Structural(responses[i].Content, responses[j].Content)
			pairs++
		}
	}

	confidences := clampedConfidences(responses)
	corr := a.pairwiseCorrelation(responses)

	measures := model.AgreementMeasures{
		SemanticSimilarity:   model.Clamp01(semSum / float64(pairs)),
		StructuralSimilarity: model.Clamp01(strSum / float64(pairs)),
		Correlation:          corr,
		Variance:             variance(confidences),
		Entropy:              normalizedEntropy(confidences),
		SampleCount:          n,
	}
	measures.OutlierCount = len(a.findOutliers(responses, engine, measures))
	return measures
}

// AnalyzeDisagreements derives the disagreement view from the measures.
func (a *Analyzer) AnalyzeDisagreements(responses []model.LLMResponse, measures model.AgreementMeasures) model.DisagreementAnalysis {
	if len(responses) <= 1 {
		return model.DisagreementAnalysis{
			Consensus: model.DimensionConsensus{Semantic: 1, Confidence: 1, Structural: 1},
		}
	}

	// Confidence consensus: variance of values in [0,1] tops out at 0.25, so
	// scale it to a [0,1] consensus figure.
	confConsensus := model.Clamp01(1 - measures.Variance*4)

	consensus := model.DimensionConsensus{
		Semantic:   measures.SemanticSimilarity,
		Confidence: confConsensus,
		Structural: measures.StructuralSimilarity,
	}

	score := model.Clamp01(1 - (consensus.Semantic+consensus.Confidence+consensus.Structural)/3)

	engine := textsim.NewEngine(texts(responses))
	return model.DisagreementAnalysis{
		HasSignificantDisagreement: score > a.cfg.DisagreementThreshold,
		DisagreementScore:          score,
		Consensus:                  consensus,
		Outliers:                   a.findOutliers(responses, engine, measures),
	}
}

// findOutliers flags responses whose combined semantic and confidence
// deviation exceeds the configured sensitivity.
func (a *Analyzer) findOutliers(responses []model.LLMResponse, engine *textsim.Engine, measures model.AgreementMeasures) []model.ResponseOutlier {
	n := len(responses)
	if n < 2 {
		return nil
	}

	confidences := clampedConfidences(responses)
	meanConf := mean(confidences)

	sensitivity := a.cfg.OutlierSensitivity
	if sensitivity <= 0 {
		sensitivity = 0.5
	}

	var outliers []model.ResponseOutlier
	for i, r := range responses {
		var simSum float64
		for j, other := range responses {
			if i == j {
				continue
			}
			simSum += engine.Semantic(r.Content, other.Content)
		}
		avgSim := simSum / float64(n-1)

		semDev := 1 - avgSim
		confDev := math.Abs(confidences[i] - meanConf)
		combined := 0.6*semDev + 0.4*confDev
		if combined <= sensitivity {
			continue
		}

		var reasons []string
		if semDev > sensitivity {
			reasons = append(reasons, "semantic")
		}
		if confDev > sensitivity/2 {
			reasons = append(reasons, "confidence")
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "combined")
		}
		outliers = append(outliers, model.ResponseOutlier{
			Provider:       r.Provider,
			DeviationScore: model.Clamp01(combined),
			Reasons:        reasons,
		})
	}
	return outliers
}

// pairwiseCorrelation correlates per-response feature vectors for every pair
// and averages the coefficients. Features: confidence, latency, token count,
// word count, component count.
func (a *Analyzer) pairwiseCorrelation(responses []model.LLMResponse) model.CorrelationSet {
	n := len(responses)
	features := make([][]float64, n)
	for i, r := range responses {
		features[i] = featureVector(r)
	}

	var p, s, k float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p += pearson(features[i], features[j])
			s += spearman(features[i], features[j])
			k += kendall(features[i], features[j])
			pairs++
		}
	}
	if pairs == 0 {
		return model.CorrelationSet{}
	}
	return model.CorrelationSet{
		Pearson:  model.ClampCorrelation(p / float64(pairs)),
		Spearman: model.ClampCorrelation(s / float64(pairs)),
		Kendall:  model.ClampCorrelation(k / float64(pairs)),
	}
}

func featureVector(r model.LLMResponse) []float64 {
	return []float64{
		r.ClampedConfidence(),
		sanitize(float64(r.Latency) / 1e9),
		sanitize(float64(r.Tokens.Total)),
		sanitize(float64(len(textsim.Tokenize(r.Content)))),
		sanitize(float64(len(r.Components))),
	}
}

func texts(responses []model.LLMResponse) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.Content
	}
	return out
}

func clampedConfidences(responses []model.LLMResponse) []float64 {
	out := make([]float64, len(responses))
	for i, r := range responses {
		out[i] = r.ClampedConfidence()
	}
	return out
}

func sanitize(v float64) float64 {
	if !model.IsFinite(v) {
		return 0
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// normalizedEntropy buckets confidences into tenths and returns Shannon
// entropy normalized by the maximum for the bucket count, in [0,1].
func normalizedEntropy(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	const buckets = 10
	counts := make([]int, buckets)
	for _, v := range values {
		b := int(v * buckets)
		if b >= buckets {
			b = buckets - 1
		}
		counts[b]++
	}
	var h float64
	total := float64(len(values))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	max := math.Log2(float64(buckets))
	return model.Clamp01(h / max)
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	mx := mean(x)
	my := mean(y)
	var num, dx, dy float64
	for i := 0; i < n; i++ {
		a := x[i] - mx
		b := y[i] - my
		num += a * b
		dx += a * a
		dy += b * b
	}
	if dx == 0 || dy == 0 {
		// Constant vectors: identical constants correlate perfectly.
		if dx == 0 && dy == 0 {
			return 1
		}
		return 0
	}
	return model.ClampCorrelation(num / math.Sqrt(dx*dy))
}

func spearman(x, y []float64) float64 {
	return pearson(ranks(x), ranks(y))
}

func kendall(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		if n == 1 {
			return 1
		}
		return 0
	}
	concordant, discordant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := x[i] - x[j]
			b := y[i] - y[j]
			switch {
			case a*b > 0:
				concordant++
			case a*b < 0:
				discordant++
			}
		}
	}
	pairs := n * (n - 1) / 2
	if pairs == 0 {
		return 0
	}
	if concordant+discordant == 0 {
		// All ties on at least one vector.
		return 1
	}
	return model.ClampCorrelation(float64(concordant-discordant) / float64(pairs))
}

// ranks converts values to average-tie ranks.
func ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
