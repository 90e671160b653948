// Package rank scores, orders and merges provider responses into consensus
// text. Like the rest of the core it absorbs bad input: empty or single
// response sets yield trivial, well-formed results.
package rank

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/textsim"
)

// Ranker produces the consensus ranking for a response set.
type Ranker struct {
	cfg model.RankingConfig
}

// NewRanker creates a ranker with the given configuration.
func NewRanker(cfg model.RankingConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank scores every response, orders them under the configured strategy and
// generates consensus text.
func (rk *Ranker) Rank(responses []model.LLMResponse) model.ConsensusRankingResult {
	switch len(responses) {
	case 0:
		return model.ConsensusRankingResult{}
	case 1:
		r := responses[0]
		return model.ConsensusRankingResult{
			Ranked: []model.RankedResponse{{
				Provider:   r.Provider,
				ResponseID: r.ID,
				Similarity: model.SimilarityProfile{Semantic: 1, Lexical: 1, Structural: 1, Contextual: 1, Aggregate: 1},
				Quality:    scoreQuality(r, responses, textsim.NewEngine([]string{r.Content})),
				Score:      1,
				Rank:       1,
			}},
			Consensus: model.GeneratedConsensus{
				Text:       textsim.StripMarkup(r.Content),
				Method:     rk.cfg.Generation,
				Sources:    []string{r.Provider},
				Confidence: r.ClampedConfidence(),
			},
		}
	}

	responses = withIDs(responses)
	engine := textsim.NewEngine(corpus(responses))

	ranked := make([]model.RankedResponse, len(responses))
	for i, r := range responses {
		ranked[i] = model.RankedResponse{
			Provider:   r.Provider,
			ResponseID: r.ID,
			Similarity: rk.similarityProfile(r, responses, engine),
			Quality:    scoreQuality(r, responses, engine),
		}
	}

	rk.applyStrategy(ranked, responses)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Provider < ranked[j].Provider // deterministic tie-break
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	result := model.ConsensusRankingResult{
		Ranked:    ranked,
		Consensus: rk.generate(ranked, responses, engine),
	}
	if rk.cfg.AssessCoherence {
		result.Findings = append(result.Findings, assessCoherence(ranked)...)
	}
	if rk.cfg.ValidateConsistency {
		result.Findings = append(result.Findings, validateConsistency(responses)...)
	}
	return result
}

// similarityProfile averages one response's similarity against every peer.
func (rk *Ranker) similarityProfile(r model.LLMResponse, all []model.LLMResponse, engine *textsim.Engine) model.SimilarityProfile {
	var sem, lex, str, ctx float64
	peers := 0
	for _, other := range all {
		if other.ID == r.ID {
			continue
		}
		sem += engine.Semantic(r.Content, other.Content)
		lex += engine.Lexical(r.Content, other.Content)
		str += engine.Structural(r.Content, other.Content)
		ctx += engine.Contextual(r, other)
		peers++
	}
	if peers == 0 {
		return model.SimilarityProfile{Semantic: 1, Lexical: 1, Structural: 1, Contextual: 1, Aggregate: 1}
	}
	p := model.SimilarityProfile{
		Semantic:   sem / float64(peers),
		Lexical:    lex / float64(peers),
		Structural: str / float64(peers),
		Contextual: ctx / float64(peers),
	}
	w := rk.cfg.Similarity
	totalW := w.Semantic + w.Lexical + w.Structural + w.Contextual
	if totalW <= 0 {
		p.Aggregate = (p.Semantic + p.Lexical + p.Structural + p.Contextual) / 4
	} else {
		p.Aggregate = (w.Semantic*p.Semantic + w.Lexical*p.Lexical + w.Structural*p.Structural + w.Contextual*p.Contextual) / totalW
	}
	p.Aggregate = model.Clamp01(p.Aggregate)
	return p
}

// applyStrategy fills in Score for every ranked response.
func (rk *Ranker) applyStrategy(ranked []model.RankedResponse, responses []model.LLMResponse) {
	base := make([]float64, len(ranked))
	for i, r := range ranked {
		base[i] = rk.weightedScore(r, responses[i])
	}

	switch rk.cfg.Strategy {
	case model.RankTournament:
		// Round-robin: each pairwise win is a point.
		n := len(ranked)
		for i := range ranked {
			wins := 0
			for j := range ranked {
				if i == j {
					continue
				}
				if base[i] > base[j] || (base[i] == base[j] && ranked[i].Provider < ranked[j].Provider) {
					wins++
				}
			}
			ranked[i].Score = float64(wins) / float64(n-1)
		}
	case model.RankPairwise:
		// Margin-sum: accumulate signed score differences per pair.
		n := len(ranked)
		for i := range ranked {
			var margin float64
			for j := range ranked {
				if i != j {
					margin += base[i] - base[j]
				}
			}
			// Margins live in [-(n-1), n-1]; rescale into [0,1].
			ranked[i].Score = model.Clamp01((margin/float64(n-1) + 1) / 2)
		}
	case model.RankConsensusDistance:
		// Closeness to the consensus center: the aggregate similarity is the
		// inverse of the distance to everyone else.
		for i := range ranked {
			ranked[i].Score = ranked[i].Similarity.Aggregate
		}
	case model.RankMultiCriteria:
		rk.bordaScores(ranked, responses)
	default: // weighted_score
		for i := range ranked {
			ranked[i].Score = base[i]
		}
	}
}

func (rk *Ranker) weightedScore(r model.RankedResponse, resp model.LLMResponse) float64 {
	ws := rk.cfg.SimilarityWeight
	wq := rk.cfg.QualityWeight
	wc := rk.cfg.ConfidenceWeight
	total := ws + wq + wc
	if total <= 0 {
		ws, wq, wc, total = 1, 1, 1, 3
	}
	return model.Clamp01((ws*r.Similarity.Aggregate + wq*r.Quality.Average() + wc*resp.ClampedConfidence()) / total)
}

// bordaScores ranks responses separately on similarity, quality and
// confidence, then combines the three rankings with a Borda count.
func (rk *Ranker) bordaScores(ranked []model.RankedResponse, responses []model.LLMResponse) {
	n := len(ranked)
	criteria := [][]float64{
		make([]float64, n), make([]float64, n), make([]float64, n),
	}
	for i := range ranked {
		criteria[0][i] = ranked[i].Similarity.Aggregate
		criteria[1][i] = ranked[i].Quality.Average()
		criteria[2][i] = responses[i].ClampedConfidence()
	}

	points := make([]int, n)
	for _, values := range criteria {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			if values[order[a]] != values[order[b]] {
				return values[order[a]] > values[order[b]]
			}
			return ranked[order[a]].Provider < ranked[order[b]].Provider
		})
		for pos, idx := range order {
			points[idx] += n - pos
		}
	}
	maxPoints := 3 * n
	for i := range ranked {
		ranked[i].Score = float64(points[i]) / float64(maxPoints)
	}
}

func corpus(responses []model.LLMResponse) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.Content
	}
	return out
}

// withIDs returns a copy of responses where every ID is unique and non-empty,
// minting replacements for blanks and duplicates. Peer comparisons and
// consensus generation key on the ID, so two responses sharing one would read
// each other as self.
func withIDs(responses []model.LLMResponse) []model.LLMResponse {
	out := make([]model.LLMResponse, len(responses))
	seen := make(map[string]bool, len(responses))
	for i, r := range responses {
		if r.ID == "" || seen[r.ID] {
			r.ID = uuid.NewString()
		}
		seen[r.ID] = true
		out[i] = r
	}
	return out
}
