package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Jmjcoke/quorum/internal/agreement"
	"github.com/Jmjcoke/quorum/internal/cluster"
	"github.com/Jmjcoke/quorum/internal/confidence"
	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/rank"
	"github.com/Jmjcoke/quorum/internal/textsim"
	"github.com/Jmjcoke/quorum/internal/uncertainty"
)

// Pipeline orchestrates the complete consensus process: agreement analysis,
// candidate voting, component clustering, response ranking, confidence
// calculation and uncertainty quantification.
type Pipeline struct {
	analyzer   *agreement.Analyzer
	calculator *confidence.Calculator
	quantifier *uncertainty.Quantifier
	clusterer  *cluster.Clusterer
	ranker     *rank.Ranker
	renderer   *Renderer
	config     *model.Config
}

// NewPipeline creates a new pipeline with the given configuration.
func NewPipeline(cfg *model.Config) *Pipeline {
	return &Pipeline{
		analyzer:   agreement.NewAnalyzer(cfg.Agreement),
		calculator: confidence.NewCalculator(cfg.Confidence),
		quantifier: uncertainty.NewQuantifier(cfg.Uncertainty),
		clusterer:  cluster.NewClusterer(cfg.Clustering).WithFallback(cluster.NewDesignatorExtractor()),
		ranker:     rank.NewRanker(cfg.Ranking),
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		config:     cfg,
	}
}

// candidate is one group of mutually similar responses competing in the vote.
type candidate struct {
	members []model.LLMResponse
	weight  float64 // summed clamped confidence
}

func (c candidate) support(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(len(c.members)) / float64(total)
}

// BuildConsensus reconciles a set of provider responses into a single result
// using the given voting strategy. An empty strategy falls back to the
// configured default. An empty response set is a hard error.
func (p *Pipeline) BuildConsensus(ctx context.Context, responses []model.LLMResponse, strategy model.VotingStrategy) (*model.ConsensusResult, error) {
	start := time.Now()
	if len(responses) == 0 {
		return nil, fmt.Errorf("cannot build consensus from empty response set")
	}
	if strategy == "" {
		strategy = p.config.Voting
	}
	if !validStrategy(strategy) {
		return nil, fmt.Errorf("unknown voting strategy %q", strategy)
	}

	if len(responses) == 1 {
		return p.singleResponse(ctx, responses[0], strategy, start), nil
	}

	// File input arrives with IDs from the loader, but any caller may hand us
	// a bare slice. Candidate grouping and the winner lookup key on the ID.
	responses = ensureIDs(responses)

	budget, cancel := context.WithTimeout(ctx, p.config.Performance.MaxProcessingTime)
	defer cancel()

	var warnings []string

	// Cheap sequential path first: agreement statistics feed everything else.
	measures := p.analyzer.Measure(responses)
	disagreement := p.analyzer.AnalyzeDisagreements(responses, measures)

	// Clustering and ranking are independent of each other; run them
	// concurrently under the shared time budget.
	var comps model.ComponentConsensusResult
	var ranking model.ConsensusRankingResult
	compsCh := make(chan model.ComponentConsensusResult, 1)
	rankCh := make(chan model.ConsensusRankingResult, 1)
	go func() { compsCh <- p.clusterer.BuildConsensus(budget, responses) }()
	go func() { rankCh <- p.ranker.Rank(responses) }()
	comps = <-compsCh
	ranking = <-rankCh
	if budget.Err() != nil {
		warnings = append(warnings, fmt.Sprintf("processing time budget %s exceeded, result may be partial", p.config.Performance.MaxProcessingTime))
	}

	conf := p.calculator.Calculate(responses, measures, disagreement)
	uncert := p.quantifier.Quantify(responses, measures, disagreement, conf)

	groups := p.groupCandidates(responses)
	winner, voteWarnings := p.vote(strategy, groups, responses)
	warnings = append(warnings, voteWarnings...)

	agreementLevel := winnerAgreement(strategy, winner, groups, len(responses))
	content := p.winnerContent(winner, ranking)

	overall := 0.7*conf.OverallConfidence + 0.3*agreementLevel
	if len(voteWarnings) > 0 {
		overall -= 0.1
	}
	overall = model.Clamp01(overall)

	result := &model.ConsensusResult{
		ID:               uuid.NewString(),
		Content:          content,
		Strategy:         strategy,
		AgreementLevel:   agreementLevel,
		Confidence:       overall,
		Agreement:        measures,
		Disagreement:     disagreement,
		ConfidenceDetail: conf,
		Uncertainty:      uncert,
		Components:       comps,
		Ranking:          ranking,
		MetadataVotes:    p.voteMetadata(responses),
		Providers:        distinctProviders(responses),
		Elapsed:          time.Since(start),
		Warnings:         warnings,
	}
	return result, nil
}

// singleResponse handles the degenerate one-provider case: the consensus is a
// pass-through of the only response, flagged as unvalidated.
func (p *Pipeline) singleResponse(ctx context.Context, r model.LLMResponse, strategy model.VotingStrategy, start time.Time) *model.ConsensusResult {
	responses := []model.LLMResponse{r}
	measures := p.analyzer.Measure(responses)
	disagreement := p.analyzer.AnalyzeDisagreements(responses, measures)
	conf := p.calculator.Calculate(responses, measures, disagreement)
	uncert := p.quantifier.Quantify(responses, measures, disagreement, conf)

	return &model.ConsensusResult{
		ID:               uuid.NewString(),
		Content:          textsim.StripMarkup(r.Content),
		Strategy:         strategy,
		AgreementLevel:   1.0,
		Confidence:       r.ClampedConfidence(),
		Agreement:        measures,
		Disagreement:     disagreement,
		ConfidenceDetail: conf,
		Uncertainty:      uncert,
		Components:       p.clusterer.BuildConsensus(ctx, responses),
		Ranking:          p.ranker.Rank(responses),
		MetadataVotes:    p.voteMetadata(responses),
		Providers:        []string{r.Provider},
		Elapsed:          time.Since(start),
		Warnings:         []string{"single response: consensus is an unvalidated pass-through"},
	}
}

// groupCandidates partitions responses into candidate groups by transitive
// semantic similarity at the configured threshold.
func (p *Pipeline) groupCandidates(responses []model.LLMResponse) []candidate {
	corpus := make([]string, len(responses))
	for i, r := range responses {
		corpus[i] = r.Content
	}
	engine := textsim.NewEngine(corpus)

	parent := make([]int, len(responses))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	threshold := p.config.Agreement.SimilarityThreshold
	for i := 0; i < len(responses); i++ {
		for j := i + 1; j < len(responses); j++ {
			if engine.Semantic(responses[i].Content, responses[j].Content) >= threshold {
				parent[find(i)] = find(j)
			}
		}
	}

	byRoot := map[int]*candidate{}
	var order []int
	for i, r := range responses {
		root := find(i)
		c, ok := byRoot[root]
		if !ok {
			c = &candidate{}
			byRoot[root] = c
			order = append(order, root)
		}
		c.members = append(c.members, r)
		c.weight += r.ClampedConfidence()
	}

	groups := make([]candidate, 0, len(order))
	for _, root := range order {
		groups = append(groups, *byRoot[root])
	}
	return groups
}

// vote applies the voting strategy over candidate groups and returns the
// winning group plus any fallback warnings.
func (p *Pipeline) vote(strategy model.VotingStrategy, groups []candidate, responses []model.LLMResponse) (candidate, []string) {
	n := len(responses)
	totalWeight := 0.0
	for _, g := range groups {
		totalWeight += g.weight
	}

	switch strategy {
	case model.VoteMajority:
		for _, g := range groups {
			if 2*len(g.members) > n {
				return g, nil
			}
		}
		return pluralityWinner(groups), []string{"no absolute majority, fell back to plurality"}

	case model.VoteWeightedMajority:
		for _, g := range groups {
			if totalWeight > 0 && g.weight > totalWeight/2 {
				return g, nil
			}
		}
		return confidenceWinner(groups), []string{"no weighted majority, fell back to highest confidence weight"}

	case model.VoteConfidenceWeighted:
		return confidenceWinner(groups), nil

	case model.VoteUnanimous:
		if len(groups) == 1 {
			return groups[0], nil
		}
		return pluralityWinner(groups), []string{"unanimity not reached, fell back to plurality"}

	default: // plurality
		return pluralityWinner(groups), nil
	}
}

// pluralityWinner picks the largest group. Ties break by higher mean
// confidence, then by lexicographically smallest leading provider so the
// outcome is deterministic.
func pluralityWinner(groups []candidate) candidate {
	best := groups[0]
	for _, g := range groups[1:] {
		switch {
		case len(g.members) > len(best.members):
			best = g
		case len(g.members) == len(best.members):
			gm := g.weight / float64(len(g.members))
			bm := best.weight / float64(len(best.members))
			if gm > bm || (gm == bm && leadProvider(g) < leadProvider(best)) {
				best = g
			}
		}
	}
	return best
}

// confidenceWinner picks the group with the highest summed confidence weight.
func confidenceWinner(groups []candidate) candidate {
	best := groups[0]
	for _, g := range groups[1:] {
		if g.weight > best.weight || (g.weight == best.weight && leadProvider(g) < leadProvider(best)) {
			best = g
		}
	}
	return best
}

func leadProvider(g candidate) string {
	lead := g.members[0].Provider
	for _, m := range g.members[1:] {
		if m.Provider < lead {
			lead = m.Provider
		}
	}
	return lead
}

// winnerAgreement reports the winning group's support as a fraction: member
// share for count-based strategies, weight share for confidence-based ones.
func winnerAgreement(strategy model.VotingStrategy, winner candidate, groups []candidate, total int) float64 {
	switch strategy {
	case model.VoteWeightedMajority, model.VoteConfidenceWeighted:
		totalWeight := 0.0
		for _, g := range groups {
			totalWeight += g.weight
		}
		if totalWeight <= 0 {
			return winner.support(total)
		}
		return model.Clamp01(winner.weight / totalWeight)
	default:
		return model.Clamp01(winner.support(total))
	}
}

// winnerContent returns the best-ranked response text among the winning
// group's members, falling back to the group's highest-confidence member.
func (p *Pipeline) winnerContent(winner candidate, ranking model.ConsensusRankingResult) string {
	ids := make(map[string]bool, len(winner.members))
	for _, m := range winner.members {
		ids[m.ID] = true
	}
	for _, r := range ranking.Ranked { // already sorted best-first
		if ids[r.ResponseID] {
			for _, m := range winner.members {
				if m.ID == r.ResponseID {
					return textsim.StripMarkup(m.Content)
				}
			}
		}
	}
	best := winner.members[0]
	for _, m := range winner.members[1:] {
		if m.ClampedConfidence() > best.ClampedConfidence() {
			best = m
		}
	}
	return textsim.StripMarkup(best.Content)
}

// voteMetadata runs a confidence-weighted vote over every structured metadata
// field that at least two providers reported. Value equality uses the same
// canonical form as component property voting.
func (p *Pipeline) voteMetadata(responses []model.LLMResponse) map[string]model.MetadataVote {
	type ballot struct {
		value  interface{}
		weight float64
	}
	fields := map[string]map[string]*ballot{}
	totals := map[string]float64{}
	holders := map[string]int{}

	for _, r := range responses {
		w := r.ClampedConfidence()
		if w < 0.01 {
			w = 0.01
		}
		for key, value := range r.Metadata {
			ck := cluster.CanonicalKey(value)
			if fields[key] == nil {
				fields[key] = map[string]*ballot{}
			}
			if b, ok := fields[key][ck]; ok {
				b.weight += w
			} else {
				fields[key][ck] = &ballot{value: value, weight: w}
			}
			totals[key] += w
			holders[key]++
		}
	}

	votes := map[string]model.MetadataVote{}
	for key, ballots := range fields {
		if holders[key] < 2 {
			continue
		}
		keys := make([]string, 0, len(ballots))
		for ck := range ballots {
			keys = append(keys, ck)
		}
		sort.Strings(keys)
		var winKey string
		var winWeight float64
		candidates := make([]model.PropertyCandidate, 0, len(keys))
		for _, ck := range keys {
			b := ballots[ck]
			candidates = append(candidates, model.PropertyCandidate{
				Value:   b.value,
				Support: b.weight / totals[key],
			})
			if b.weight > winWeight {
				winKey, winWeight = ck, b.weight
			}
		}
		votes[key] = model.MetadataVote{
			Winner:  ballots[winKey].value,
			Support: winWeight / totals[key],
			Ballots: candidates,
		}
	}
	if len(votes) == 0 {
		return nil
	}
	return votes
}

func validStrategy(s model.VotingStrategy) bool {
	switch s {
	case model.VoteMajority, model.VoteWeightedMajority, model.VotePlurality,
		model.VoteConfidenceWeighted, model.VoteUnanimous:
		return true
	}
	return false
}

// ensureIDs returns a copy of responses with unique non-empty IDs, minting
// replacements for blanks and duplicates.
func ensureIDs(responses []model.LLMResponse) []model.LLMResponse {
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

func distinctProviders(responses []model.LLMResponse) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range responses {
		if !seen[r.Provider] {
			seen[r.Provider] = true
			out = append(out, r.Provider)
		}
	}
	sort.Strings(out)
	return out
}
