package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/textsim"
)

// generate produces consensus text under the configured method, with ranked
// alternatives carrying provenance.
func (rk *Ranker) generate(ranked []model.RankedResponse, responses []model.LLMResponse, engine *textsim.Engine) model.GeneratedConsensus {
	byID := make(map[string]model.LLMResponse, len(responses))
	for _, r := range responses {
		byID[r.ID] = r
	}

	var text string
	var sources []string
	switch rk.cfg.Generation {
	case model.GenerateWeightedMerge:
		text, sources = rk.weightedMerge(ranked, byID, engine)
	case model.GenerateTemplate:
		text, sources = rk.template(ranked, byID)
	case model.GenerateExtractive, model.GenerateAbstractive:
		// Abstractive generation without a language model degrades to the
		// extractive method over collapsed sentences.
		text, sources = rk.extractive(responses, engine)
	default: // highest_ranked
		top := byID[ranked[0].ResponseID]
		text = textsim.StripMarkup(top.Content)
		sources = []string{top.Provider}
	}

	var totalScore float64
	for _, r := range ranked {
		totalScore += r.Score
	}

	out := model.GeneratedConsensus{
		Text:       text,
		Method:     rk.cfg.Generation,
		Sources:    sources,
		Confidence: ranked[0].Score,
	}
	for _, r := range ranked[1:] {
		if len(out.Alternatives) >= 3 {
			break
		}
		resp := byID[r.ResponseID]
		support := 0.0
		if totalScore > 0 {
			support = r.Score / totalScore
		}
		out.Alternatives = append(out.Alternatives, model.ConsensusAlternative{
			Text:       textsim.StripMarkup(resp.Content),
			Provider:   r.Provider,
			Support:    support,
			Confidence: r.Score,
		})
	}
	return out
}

// weightedMerge walks responses in rank order and keeps sentences that are
// not redundant restatements of sentences already kept.
func (rk *Ranker) weightedMerge(ranked []model.RankedResponse, byID map[string]model.LLMResponse, engine *textsim.Engine) (string, []string) {
	var kept []string
	var sources []string
	seen := make(map[string]bool)

	for _, r := range ranked {
		resp := byID[r.ResponseID]
		contributed := false
		for _, sentence := range textsim.Sentences(textsim.StripMarkup(resp.Content)) {
			if isRedundant(sentence, kept, engine) {
				continue
			}
			kept = append(kept, sentence)
			contributed = true
			if len(kept) >= 12 {
				break
			}
		}
		if contributed && !seen[resp.Provider] {
			seen[resp.Provider] = true
			sources = append(sources, resp.Provider)
		}
		if len(kept) >= 12 {
			break
		}
	}
	return strings.Join(kept, ". ") + ".", sources
}

// template renders a structured consensus summary around the top response.
func (rk *Ranker) template(ranked []model.RankedResponse, byID map[string]model.LLMResponse) (string, []string) {
	top := byID[ranked[0].ResponseID]
	refs := textsim.ComponentRefs(top.Content)
	sort.Strings(refs)

	var b strings.Builder
	fmt.Fprintf(&b, "Consensus across %d providers (top: %s).\n\n", len(ranked), top.Provider)
	b.WriteString(textsim.StripMarkup(top.Content))
	if len(refs) > 0 {
		fmt.Fprintf(&b, "\n\nComponents referenced: %s.", strings.Join(dedupeStrings(refs), ", "))
	}

	sources := make([]string, 0, len(ranked))
	for _, r := range ranked {
		sources = append(sources, r.Provider)
	}
	return b.String(), dedupeStrings(sources)
}

// extractive keeps sentences corroborated by at least half of the peers.
func (rk *Ranker) extractive(responses []model.LLMResponse, engine *textsim.Engine) (string, []string) {
	type scored struct {
		sentence string
		support  int
		provider string
	}
	var candidates []scored

	for _, r := range responses {
		for _, sentence := range textsim.Sentences(textsim.StripMarkup(r.Content)) {
			support := 0
			for _, other := range responses {
				if other.ID == r.ID {
					continue
				}
				if engine.Semantic(sentence, other.Content) > 0.5 {
					support++
				}
			}
			if support*2 >= len(responses)-1 {
				candidates = append(candidates, scored{sentence, support, r.Provider})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].support > candidates[j].support })

	var kept []string
	var sources []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if isRedundant(c.sentence, kept, engine) {
			continue
		}
		kept = append(kept, c.sentence)
		if !seen[c.provider] {
			seen[c.provider] = true
			sources = append(sources, c.provider)
		}
		if len(kept) >= 8 {
			break
		}
	}
	if len(kept) == 0 {
		// Nothing corroborated; fall back to the longest response.
		longest := responses[0]
		for _, r := range responses[1:] {
			if len(r.Content) > len(longest.Content) {
				longest = r
			}
		}
		return textsim.StripMarkup(longest.Content), []string{longest.Provider}
	}
	return strings.Join(kept, ". ") + ".", sources
}

// isRedundant reports whether the sentence restates something already kept.
func isRedundant(sentence string, kept []string, engine *textsim.Engine) bool {
	for _, k := range kept {
		if engine.Lexical(sentence, k) > 0.8 {
			return true
		}
	}
	return false
}

// assessCoherence flags low-coherence responses as structured findings.
func assessCoherence(ranked []model.RankedResponse) []model.Finding {
	var findings []model.Finding
	for _, r := range ranked {
		if r.Quality.Coherence.Score < 0.3 {
			findings = append(findings, model.Finding{
				Kind:        "incoherent_response",
				Provider:    r.Provider,
				Severity:    "warning",
				Description: fmt.Sprintf("response coherence %.2f is below 0.30", r.Quality.Coherence.Score),
				Score:       r.Quality.Coherence.Score,
			})
		}
	}
	return findings
}

// validateConsistency surfaces cross-response contradictions: the same
// component reference described with conflicting measurements.
func validateConsistency(responses []model.LLMResponse) []model.Finding {
	type claim struct {
		provider    string
		measurement string
	}
	claims := make(map[string][]claim) // component ref -> claims

	for _, r := range responses {
		for _, sentence := range textsim.Sentences(r.Content) {
			refs := textsim.ComponentRefs(sentence)
			measurements := textsim.Measurements(sentence)
			if len(refs) == 0 || len(measurements) == 0 {
				continue
			}
			for _, ref := range refs {
				for _, m := range measurements {
					claims[ref] = append(claims[ref], claim{r.Provider, normalizeMeasurement(m)})
				}
			}
		}
	}

	var findings []model.Finding
	refs := make([]string, 0, len(claims))
	for ref := range claims {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		distinct := make(map[string][]string) // measurement -> providers
		for _, c := range claims[ref] {
			distinct[c.measurement] = append(distinct[c.measurement], c.provider)
		}
		if len(distinct) > 1 {
			findings = append(findings, model.Finding{
				Kind:        "cross_inconsistency",
				Severity:    "warning",
				Description: fmt.Sprintf("component %s described with %d conflicting measurements", ref, len(distinct)),
			})
		}
	}
	return findings
}

func normalizeMeasurement(m string) string {
	return strings.Join(strings.Fields(strings.ToLower(m)), "")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
