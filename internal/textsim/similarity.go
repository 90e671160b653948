package textsim

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Engine computes the four similarity dimensions over a fixed corpus of
// texts. Document frequencies are derived from the corpus at construction,
// so TF-IDF weights are stable for the lifetime of one aggregation run.
// Pairwise results are memoized; agreement analysis and ranking both walk
// the same pairs, so each pair is computed once.
type Engine struct {
	df   map[string]int
	docs int
	memo *gocache.Cache
}

// NewEngine builds an engine over the given corpus.
func NewEngine(corpus []string) *Engine {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]bool)
		for _, t := range Tokenize(text) {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	return &Engine{
		df:   df,
		docs: len(corpus),
		memo: gocache.New(10*time.Minute, 20*time.Minute),
	}
}

// Semantic blends TF-IDF cosine similarity (60%) with synonym-group overlap
// (40%). When neither text mentions any synonym-group term the overlap says
// nothing, so the cosine stands alone and identical texts still score 1.
// Empty or missing text is maximally dissimilar to anything non-empty.
func (e *Engine) Semantic(a, b string) float64 {
	if v, ok := e.cached("sem", a, b); ok {
		return v
	}
	ta := Tokenize(a)
	tb := Tokenize(b)
	v := 0.0
	if len(ta) > 0 || len(tb) > 0 {
		v = e.cosine(ta, tb)
		if syn, ok := synonymOverlap(ta, tb); ok {
			v = 0.6*v + 0.4*syn
		}
	}
	v = model.Clamp01(v)
	e.store("sem", a, b, v)
	return v
}

// Lexical blends Jaccard (60%) and Dice (40%) coefficients over token sets.
func (e *Engine) Lexical(a, b string) float64 {
	if v, ok := e.cached("lex", a, b); ok {
		return v
	}
	sa := tokenSet(Tokenize(a))
	sb := tokenSet(Tokenize(b))
	v := model.Clamp01(0.6*jaccard(sa, sb) + 0.4*dice(sa, sb))
	e.store("lex", a, b, v)
	return v
}

// Structural compares the coarse shape of two texts: counts closeness
// (sentences, paragraphs, words) weighted 60%, pattern-set overlap 40%.
func (e *Engine) Structural(a, b string) float64 {
	if v, ok := e.cached("str", a, b); ok {
		return v
	}
	xa := AnalyzeStructure(a)
	xb := AnalyzeStructure(b)

	counts := (closeness(float64(xa.Sentences), float64(xb.Sentences)) +
		closeness(float64(xa.Paragraphs), float64(xb.Paragraphs)) +
		closeness(float64(xa.Words), float64(xb.Words))) / 3.0

	v := model.Clamp01(0.6*counts + 0.4*patternOverlap(xa.Patterns, xb.Patterns))
	e.store("str", a, b, v)
	return v
}

// Contextual compares response context rather than content: confidence
// closeness, provider identity, latency closeness and token-count closeness.
func (e *Engine) Contextual(a, b model.LLMResponse) float64 {
	conf := 1.0 - math.Abs(a.ClampedConfidence()-b.ClampedConfidence())

	same := 0.0
	if a.Provider != "" && a.Provider == b.Provider {
		same = 1.0
	}

	lat := closeness(float64(a.Latency), float64(b.Latency))
	tok := closeness(float64(a.Tokens.Total), float64(b.Tokens.Total))

	return model.Clamp01(0.4*conf + 0.2*same + 0.2*lat + 0.2*tok)
}

// cosine computes TF-IDF weighted cosine similarity between two token lists.
func (e *Engine) cosine(a, b []string) float64 {
	va := e.vector(a)
	vb := e.vector(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, na, nb float64
	for t, wa := range va {
		na += wa * wa
		if wb, ok := vb[t]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range vb {
		nb += wb * wb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// vector builds a TF-IDF weight map for one token list.
func (e *Engine) vector(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64)
	for _, t := range tokens {
		tf[t]++
	}
	vec := make(map[string]float64, len(tf))
	for t, count := range tf {
		idf := 1.0
		if e.docs > 0 {
			// Smoothed IDF keeps terms that occur in every document from
			// vanishing entirely.
			idf = math.Log(float64(1+e.docs)/float64(1+e.df[t])) + 1
		}
		vec[t] = (count / float64(len(tokens))) * idf
	}
	return vec
}

func (e *Engine) cached(dim, a, b string) (float64, bool) {
	if v, ok := e.memo.Get(pairKey(dim, a, b)); ok {
		return v.(float64), true
	}
	return 0, false
}

func (e *Engine) store(dim, a, b string, v float64) {
	e.memo.Set(pairKey(dim, a, b), v, gocache.DefaultExpiration)
}

// pairKey is symmetric: (a,b) and (b,a) share one cache slot.
func pairKey(dim, a, b string) string {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	ka := hex.EncodeToString(ha[:8])
	kb := hex.EncodeToString(hb[:8])
	if ka > kb {
		ka, kb = kb, ka
	}
	return dim + ":" + ka + ":" + kb
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func dice(a, b map[string]bool) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return 2 * float64(intersection(a, b)) / float64(len(a)+len(b))
}

func intersection(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

func patternOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1 // both plain prose
	}
	inter := 0
	for p := range a {
		if b[p] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// closeness maps two non-negative magnitudes to [0,1]: equal values score 1,
// diverging values decay toward 0. Zero/zero counts as identical.
func closeness(a, b float64) float64 {
	if !model.IsFinite(a) || !model.IsFinite(b) || a < 0 || b < 0 {
		return 0
	}
	if a == 0 && b == 0 {
		return 1
	}
	max := math.Max(a, b)
	return 1 - math.Abs(a-b)/max
}
