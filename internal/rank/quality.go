package rank

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Jmjcoke/quorum/internal/model"
	"github.com/Jmjcoke/quorum/internal/textsim"
)

// Word lists behind the quality heuristics. These are deliberately small and
// domain-flavored; scores only need to separate responses, not grade prose.
var (
	technicalTerms = []string{
		"resistor", "capacitor", "inductor", "diode", "transistor", "circuit",
		"voltage", "current", "schematic", "component", "terminal", "ground",
		"impedance", "frequency", "signal", "amplifier", "rectifier", "relay",
	}
	vagueWords = []string{
		"might", "maybe", "possibly", "unclear", "some", "various", "several",
		"appears", "seems", "roughly", "somewhat", "probably",
	}
	precisionWords = []string{
		"exactly", "precisely", "measured", "specifically", "rated",
		"tolerance", "nominal",
	}
	transitionWords = []string{
		"therefore", "however", "additionally", "furthermore", "consequently",
		"first", "second", "finally", "next", "then", "moreover",
	}
	analysisVerbs = []string{
		"connects", "connected", "controls", "regulates", "filters",
		"measures", "indicates", "drives", "supplies", "switches", "converts",
	}
	offTopicWords = []string{
		"weather", "recipe", "movie", "sport", "holiday", "celebrity",
		"fashion", "politics",
	}
	explanatoryPhrases = []string{
		"this means", "in other words", "because", "which indicates",
		"as a result", "due to",
	}
	introRe      = regexp.MustCompile(`(?i)^(this|the)\s+(drawing|schematic|circuit|diagram|image)`)
	conclusionRe = regexp.MustCompile(`(?i)(overall|in summary|in conclusion|to summarize)`)
)

// scoreQuality computes all six quality dimensions for one response against
// the full set.
func scoreQuality(r model.LLMResponse, all []model.LLMResponse, engine *textsim.Engine) model.QualityMetrics {
	return model.QualityMetrics{
		Completeness: scoreCompleteness(r, all),
		Specificity:  scoreSpecificity(r),
		Accuracy:     scoreAccuracy(r, all, engine),
		Coherence:    scoreCoherence(r),
		Relevance:    scoreRelevance(r),
		Clarity:      scoreClarity(r),
	}
}

func scoreCompleteness(r model.LLMResponse, all []model.LLMResponse) model.QualityDimension {
	dim := model.QualityDimension{}
	words := len(strings.Fields(r.Content))

	var totalWords int
	for _, other := range all {
		totalWords += len(strings.Fields(other.Content))
	}
	avgWords := float64(totalWords) / float64(len(all))

	lengthFactor := 0.0
	if avgWords > 0 {
		ratio := float64(words) / avgWords
		if ratio > 1 {
			ratio = 1
		}
		lengthFactor = ratio * 0.5
	}
	dim.Factors = append(dim.Factors, lengthFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("length %d words vs corpus average %.0f", words, avgWords))

	termFactor := wordListDensity(r.Content, technicalTerms) * 3
	if termFactor > 0.3 {
		termFactor = 0.3
	}
	dim.Factors = append(dim.Factors, termFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("technical-term richness %.2f", termFactor))

	structural := 0.0
	if introRe.MatchString(strings.TrimSpace(r.Content)) {
		structural += 0.1
		dim.Evidence = append(dim.Evidence, "has introduction")
	}
	if conclusionRe.MatchString(r.Content) {
		structural += 0.1
		dim.Evidence = append(dim.Evidence, "has conclusion")
	}
	dim.Factors = append(dim.Factors, structural)

	dim.Score = model.Clamp01(lengthFactor + termFactor + structural)
	return dim
}

func scoreSpecificity(r model.LLMResponse) model.QualityDimension {
	dim := model.QualityDimension{}

	numeric := textsim.NumericDensity(r.Content) * 2
	if numeric > 0.4 {
		numeric = 0.4
	}
	dim.Factors = append(dim.Factors, numeric)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("numeric density factor %.2f", numeric))

	words := len(strings.Fields(r.Content))
	refFactor := 0.0
	if words > 0 {
		refFactor = float64(len(textsim.ComponentRefs(r.Content))) / float64(words) * 5
		if refFactor > 0.3 {
			refFactor = 0.3
		}
	}
	dim.Factors = append(dim.Factors, refFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("%d component references", len(textsim.ComponentRefs(r.Content))))

	vaguePenalty := -wordListDensity(r.Content, vagueWords) * 2
	if vaguePenalty < -0.3 {
		vaguePenalty = -0.3
	}
	if vaguePenalty != 0 {
		dim.Factors = append(dim.Factors, vaguePenalty)
		dim.Evidence = append(dim.Evidence, fmt.Sprintf("vague-language penalty %.2f", vaguePenalty))
	}

	precisionBoost := wordListDensity(r.Content, precisionWords) * 3
	if precisionBoost > 0.3 {
		precisionBoost = 0.3
	}
	if precisionBoost != 0 {
		dim.Factors = append(dim.Factors, precisionBoost)
		dim.Evidence = append(dim.Evidence, fmt.Sprintf("precision-language boost %.2f", precisionBoost))
	}

	dim.Score = model.Clamp01(0.3 + numeric + refFactor + vaguePenalty + precisionBoost)
	return dim
}

func scoreAccuracy(r model.LLMResponse, all []model.LLMResponse, engine *textsim.Engine) model.QualityDimension {
	dim := model.QualityDimension{}

	// Corroboration: how many peers say something semantically close.
	supporters := 0
	for _, other := range all {
		if other.ID == r.ID {
			continue
		}
		if engine.Semantic(r.Content, other.Content) > 0.7 {
			supporters++
		}
	}
	support := 0.0
	if len(all) > 1 {
		support = float64(supporters) / float64(len(all)-1)
	}
	dim.Factors = append(dim.Factors, support*0.5)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("corroborated by %d of %d peers", supporters, len(all)-1))

	measurementFactor := 0.0
	if len(textsim.Measurements(r.Content)) > 0 {
		measurementFactor = 0.2
		dim.Evidence = append(dim.Evidence, "contains concrete measurements")
	}
	dim.Factors = append(dim.Factors, measurementFactor)

	// Confidence extremity: justified extremes earn a bonus, unsupported
	// ones a penalty.
	extremity := (r.ClampedConfidence() - 0.5) * 2
	extremityFactor := 0.0
	if extremity > 0.6 {
		if support > 0.5 {
			extremityFactor = 0.1
			dim.Evidence = append(dim.Evidence, "high confidence corroborated")
		} else {
			extremityFactor = -0.1
			dim.Evidence = append(dim.Evidence, "high confidence without corroboration")
		}
	}
	dim.Factors = append(dim.Factors, extremityFactor)

	dim.Score = model.Clamp01(0.3 + support*0.5 + measurementFactor + extremityFactor)
	return dim
}

func scoreCoherence(r model.LLMResponse) model.QualityDimension {
	dim := model.QualityDimension{}
	tokens := textsim.Tokenize(r.Content)
	words := len(strings.Fields(r.Content))

	transitionFactor := 0.0
	if words > 0 {
		transitionFactor = wordListDensity(r.Content, transitionWords) * 5
		if transitionFactor > 0.3 {
			transitionFactor = 0.3
		}
	}
	dim.Factors = append(dim.Factors, transitionFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("transition-word factor %.2f", transitionFactor))

	// Topic focus: how often the dominant token recurs.
	topicFactor := 0.0
	if len(tokens) > 0 {
		counts := make(map[string]int)
		max := 0
		for _, t := range tokens {
			counts[t]++
			if counts[t] > max {
				max = counts[t]
			}
		}
		repetition := float64(max) / float64(len(tokens))
		topicFactor = repetition * 2
		if topicFactor > 0.3 {
			topicFactor = 0.3
		}
	}
	dim.Factors = append(dim.Factors, topicFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("dominant-topic factor %.2f", topicFactor))

	structure := textsim.AnalyzeStructure(r.Content)
	structureFactor := 0.0
	if structure.Patterns["bullet_list"] || structure.Patterns["numbered_list"] || structure.Patterns["headers"] {
		structureFactor = 0.2
		dim.Evidence = append(dim.Evidence, "has logical structure markers")
	}
	dim.Factors = append(dim.Factors, structureFactor)

	dim.Score = model.Clamp01(0.2 + transitionFactor + topicFactor + structureFactor)
	return dim
}

func scoreRelevance(r model.LLMResponse) model.QualityDimension {
	dim := model.QualityDimension{}

	termFactor := wordListDensity(r.Content, technicalTerms) * 4
	if termFactor > 0.4 {
		termFactor = 0.4
	}
	dim.Factors = append(dim.Factors, termFactor)
	dim.Evidence = append(dim.Evidence, fmt.Sprintf("technical-term density factor %.2f", termFactor))

	// Component references used in analytical statements, not just listed.
	coFactor := 0.0
	for _, sentence := range textsim.Sentences(r.Content) {
		if len(textsim.ComponentRefs(sentence)) > 0 && containsAny(sentence, analysisVerbs) {
			coFactor += 0.1
			if coFactor >= 0.3 {
				break
			}
		}
	}
	dim.Factors = append(dim.Factors, coFactor)
	if coFactor > 0 {
		dim.Evidence = append(dim.Evidence, "component references co-occur with analysis verbs")
	}

	offTopicPenalty := -wordListDensity(r.Content, offTopicWords) * 5
	if offTopicPenalty < -0.4 {
		offTopicPenalty = -0.4
	}
	if offTopicPenalty != 0 {
		dim.Factors = append(dim.Factors, offTopicPenalty)
		dim.Evidence = append(dim.Evidence, "off-topic vocabulary detected")
	}

	dim.Score = model.Clamp01(0.3 + termFactor + coFactor + offTopicPenalty)
	return dim
}

func scoreClarity(r model.LLMResponse) model.QualityDimension {
	dim := model.QualityDimension{}
	sentences := textsim.Sentences(r.Content)
	words := strings.Fields(r.Content)

	lengthFactor := 0.0
	if len(sentences) > 0 {
		avgLen := float64(len(words)) / float64(len(sentences))
		// 8-25 words per sentence reads well; outside that band the factor
		// decays linearly.
		switch {
		case avgLen >= 8 && avgLen <= 25:
			lengthFactor = 0.4
		case avgLen < 8:
			lengthFactor = 0.4 * avgLen / 8
		default:
			lengthFactor = 0.4 * 25 / avgLen
		}
		dim.Evidence = append(dim.Evidence, fmt.Sprintf("average sentence length %.1f words", avgLen))
	}
	dim.Factors = append(dim.Factors, lengthFactor)

	complexPenalty := 0.0
	if len(words) > 0 {
		complex := 0
		for _, w := range words {
			if len(w) > 12 {
				complex++
			}
		}
		ratio := float64(complex) / float64(len(words))
		complexPenalty = -ratio * 2
		if complexPenalty < -0.3 {
			complexPenalty = -0.3
		}
	}
	if complexPenalty != 0 {
		dim.Factors = append(dim.Factors, complexPenalty)
		dim.Evidence = append(dim.Evidence, fmt.Sprintf("complex-word penalty %.2f", complexPenalty))
	}

	explainBonus := 0.0
	lower := strings.ToLower(r.Content)
	for _, phrase := range explanatoryPhrases {
		if strings.Contains(lower, phrase) {
			explainBonus = 0.2
			dim.Evidence = append(dim.Evidence, "uses explanatory phrasing")
			break
		}
	}
	dim.Factors = append(dim.Factors, explainBonus)

	dim.Score = model.Clamp01(0.3 + lengthFactor + complexPenalty + explainBonus)
	return dim
}

// wordListDensity returns matches-per-word for a word list, in [0,1].
func wordListDensity(text string, list []string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	set := make(map[string]bool, len(list))
	for _, w := range list {
		set[w] = true
	}
	hits := 0
	for _, w := range words {
		if set[strings.Trim(w, ".,;:!?()")] {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func containsAny(text string, list []string) bool {
	lower := strings.ToLower(text)
	for _, w := range list {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
