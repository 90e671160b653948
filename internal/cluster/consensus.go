package cluster

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Jmjcoke/quorum/internal/model"
)

// functionalCategories groups component types into broad roles for the
// functional-alignment metric. Unknown types land in an explicit "other"
// category.
var functionalCategories = map[string]string{
	"resistor":   "passive",
	"capacitor":  "passive",
	"inductor":   "passive",
	"diode":      "semiconductor",
	"transistor": "semiconductor",
	"ic":         "semiconductor",
	"connector":  "interconnect",
	"relay":      "electromechanical",
	"motor":      "electromechanical",
	"switch":     "electromechanical",
}

const otherCategory = "other"

func categoryOf(componentType string) string {
	if c, ok := functionalCategories[strings.ToLower(componentType)]; ok {
		return c
	}
	return otherCategory
}

// CanonicalKey renders a property value into a canonical comparable form
// over a closed set of primitive kinds, so formatting and key-order
// differences cannot split or merge votes.
func CanonicalKey(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + strings.ToLower(strings.TrimSpace(t))
	case bool:
		return "b:" + strconv.FormatBool(t)
	case float64:
		return "n:" + strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = CanonicalKey(e)
		}
		return "l:[" + strings.Join(parts, ",") + "]"
	default:
		return "o:" + fmt.Sprintf("%v", t)
	}
}

// buildCluster computes centroid, metrics and confidence for one member set.
func buildCluster(members []model.ComponentIdentification, cfg model.ClusteringConfig, noise bool) model.ComponentCluster {
	centroid := weightedCentroid(members)
	spatial := spatialMetrics(members, centroid, cfg)
	semantic := semanticMetrics(members)

	spatialScore := model.Clamp01(spatial.Compactness)
	semanticScore := model.Clamp01(0.4*semantic.TypeConsistency + 0.3*semantic.PropertyAgreement + 0.3*semantic.FunctionalAlignment)
	agreementScore := (spatialScore + semanticScore) / 2
	stability := 0.5
	if len(members) >= cfg.MinimumClusterSize {
		stability = 1.0
	}
	overall := model.Clamp01(0.3*spatialScore + 0.4*semanticScore + 0.2*agreementScore + 0.1*stability)

	return model.ComponentCluster{
		ID:      uuid.NewString(),
		Members: members,
		Centroid: model.Centroid{
			Location:   centroid,
			Type:       majorityType(members),
			Properties: mergedProperties(members),
		},
		Confidence: model.ConfidenceBreakdown{
			Overall:   overall,
			Spatial:   spatialScore,
			Semantic:  semanticScore,
			Agreement: agreementScore,
			Stability: stability,
		},
		Spatial:  spatial,
		Semantic: semantic,
		IsNoise:  noise,
	}
}

// weightedCentroid averages member locations weighted by confidence. A zero
// total weight falls back to the unweighted mean.
func weightedCentroid(members []model.ComponentIdentification) model.Location {
	if len(members) == 0 {
		return model.Location{}
	}
	var sx, sy, w float64
	for _, m := range members {
		c := model.Clamp01(m.Confidence)
		sx += m.Location.X * c
		sy += m.Location.Y * c
		w += c
	}
	if w == 0 {
		for _, m := range members {
			sx += m.Location.X
			sy += m.Location.Y
		}
		w = float64(len(members))
		return model.Location{X: sx / w, Y: sy / w}
	}
	return model.Location{X: sx / w, Y: sy / w}
}

func majorityType(members []model.ComponentIdentification) string {
	counts := make(map[string]int)
	for _, m := range members {
		counts[strings.ToLower(m.Type)]++
	}
	best := ""
	bestCount := 0
	for t, c := range counts {
		if c > bestCount || (c == bestCount && t < best) {
			best = t
			bestCount = c
		}
	}
	return best
}

// mergedProperties takes the first-seen value per key, preferring higher
// member confidence. Full voting happens in consensus construction.
func mergedProperties(members []model.ComponentIdentification) map[string]interface{} {
	ordered := make([]model.ComponentIdentification, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Confidence > ordered[j].Confidence })

	merged := make(map[string]interface{})
	for _, m := range ordered {
		for k, v := range m.Properties {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// spatialMetrics computes variance, cohesion and compactness around the
// centroid. Separation and silhouette stay zero (reserved) until a full
// inter-cluster comparison exists; nothing downstream reads them.
func spatialMetrics(members []model.ComponentIdentification, centroid model.Location, cfg model.ClusteringConfig) model.SpatialMetrics {
	if len(members) == 0 {
		return model.SpatialMetrics{Compactness: 0}
	}
	var sumSq, sumDist float64
	for _, m := range members {
		dx := m.Location.X - centroid.X
		dy := m.Location.Y - centroid.Y
		d := math.Sqrt(dx*dx + dy*dy)
		sumSq += dx*dx + dy*dy
		sumDist += d
	}
	n := float64(len(members))
	avgDist := sumDist / n

	compactness := 1.0
	if cfg.SpatialThreshold > 0 {
		compactness = model.Clamp01(1 - avgDist/cfg.SpatialThreshold)
	}
	return model.SpatialMetrics{
		Variance:    sumSq / n,
		Cohesion:    1 / (1 + avgDist),
		Compactness: compactness,
	}
}

func semanticMetrics(members []model.ComponentIdentification) model.SemanticMetrics {
	n := len(members)
	if n == 0 {
		return model.SemanticMetrics{}
	}

	// Type consistency: share of the plurality type.
	typeCounts := make(map[string]int)
	for _, m := range members {
		typeCounts[strings.ToLower(m.Type)]++
	}
	maxCount := 0
	for _, c := range typeCounts {
		if c > maxCount {
			maxCount = c
		}
	}
	typeConsistency := float64(maxCount) / float64(n)

	// Functional alignment: share of the plurality functional category.
	catCounts := make(map[string]int)
	for _, m := range members {
		catCounts[categoryOf(m.Type)]++
	}
	maxCat := 0
	for _, c := range catCounts {
		if c > maxCat {
			maxCat = c
		}
	}
	functionalAlignment := float64(maxCat) / float64(n)

	return model.SemanticMetrics{
		TypeConsistency:       typeConsistency,
		PropertyAgreement:     propertyAgreement(members),
		DescriptionSimilarity: descriptionSimilarity(members),
		FunctionalAlignment:   functionalAlignment,
	}
}

// propertyAgreement is the fraction of shared-key property comparisons that
// match by canonical value, over all member pairs. Clusters with no shared
// keys agree vacuously.
func propertyAgreement(members []model.ComponentIdentification) float64 {
	comparisons, matches := 0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			for k, va := range members[i].Properties {
				vb, ok := members[j].Properties[k]
				if !ok {
					continue
				}
				comparisons++
				if CanonicalKey(va) == CanonicalKey(vb) {
					matches++
				}
			}
		}
	}
	if comparisons == 0 {
		return 1
	}
	return float64(matches) / float64(comparisons)
}

// descriptionSimilarity compares string-valued properties pairwise with
// token overlap. Informational only; the semantic score does not read it.
func descriptionSimilarity(members []model.ComponentIdentification) float64 {
	texts := make([]string, 0, len(members))
	for _, m := range members {
		var parts []string
		for _, v := range m.Properties {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			sort.Strings(parts)
			texts = append(texts, strings.Join(parts, " "))
		}
	}
	if len(texts) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			sum += tokenOverlap(texts[i], texts[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func tokenOverlap(a, b string) float64 {
	sa := fieldsSet(a)
	sb := fieldsSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func fieldsSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		set[f] = true
	}
	return set
}

// buildConsensusComponent finalizes one cluster into a consensus entity.
func buildConsensusComponent(c model.ComponentCluster, cfg model.ClusteringConfig) model.ConsensusComponent {
	members := c.Members

	consensusType := voteType(members)
	location := consensusLocation(members, cfg)
	properties := voteProperties(members)
	disagreements := detectDisagreements(c, cfg)

	confidence := 0.3*location.Confidence + 0.4*topTypeSupport(consensusType) + 0.3*meanConfidence(members)
	for _, d := range disagreements {
		switch d.Severity {
		case model.SeverityMajor, model.SeverityCritical:
			confidence -= 0.25
		case model.SeverityModerate:
			confidence -= 0.1
		}
	}
	confidence = model.Clamp01(confidence)

	return model.ConsensusComponent{
		ID:                  c.ID,
		Type:                consensusType,
		Location:            location,
		Properties:          properties,
		Confidence:          confidence,
		SupportingProviders: distinctProviders(members),
		Disagreements:       disagreements,
	}
}

func topTypeSupport(t model.ConsensusType) float64 {
	support := 1.0
	for _, alt := range t.Alternatives {
		support -= alt.Support
	}
	return model.Clamp01(support)
}

func meanConfidence(members []model.ComponentIdentification) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, m := range members {
		sum += model.Clamp01(m.Confidence)
	}
	return sum / float64(len(members))
}

// voteType picks the confidence-weighted plurality type, with alternatives
// ranked by their weighted support share.
func voteType(members []model.ComponentIdentification) model.ConsensusType {
	weights := make(map[string]float64)
	var total float64
	for _, m := range members {
		w := model.Clamp01(m.Confidence)
		if w == 0 {
			w = 0.01 // a zero-confidence vote still counts a little
		}
		weights[strings.ToLower(m.Type)] += w
		total += w
	}
	if total == 0 {
		return model.ConsensusType{}
	}

	type cand struct {
		t string
		w float64
	}
	cands := make([]cand, 0, len(weights))
	for t, w := range weights {
		cands = append(cands, cand{t, w})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].w != cands[j].w {
			return cands[i].w > cands[j].w
		}
		return cands[i].t < cands[j].t
	})

	out := model.ConsensusType{Primary: cands[0].t}
	for _, c := range cands[1:] {
		out.Alternatives = append(out.Alternatives, model.TypeAlternative{
			Type:    c.t,
			Support: c.w / total,
		})
	}
	return out
}

// consensusLocation is the confidence-weighted centroid with per-axis
// [min,max] uncertainty and confidence derived from how tightly the members
// sit around it relative to the spatial threshold.
func consensusLocation(members []model.ComponentIdentification, cfg model.ClusteringConfig) model.ConsensusLocation {
	if len(members) == 0 {
		return model.ConsensusLocation{}
	}
	centroid := weightedCentroid(members)

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	var sumDist float64
	for _, m := range members {
		minX = math.Min(minX, m.Location.X)
		maxX = math.Max(maxX, m.Location.X)
		minY = math.Min(minY, m.Location.Y)
		maxY = math.Max(maxY, m.Location.Y)
		dx := m.Location.X - centroid.X
		dy := m.Location.Y - centroid.Y
		sumDist += math.Sqrt(dx*dx + dy*dy)
	}

	normalized := 0.0
	if cfg.SpatialThreshold > 0 {
		normalized = (sumDist / float64(len(members))) / cfg.SpatialThreshold
	}
	return model.ConsensusLocation{
		X:          centroid.X,
		Y:          centroid.Y,
		RangeX:     [2]float64{minX, maxX},
		RangeY:     [2]float64{minY, maxY},
		Confidence: math.Max(0, 1-normalized),
	}
}

// voteProperties runs per-key confidence-weighted value voting. A winner
// with support above 0.7, or with no competition, is agreed; contested keys
// are recorded as disputed with the strategy noted but unresolved. Keys
// present in only some members are flagged missing.
func voteProperties(members []model.ComponentIdentification) model.ConsensusProperties {
	type ballotBox struct {
		weights map[string]float64     // canonical -> weight
		values  map[string]interface{} // canonical -> representative value
		holders int                    // members carrying the key
		total   float64
	}
	boxes := make(map[string]*ballotBox)

	for _, m := range members {
		w := model.Clamp01(m.Confidence)
		if w == 0 {
			w = 0.01
		}
		for k, v := range m.Properties {
			box := boxes[k]
			if box == nil {
				box = &ballotBox{weights: map[string]float64{}, values: map[string]interface{}{}}
				boxes[k] = box
			}
			ck := CanonicalKey(v)
			box.weights[ck] += w
			if _, ok := box.values[ck]; !ok {
				box.values[ck] = v
			}
			box.holders++
			box.total += w
		}
	}

	out := model.ConsensusProperties{}
	for key, box := range boxes {
		if box.holders < len(members) {
			out.Missing = append(out.Missing, key)
		}

		candidates := make([]model.PropertyCandidate, 0, len(box.weights))
		for ck, w := range box.weights {
			candidates = append(candidates, model.PropertyCandidate{
				Value:   box.values[ck],
				Support: w / box.total,
			})
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Support != candidates[j].Support {
				return candidates[i].Support > candidates[j].Support
			}
			return CanonicalKey(candidates[i].Value) < CanonicalKey(candidates[j].Value)
		})

		winner := candidates[0]
		rest := candidates[1:]
		if winner.Support > 0.7 || len(rest) == 0 {
			if out.Agreed == nil {
				out.Agreed = make(map[string]model.AgreedProperty)
			}
			out.Agreed[key] = model.AgreedProperty{
				Value:        winner.Value,
				Support:      winner.Support,
				Alternatives: rest,
			}
		} else {
			if out.Disputed == nil {
				out.Disputed = make(map[string]model.DisputedProperty)
			}
			out.Disputed[key] = model.DisputedProperty{
				Candidates: candidates,
				Strategy:   "confidence_weighted_vote",
			}
		}
	}
	sort.Strings(out.Missing)
	return out
}

// detectDisagreements emits location and type disagreements for one cluster.
func detectDisagreements(c model.ComponentCluster, cfg model.ClusteringConfig) []model.Disagreement {
	var out []model.Disagreement
	members := c.Members
	n := len(members)
	if n < 2 {
		return nil
	}

	threshold := cfg.SpatialThreshold
	if threshold > 0 && c.Spatial.Variance > threshold*threshold {
		severity := model.SeverityModerate
		if c.Spatial.Variance > (2*threshold)*(2*threshold) {
			severity = model.SeverityMajor
		}
		out = append(out, model.Disagreement{
			Aspect:    model.AspectLocation,
			Severity:  severity,
			Score:     model.Clamp01(math.Sqrt(c.Spatial.Variance) / (2 * threshold)),
			Kind:      "spatial_mismatch",
			Providers: distinctProviders(members),
			Resolution: model.Resolution{
				Strategy:   "weighted_centroid",
				Confidence: c.Confidence.Spatial,
				Rationale:  "location resolved to the confidence-weighted centroid",
			},
		})
	}

	types := make(map[string]bool)
	for _, m := range members {
		types[strings.ToLower(m.Type)] = true
	}
	if len(types) > 1 {
		severity := model.SeverityModerate
		if len(types) > 2 {
			severity = model.SeverityMajor
		}
		out = append(out, model.Disagreement{
			Aspect:    model.AspectType,
			Severity:  severity,
			Score:     model.Clamp01(float64(len(types)-1) / float64(n-1)),
			Kind:      "type_mismatch",
			Providers: distinctProviders(members),
			Resolution: model.Resolution{
				Strategy:   "weighted_plurality",
				Confidence: c.Semantic.TypeConsistency,
				Rationale:  fmt.Sprintf("%d distinct types resolved by confidence-weighted plurality", len(types)),
			},
		})
	}
	return out
}

// distinctProviders returns the deduplicated provider set, sorted.
func distinctProviders(members []model.ComponentIdentification) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range members {
		if m.Provider != "" && !seen[m.Provider] {
			seen[m.Provider] = true
			out = append(out, m.Provider)
		}
	}
	sort.Strings(out)
	return out
}
