package exam

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

var emphasisKeywords = []string{
	"important", "exam", "test", "remember", "critical", "key concept",
	"make sure", "note this", "pay attention", "fundamental", "essential",
	"must know", "will be on", "commonly asked", "frequently tested",
}

var formulaKeywords = []string{
	"formula", "calculate", "compute", "equation", "solve", "derive",
	"npv", "irr", "wacc", "capm", "roi", "cagr", "ratio",
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	// Capitalized words or runs of them, plus quoted phrases.
	termPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]+(?:\s[A-Z][A-Za-z0-9]+)*\b|"[^"]+"|'[^']+'`)
)

// emphasisScale is the mention weight that saturates the emphasis factor.
const emphasisScale = 10

// AnalyzeEmphasis scans transcript sentences containing emphasis or formula
// cues and weights the capitalized or quoted terms in them: 2 per mention in
// an emphasized sentence, 1 in a formula-only sentence. Keys are lowercased.
func AnalyzeEmphasis(transcript string) map[string]float64 {
	out := make(map[string]float64)

	for _, sentence := range sentenceSplit.Split(transcript, -1) {
		lower := strings.ToLower(sentence)
		emphasized := containsAny(lower, emphasisKeywords)

		if !emphasized && !containsAny(lower, formulaKeywords) {
			continue
		}

		weight := 1.0
		if emphasized {
			weight = 2
		}

		for _, term := range termPattern.FindAllString(sentence, -1) {
			for _, key := range termKeys(term) {
				out[key] += weight
			}
		}
	}

	return out
}

// termKeys expands one matched term into the lowercased keys it credits.
// A quoted phrase is a single key; a run of capitalized words credits every
// contiguous sub-run, so "Remember NPV" counts for both "npv" and
// "remember npv" and "Net Present Value" still matches as a whole.
func termKeys(term string) []string {
	if strings.HasPrefix(term, `"`) || strings.HasPrefix(term, "'") {
		clean := strings.ToLower(strings.TrimSpace(strings.Trim(term, `"'`)))
		if len(clean) > 2 {
			return []string{clean}
		}
		return nil
	}

	words := strings.Fields(strings.ToLower(term))
	var keys []string
	for i := range words {
		for j := i + 1; j <= len(words); j++ {
			if key := strings.Join(words[i:j], " "); len(key) > 2 {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// EmphasisFor returns the emphasis factor for label given AnalyzeEmphasis output.
func EmphasisFor(label string, counts map[string]float64) float64 {
	return math.Min(1, counts[strings.ToLower(strings.TrimSpace(label))]/emphasisScale)
}

// Centrality blends a node's normalized degree with its mean connection strength.
func Centrality(node models.Node, all []models.Node) float64 {
	if len(all) == 0 {
		return 0
	}

	maxDegree := 1
	for _, n := range all {
		maxDegree = max(maxDegree, len(n.Connections))
	}

	degree := float64(len(node.Connections)) / float64(maxDegree)

	var avgStrength float64
	if len(node.Connections) > 0 {
		for _, c := range node.Connections {
			avgStrength += c.Strength
		}

		avgStrength /= float64(len(node.Connections))
	}

	return 0.6*degree + 0.4*avgStrength
}

// Recency places ts within the range of timestamps: 0 for the oldest, 1 for
// the newest. Without a range it is 0.5.
func Recency(ts time.Time, all []time.Time) float64 {
	if len(all) == 0 {
		return 0.5
	}

	lo, hi := all[0], all[0]
	for _, t := range all[1:] {
		if t.Before(lo) {
			lo = t
		}

		if t.After(hi) {
			hi = t
		}
	}

	span := hi.Sub(lo)
	if span <= 0 {
		return 0.5
	}

	return float64(ts.Sub(lo)) / float64(span)
}

var categoryWeights = map[models.Category]float64{
	models.CategoryFormula:    0.9,
	models.CategoryConcept:    0.7,
	models.CategoryTrend:      0.6,
	models.CategoryDefinition: 0.5,
	models.CategoryExample:    0.3,
}

// Complexity blends depth (saturating at 3) with a per-category weight.
func Complexity(node models.Node) float64 {
	w, ok := categoryWeights[node.Category]
	if !ok {
		w = 0.5
	}

	return 0.4*math.Min(float64(node.Depth)/3, 1) + 0.6*w
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}

	return false
}
