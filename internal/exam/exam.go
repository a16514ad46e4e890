// Package exam scores how likely each concept is to appear on an exam and
// turns those scores into a study priority list.
package exam

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

// Factor weights.
const (
	weightEmphasis   = 0.35
	weightCentrality = 0.25
	weightSyllabus   = 0.15
	weightRecency    = 0.10
	weightComplexity = 0.15
)

// DefaultSyllabusAlignment is used until syllabus data can be matched.
const DefaultSyllabusAlignment = 0.5

// DefaultTopTopics is the default TopTopics limit.
const DefaultTopTopics = 10

// SyllabusFunc scores how well a node matches the course syllabus.
type SyllabusFunc func(models.Node) float64

// Scorer computes exam predictions.
type Scorer struct {
	syllabus SyllabusFunc
}

// NewScorer returns a Scorer. A nil syllabus uses DefaultSyllabusAlignment.
func NewScorer(syllabus SyllabusFunc) *Scorer {
	if syllabus == nil {
		syllabus = func(models.Node) float64 { return DefaultSyllabusAlignment }
	}

	return &Scorer{syllabus: syllabus}
}

// Predict scores every node and returns predictions ordered by descending
// probability. transcript may be empty.
func (s *Scorer) Predict(nodes []models.Node, transcript string) []models.ExamPrediction {
	if len(nodes) == 0 {
		return []models.ExamPrediction{}
	}

	var counts map[string]float64
	if transcript != "" {
		counts = AnalyzeEmphasis(transcript)
	}

	stamps := make([]time.Time, len(nodes))
	for i, n := range nodes {
		stamps[i] = n.Timestamp
	}

	out := make([]models.ExamPrediction, len(nodes))
	for i, n := range nodes {
		f := models.ExamFactors{
			ProfessorEmphasis: EmphasisFor(n.Label, counts),
			ConceptCentrality: Centrality(n, nodes),
			SyllabusAlignment: s.syllabus(n),
			RecencyWeight:     Recency(n.Timestamp, stamps),
			ComplexityScore:   Complexity(n),
		}

		p := Probability(f)

		out[i] = models.ExamPrediction{
			NodeID:      n.ID,
			Label:       n.Label,
			Probability: p,
			Confidence:  ConfidenceBucket(p),
			Reasons:     reasons(n, f),
			Factors:     f,
		}
	}

	slices.SortStableFunc(out, func(a, b models.ExamPrediction) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	return out
}

// TopTopics returns the limit most likely exam topics.
func (s *Scorer) TopTopics(nodes []models.Node, transcript string, limit int) []models.ExamPrediction {
	if limit <= 0 {
		limit = DefaultTopTopics
	}

	preds := s.Predict(nodes, transcript)
	if len(preds) > limit {
		preds = preds[:limit]
	}

	return preds
}

// StudyPriority predicts exam probabilities and ranks nodes for study.
func (s *Scorer) StudyPriority(nodes []models.Node, transcript string) []models.StudyPriority {
	preds := s.Predict(nodes, transcript)

	probs := make(map[string]float64, len(preds))
	for _, p := range preds {
		probs[p.NodeID] = p.Probability
	}

	return StudyPriorities(nodes, probs)
}

// Probability combines the factors into a single clamped score.
func Probability(f models.ExamFactors) float64 {
	p := weightEmphasis*f.ProfessorEmphasis +
		weightCentrality*f.ConceptCentrality +
		weightSyllabus*f.SyllabusAlignment +
		weightRecency*f.RecencyWeight +
		weightComplexity*f.ComplexityScore

	return math.Max(0, math.Min(1, p))
}

// ConfidenceBucket labels a probability as high, medium or low.
func ConfidenceBucket(p float64) string {
	switch {
	case p > 0.7:
		return models.ConfidenceHigh
	case p > 0.4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func reasons(n models.Node, f models.ExamFactors) []string {
	out := []string{}

	if f.ProfessorEmphasis > 0.5 {
		out = append(out, "Frequently emphasized by professor")
	}

	if f.ConceptCentrality > 0.6 {
		out = append(out, "Central concept with many connections")
	}

	if n.Category == models.CategoryFormula {
		out = append(out, "Formula-based question likely")
	}

	if f.RecencyWeight > 0.8 {
		out = append(out, "Recently discussed topic")
	}

	if f.ComplexityScore > 0.7 {
		out = append(out, "Complex topic requiring deep understanding")
	}

	return out
}

// StudyPriorities ranks nodes by exam probability weighted by how much is
// left to learn. Nodes missing from probs count as probability 0. The result
// is grouped critical first; order within a group follows nodes.
func StudyPriorities(nodes []models.Node, probs map[string]float64) []models.StudyPriority {
	out := make([]models.StudyPriority, len(nodes))

	for i, n := range nodes {
		prob := probs[n.ID]
		mastery := n.SRS.Mastery
		score := prob * (1 - mastery)

		sp := models.StudyPriority{NodeID: n.ID, Label: n.Label, Score: score}

		switch {
		case score > 0.6:
			sp.Priority = models.PriorityCritical
			sp.Reason = "High exam likelihood, needs more practice"
		case score > 0.4:
			sp.Priority = models.PriorityHigh
			sp.Reason = "Good foundation, needs reinforcement"
			if prob > 0.5 {
				sp.Reason = "Likely exam topic, moderate mastery"
			}
		case score > 0.2:
			sp.Priority = models.PriorityMedium
			sp.Reason = "Moderate importance, adequate understanding"
		default:
			sp.Priority = models.PriorityLow
			sp.Reason = "Lower exam probability"
			if mastery > 0.7 {
				sp.Reason = "Well mastered"
			}
		}

		out[i] = sp
	}

	slices.SortStableFunc(out, func(a, b models.StudyPriority) int {
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	})

	return out
}
