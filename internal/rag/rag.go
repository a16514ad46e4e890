// Package rag builds retrieval context from the knowledge graph for a
// free-text query: the relevant concepts, what they build upon, and what
// around them needs review.
package rag

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/similarity"
	"github.com/studynexus/nexus/internal/srs"
)

// Retrieval limits.
const (
	DefaultTopK           = 5
	RelevanceThreshold    = 0.5
	PrerequisiteThreshold = 0.6
	MaxPrerequisiteDepth  = 5
	PrerequisitesPerLevel = 2
	MaxSuggestedReview    = 5
	ReviewMasteryCutoff   = 0.5
)

// NodeSource is the read side of the node collection.
type NodeSource interface {
	ListNodes() []models.Node
	Embed(ctx context.Context, text string) ([]float64, error)
	Now() time.Time
}

// Builder assembles retrieval context.
type Builder struct {
	src NodeSource
	log *logrus.Logger
}

// NewBuilder creates a Builder over src.
func NewBuilder(src NodeSource, log *logrus.Logger) *Builder {
	return &Builder{src: src, log: log}
}

func emptyContext() models.RAGContext {
	return models.RAGContext{
		RelevantNodes:     []models.Node{},
		PrerequisiteChain: []models.Node{},
		SuggestedReview:   []models.Node{},
	}
}

func nodeVec(n models.Node) []float64 { return n.Embedding }

// BuildContext returns the retrieval context for query. An empty collection
// yields an empty context with zero confidence. A cancelled ctx returns its
// error so the caller can drop the stale result.
func (b *Builder) BuildContext(ctx context.Context, query string, topK int) (models.RAGContext, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	nodes := b.src.ListNodes()
	if len(nodes) == 0 {
		return emptyContext(), nil
	}

	vec, err := b.src.Embed(ctx, query)
	if err != nil {
		return models.RAGContext{}, fmt.Errorf("embedding query: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return models.RAGContext{}, err
	}

	rc := emptyContext()

	for _, s := range similarity.Rank(vec, nodes, nodeVec) {
		if s.Score <= RelevanceThreshold || len(rc.RelevantNodes) == topK {
			break
		}

		rc.RelevantNodes = append(rc.RelevantNodes, s.Item)
	}

	if len(rc.RelevantNodes) > 0 {
		rc.PrerequisiteChain = PrerequisiteChain(rc.RelevantNodes[0], nodes)
	}

	rc.SuggestedReview = SuggestedReview(rc.RelevantNodes, nodes, b.src.Now())
	rc.Confidence = Confidence(rc.RelevantNodes)

	b.log.WithFields(logrus.Fields{
		"relevant":      len(rc.RelevantNodes),
		"prerequisites": len(rc.PrerequisiteChain),
		"review":        len(rc.SuggestedReview),
	}).Debug("retrieval context built")

	return rc, nil
}

// PrerequisiteChain walks from start towards foundational concepts: at each
// step it picks up to two unvisited nodes of strictly lower depth whose
// similarity to the current node exceeds 0.6, then continues from each of
// them, at most five levels deep.
func PrerequisiteChain(start models.Node, nodes []models.Node) []models.Node {
	chain := []models.Node{}
	visited := make(map[string]bool)

	var walk func(cur models.Node, level int)
	walk = func(cur models.Node, level int) {
		if level >= MaxPrerequisiteDepth || visited[cur.ID] {
			return
		}

		visited[cur.ID] = true

		candidates := make([]models.Node, 0)
		for _, n := range nodes {
			if n.ID != cur.ID && n.Depth < cur.Depth && !visited[n.ID] {
				candidates = append(candidates, n)
			}
		}

		picked := 0
		for _, s := range similarity.Rank(cur.Embedding, candidates, nodeVec) {
			if s.Score <= PrerequisiteThreshold || picked == PrerequisitesPerLevel {
				break
			}

			// An earlier branch may already have reached this node.
			if visited[s.Item.ID] {
				continue
			}

			picked++
			chain = append(chain, s.Item)
			walk(s.Item, level+1)
		}
	}

	walk(start, 0)

	return chain
}

// SuggestedReview returns nodes connected to any relevant node that are due
// or weakly mastered, weakest first, at most five.
func SuggestedReview(relevant, nodes []models.Node, now time.Time) []models.Node {
	connected := make(map[string]bool)
	for _, r := range relevant {
		for _, c := range r.Connections {
			connected[c.TargetID] = true
		}
	}

	out := []models.Node{}
	for _, n := range nodes {
		if connected[n.ID] && (srs.IsDue(n.SRS, now) || n.SRS.Mastery < ReviewMasteryCutoff) {
			out = append(out, n)
		}
	}

	srs.ByMastery(out)

	if len(out) > MaxSuggestedReview {
		out = out[:MaxSuggestedReview]
	}

	return out
}

// Confidence scores how well the collection covers a query: half from how
// many relevant nodes were found, half from their mean mastery.
func Confidence(relevant []models.Node) float64 {
	if len(relevant) == 0 {
		return 0
	}

	var sum float64
	for _, n := range relevant {
		sum += n.SRS.Mastery
	}

	coverage := math.Min(1, float64(len(relevant))/DefaultTopK)

	return 0.5*coverage + 0.5*(sum/float64(len(relevant)))
}

// minutesPerConcept is the study time estimated for a concept never seen.
const minutesPerConcept = 15

// LearningPath orders the prerequisites of the best match for goal from most
// foundational to the goal itself and estimates the study time.
func (b *Builder) LearningPath(ctx context.Context, goal string) (models.LearningPath, error) {
	rc, err := b.BuildContext(ctx, goal, DefaultTopK)
	if err != nil {
		return models.LearningPath{}, err
	}

	path := slices.Clone(rc.PrerequisiteChain)
	slices.Reverse(path)

	if len(rc.RelevantNodes) > 0 {
		path = append(path, rc.RelevantNodes[0])
	}

	minutes := 0
	for _, n := range path {
		minutes += int(math.Round((1 - n.SRS.Mastery) * minutesPerConcept))
	}

	return models.LearningPath{Path: path, EstimatedMinutes: minutes}, nil
}

// Suggestion limits.
const (
	DefaultSuggestions = 3
	suggestionPool     = 10
	suggestionCutoff   = 0.7
)

// SuggestNext returns up to limit not-yet-mastered concepts related to topic.
func (b *Builder) SuggestNext(ctx context.Context, topic string, limit int) ([]models.ConceptSuggestion, error) {
	if limit <= 0 {
		limit = DefaultSuggestions
	}

	nodes := b.src.ListNodes()
	if len(nodes) == 0 {
		return []models.ConceptSuggestion{}, nil
	}

	vec, err := b.src.Embed(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("embedding topic: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []models.ConceptSuggestion{}
	for _, s := range similarity.TopK(vec, nodes, nodeVec, suggestionPool) {
		if len(out) == limit {
			break
		}

		m := s.Item.SRS.Mastery
		if m >= suggestionCutoff {
			continue
		}

		reason := "New related concept to explore"
		if m > 0 {
			reason = fmt.Sprintf("Related concept at %d%% mastery", percent(m))
		}

		out = append(out, models.ConceptSuggestion{Node: s.Item, Reason: reason})
	}

	return out, nil
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
