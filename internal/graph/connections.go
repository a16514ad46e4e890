package graph

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/metrics"
	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/similarity"
)

// Connection-building limits.
const (
	ConnectionThreshold = 0.7
	MaxConnections      = 5
	DefaultTopK         = 5
)

// BuildConnections recomputes every node's connections from pairwise
// embedding similarity, replacing the previous lists wholesale. It runs as an
// exclusive phase: no node is inserted or removed while it works. A cancelled
// ctx leaves the existing connections untouched.
func (s *Store) BuildConnections(ctx context.Context) error {
	s.phase.Lock()
	defer s.phase.Unlock()

	start := time.Now()

	s.mu.RLock()
	ids := slices.Clone(s.order)
	vecs := make([][]float64, len(ids))
	for i, id := range ids {
		vecs[i] = s.nodes[id].Embedding
	}
	s.mu.RUnlock()

	conns, err := computeConnections(ctx, ids, vecs)
	if err != nil {
		return err
	}

	total := 0

	s.mu.Lock()
	for i, id := range ids {
		if n, ok := s.nodes[id]; ok {
			n.Connections = conns[i]
			total += len(conns[i])
		}
	}
	s.mu.Unlock()

	elapsed := time.Since(start)
	metrics.ConnectionBuildDuration.Observe(elapsed.Seconds())

	s.log.WithFields(logrus.Fields{
		"nodes":       len(ids),
		"connections": total,
		"duration":    elapsed,
	}).Info("connections rebuilt")

	s.events.Publish(EventGraphRebuilt, GraphEvent{Nodes: len(ids), Connections: total})

	return nil
}

// computeConnections returns, for each node, its strongest neighbors at or
// above ConnectionThreshold, capped at MaxConnections.
func computeConnections(ctx context.Context, ids []string, vecs [][]float64) ([][]models.Connection, error) {
	n := len(ids)
	candidates := make([][]models.Connection, n)

	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j := i + 1; j < n; j++ {
			sim := similarity.Cosine(vecs[i], vecs[j])
			if sim < ConnectionThreshold {
				continue
			}

			candidates[i] = append(candidates[i], models.Connection{TargetID: ids[j], Strength: sim})
			candidates[j] = append(candidates[j], models.Connection{TargetID: ids[i], Strength: sim})
		}
	}

	// Candidates are appended in collection order, so stable sorting keeps
	// ties identical across rebuilds.
	out := make([][]models.Connection, n)
	for i, c := range candidates {
		sortConnections(c)

		if len(c) > MaxConnections {
			c = c[:MaxConnections]
		}

		if c == nil {
			c = []models.Connection{}
		}

		out[i] = c
	}

	return out, nil
}

// sortConnections orders by descending strength, keeping input order on ties.
func sortConnections(c []models.Connection) {
	slices.SortStableFunc(c, func(a, b models.Connection) int {
		return cmp.Compare(b.Strength, a.Strength)
	})
}

// RankNodes scores nodes against query and returns the top k. A
// non-positive k returns every node.
func RankNodes(query []float64, nodes []models.Node, k int) []models.ScoredNode {
	ranked := similarity.TopK(query, nodes, func(n models.Node) []float64 { return n.Embedding }, k)

	out := make([]models.ScoredNode, len(ranked))
	for i, r := range ranked {
		out[i] = models.ScoredNode{Node: r.Item, Similarity: r.Score}
	}

	return out
}
