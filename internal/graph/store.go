// Package graph owns the in-memory knowledge graph: nodes, their scheduling
// state and the similarity connections between them.
package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/embedding"
	"github.com/studynexus/nexus/internal/metrics"
	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/srs"
)

// Store is the process-wide node collection.
//
// mu guards nodes and order. phase separates connection rebuilds from
// insertions and removals: mutations that change membership hold it shared,
// BuildConnections and Load hold it exclusively. Embeddings are always
// computed before either lock is taken.
type Store struct {
	mu    sync.RWMutex
	phase sync.RWMutex
	nodes map[string]*models.Node
	order []string

	embedder embedding.Provider
	events   EventPublisher
	now      func() time.Time
	log      *logrus.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEvents sets the change publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *Store) {
		if p != nil {
			s.events = p
		}
	}
}

// New creates an empty Store.
func New(embedder embedding.Provider, log *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		nodes:    make(map[string]*models.Node),
		embedder: embedder,
		events:   nopPublisher{},
		now:      time.Now,
		log:      log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Embed exposes the store's embedder for read-side callers.
func (s *Store) Embed(ctx context.Context, text string) ([]float64, error) {
	return s.embedder.Embed(ctx, text)
}

// AddNode embeds and inserts a new node and returns its id. An empty
// category is inferred with Categorize.
func (s *Store) AddNode(ctx context.Context, in models.NewNode) (string, error) {
	in.Label = strings.TrimSpace(in.Label)
	if in.Label == "" {
		return "", models.ErrMissingLabel
	}

	if in.Category == "" {
		in.Category = Categorize(in.Label, in.Explanation)
	}

	if !in.Category.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidCategory, in.Category)
	}

	vec, err := s.embedder.Embed(ctx, models.EmbeddingText(in.Label, in.Explanation))
	if err != nil {
		return "", fmt.Errorf("embedding node: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	node := s.newNode(in, vec)

	s.phase.RLock()
	s.mu.Lock()
	s.insertLocked(node)
	total := len(s.nodes)
	s.mu.Unlock()
	s.phase.RUnlock()

	metrics.NodeCount.Set(float64(total))
	s.events.Publish(EventNodeCreated, NodeEvent{NodeID: node.ID, Label: node.Label})

	s.log.WithFields(logrus.Fields{
		"node_id":  node.ID,
		"category": node.Category,
	}).Debug("node added")

	return node.ID, nil
}

func (s *Store) newNode(in models.NewNode, vec []float64) *models.Node {
	now := s.now()

	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}

	return &models.Node{
		ID:          uuid.New().String(),
		Label:       in.Label,
		Explanation: in.Explanation,
		Category:    in.Category,
		Embedding:   vec,
		SRS:         srs.NewItem(now),
		Depth:       max(0, in.Depth),
		ParentID:    in.ParentID,
		ChildIDs:    []string{},
		Connections: []models.Connection{},
		Timestamp:   ts,
		SessionID:   in.SessionID,
	}
}

// insertLocked adds node and links it under its parent. Caller holds mu.
func (s *Store) insertLocked(node *models.Node) {
	s.nodes[node.ID] = node
	s.order = append(s.order, node.ID)

	if node.ParentID == "" {
		return
	}

	if parent, ok := s.nodes[node.ParentID]; ok {
		if !slices.Contains(parent.ChildIDs, node.ID) {
			parent.ChildIDs = append(parent.ChildIDs, node.ID)
		}
	} else {
		node.ParentID = ""
	}
}

// ImportConcepts adds every concept, embedding them as one batch, then runs
// a single connection rebuild. It returns the new ids in input order.
func (s *Store) ImportConcepts(ctx context.Context, concepts []models.ConceptInput, sessionID string) ([]string, error) {
	inputs := make([]models.NewNode, 0, len(concepts))
	texts := make([]string, 0, len(concepts))

	for _, c := range concepts {
		label := strings.TrimSpace(c.Keyword)
		if label == "" {
			return nil, models.ErrMissingLabel
		}

		inputs = append(inputs, models.NewNode{
			Label:       label,
			Explanation: c.Explanation,
			Category:    Categorize(label, c.Explanation),
			SessionID:   sessionID,
			Timestamp:   c.Timestamp,
		})
		texts = append(texts, models.EmbeddingText(label, c.Explanation))
	}

	if len(inputs) == 0 {
		return []string{}, nil
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding concepts: %w", err)
	}

	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embedding concepts: got %d vectors for %d concepts", len(vecs), len(inputs))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, len(inputs))
	nodes := make([]*models.Node, len(inputs))

	for i, in := range inputs {
		nodes[i] = s.newNode(in, vecs[i])
		ids[i] = nodes[i].ID
	}

	s.phase.RLock()
	s.mu.Lock()
	for _, n := range nodes {
		s.insertLocked(n)
	}
	total := len(s.nodes)
	s.mu.Unlock()
	s.phase.RUnlock()

	metrics.NodeCount.Set(float64(total))

	for _, n := range nodes {
		s.events.Publish(EventNodeCreated, NodeEvent{NodeID: n.ID, Label: n.Label})
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"count":      len(nodes),
	}).Info("concepts imported")

	if err := s.BuildConnections(ctx); err != nil {
		return ids, fmt.Errorf("building connections after import: %w", err)
	}

	return ids, nil
}

// UpdateNode merge-patches a node. It reports false without error when the
// node does not exist. Changing the label or explanation re-embeds the node.
func (s *Store) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (bool, error) {
	if patch.Category != nil && !patch.Category.Valid() {
		return false, fmt.Errorf("%w: %q", models.ErrInvalidCategory, *patch.Category)
	}

	if patch.Label != nil && strings.TrimSpace(*patch.Label) == "" {
		return false, models.ErrMissingLabel
	}

	s.mu.RLock()
	current, ok := s.nodes[id]
	var label, explanation string
	if ok {
		label, explanation = current.Label, current.Explanation
	}
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	var vec []float64
	if patch.TouchesText() {
		if patch.Label != nil {
			label = strings.TrimSpace(*patch.Label)
		}

		if patch.Explanation != nil {
			explanation = *patch.Explanation
		}

		var err error

		vec, err = s.embedder.Embed(ctx, models.EmbeddingText(label, explanation))
		if err != nil {
			return false, fmt.Errorf("embedding node: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	node, ok := s.nodes[id]
	if ok {
		s.applyPatchLocked(node, patch)

		if vec != nil && node.Label == label && node.Explanation == explanation {
			node.Embedding = vec
		}
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	s.events.Publish(EventNodeUpdated, NodeEvent{NodeID: id, Label: label})

	return true, nil
}

func (s *Store) applyPatchLocked(node *models.Node, p models.NodePatch) {
	if p.Label != nil {
		node.Label = strings.TrimSpace(*p.Label)
	}

	if p.Explanation != nil {
		node.Explanation = *p.Explanation
	}

	if p.Category != nil {
		node.Category = *p.Category
	}

	if p.Depth != nil {
		node.Depth = max(0, *p.Depth)
	}

	if p.SessionID != nil {
		node.SessionID = *p.SessionID
	}

	if p.ExamProbability != nil {
		v := *p.ExamProbability
		node.ExamProbability = &v
	}

	if p.ChildIDs != nil {
		children := make([]string, 0, len(p.ChildIDs))
		for _, c := range p.ChildIDs {
			if _, ok := s.nodes[c]; ok && c != node.ID {
				children = append(children, c)
			}
		}

		node.ChildIDs = children
	}

	if p.ParentID != nil && *p.ParentID != node.ParentID {
		if old, ok := s.nodes[node.ParentID]; ok {
			old.ChildIDs = slices.DeleteFunc(old.ChildIDs, func(c string) bool { return c == node.ID })
		}

		node.ParentID = ""

		if parent, ok := s.nodes[*p.ParentID]; ok && parent.ID != node.ID {
			node.ParentID = parent.ID
			if !slices.Contains(parent.ChildIDs, node.ID) {
				parent.ChildIDs = append(parent.ChildIDs, node.ID)
			}
		}
	}
}

// RemoveNode deletes a node and scrubs every reference to it from the
// remaining nodes. It reports whether the node existed.
func (s *Store) RemoveNode(id string) bool {
	s.phase.RLock()
	defer s.phase.RUnlock()

	s.mu.Lock()

	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })

	for _, other := range s.nodes {
		other.Connections = slices.DeleteFunc(other.Connections, func(c models.Connection) bool { return c.TargetID == id })
		other.ChildIDs = slices.DeleteFunc(other.ChildIDs, func(c string) bool { return c == id })

		if other.ParentID == id {
			other.ParentID = ""
		}
	}

	total := len(s.nodes)
	s.mu.Unlock()

	metrics.NodeCount.Set(float64(total))
	s.events.Publish(EventNodeRemoved, NodeEvent{NodeID: id, Label: node.Label})

	return true
}

// GetNode returns a copy of the node with the given id.
func (s *Store) GetNode(id string) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return models.Node{}, false
	}

	return n.Clone(), true
}

// ListNodes returns copies of all nodes in insertion order.
func (s *Store) ListNodes() []models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}

	return out
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

// FindSimilarNodes embeds query and returns the k most similar nodes. A
// non-positive k defaults to 5. A cancelled ctx discards the result.
func (s *Store) FindSimilarNodes(ctx context.Context, query string, k int) ([]models.ScoredNode, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return RankNodes(vec, s.ListNodes(), k), nil
}

// SetExamProbabilities caches scorer output on the matching nodes.
func (s *Store) SetExamProbabilities(probs map[string]float64) {
	s.mu.Lock()

	changed := 0
	for id, p := range probs {
		n, ok := s.nodes[id]
		if !ok || (n.ExamProbability != nil && *n.ExamProbability == p) {
			continue
		}

		v := p
		n.ExamProbability = &v
		changed++
	}

	s.mu.Unlock()

	if changed > 0 {
		s.events.Publish(EventExamScored, GraphEvent{Nodes: changed})
	}
}

// Load replaces the collection with nodes, dropping duplicate ids and
// dangling references.
func (s *Store) Load(nodes []models.Node) {
	s.phase.Lock()
	defer s.phase.Unlock()

	loaded := make(map[string]*models.Node, len(nodes))
	order := make([]string, 0, len(nodes))

	for i := range nodes {
		n := nodes[i].Clone()
		if n.ID == "" {
			continue
		}

		if _, dup := loaded[n.ID]; dup {
			continue
		}

		if n.SRS.EaseFactor == 0 {
			n.SRS.EaseFactor = srs.InitialEase
		}

		if !n.Category.Valid() {
			n.Category = Categorize(n.Label, n.Explanation)
		}

		loaded[n.ID] = &n
		order = append(order, n.ID)
	}

	for _, n := range loaded {
		sanitizeRefs(n, loaded)
	}

	s.mu.Lock()
	s.nodes = loaded
	s.order = order
	s.mu.Unlock()

	metrics.NodeCount.Set(float64(len(order)))
	s.events.Publish(EventGraphLoaded, GraphEvent{Nodes: len(order)})
}

// sanitizeRefs drops self and unknown references and restores connection order.
func sanitizeRefs(n *models.Node, all map[string]*models.Node) {
	conns := make([]models.Connection, 0, len(n.Connections))
	for _, c := range n.Connections {
		if _, ok := all[c.TargetID]; ok && c.TargetID != n.ID {
			conns = append(conns, c)
		}
	}

	sortConnections(conns)
	if len(conns) > MaxConnections {
		conns = conns[:MaxConnections]
	}

	n.Connections = conns

	children := make([]string, 0, len(n.ChildIDs))
	for _, c := range n.ChildIDs {
		if _, ok := all[c]; ok && c != n.ID {
			children = append(children, c)
		}
	}

	n.ChildIDs = children

	if _, ok := all[n.ParentID]; !ok || n.ParentID == n.ID {
		n.ParentID = ""
	}
}

// Clear removes every node.
func (s *Store) Clear() {
	s.phase.Lock()
	defer s.phase.Unlock()

	s.mu.Lock()
	s.nodes = make(map[string]*models.Node)
	s.order = nil
	s.mu.Unlock()

	metrics.NodeCount.Set(0)
	s.events.Publish(EventGraphCleared, GraphEvent{})
}

// Reembed recomputes every embedding whose length is not dims, such as
// nodes loaded from a snapshot written under another embedding model, then
// rebuilds connections. It returns the number of nodes re-embedded.
func (s *Store) Reembed(ctx context.Context, dims int) (int, error) {
	var (
		ids   []string
		texts []string
	)

	s.mu.RLock()
	for _, id := range s.order {
		if n := s.nodes[id]; len(n.Embedding) != dims {
			ids = append(ids, id)
			texts = append(texts, n.EmbeddingText())
		}
	}
	s.mu.RUnlock()

	if len(ids) == 0 {
		return 0, nil
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("re-embedding nodes: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	updated := 0

	s.phase.RLock()
	s.mu.Lock()
	for i, id := range ids {
		// Skip nodes edited while the batch was in flight.
		if n, ok := s.nodes[id]; ok && n.EmbeddingText() == texts[i] && i < len(vecs) {
			n.Embedding = vecs[i]
			updated++
		}
	}
	s.mu.Unlock()
	s.phase.RUnlock()

	s.log.WithFields(logrus.Fields{
		"nodes":      updated,
		"dimensions": dims,
	}).Info("re-embedded nodes with stale dimensions")

	return updated, s.BuildConnections(ctx)
}
