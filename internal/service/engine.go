// Package service wires the knowledge graph, retrieval, scheduling and exam
// scoring into the Engine used by the API and the CLI.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/embedding"
	"github.com/studynexus/nexus/internal/exam"
	"github.com/studynexus/nexus/internal/graph"
	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/rag"
)

// ReviewHistory stores and reads per-node review records.
type ReviewHistory interface {
	ReviewLogger
	ListReviews(ctx context.Context, nodeID string, limit int) ([]models.ReviewRecord, error)
}

// EngineDeps holds the collaborators of an Engine. Only Embedder is required.
type EngineDeps struct {
	Embedder  embedding.Provider
	Snapshots SnapshotStore
	History   ReviewHistory
	Events    graph.EventPublisher
	Syllabus  exam.SyllabusFunc
	Clock     func() time.Time
	Debounce  time.Duration
	Version   string

	// Dimensions, when set, re-embeds loaded nodes of any other length.
	Dimensions int
}

// Engine is the application facade over the node collection.
type Engine struct {
	graph     *graph.Store
	rag       *rag.Builder
	scorer    *exam.Scorer
	snapshots SnapshotStore
	saver     *SnapshotWorker
	history   ReviewHistory
	reviews   *ReviewWorker
	version   string
	dims      int
	log       *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds an Engine. Call Start before serving and Close on shutdown.
func NewEngine(deps EngineDeps, log *logrus.Logger) *Engine {
	e := &Engine{
		scorer:    exam.NewScorer(deps.Syllabus),
		snapshots: deps.Snapshots,
		history:   deps.History,
		version:   deps.Version,
		dims:      deps.Dimensions,
		log:       log,
	}

	var events Fanout
	if deps.Events != nil {
		events = append(events, deps.Events)
	}

	if deps.Snapshots != nil {
		e.saver = NewSnapshotWorker(deps.Snapshots, func() []models.Node { return e.graph.ListNodes() }, log, deps.Debounce)
		events = append(events, e.saver)
	}

	if deps.History != nil {
		e.reviews = NewReviewWorker(deps.History, log, 0)
	}

	opts := []graph.Option{graph.WithEvents(events)}
	if deps.Clock != nil {
		opts = append(opts, graph.WithClock(deps.Clock))
	}

	e.graph = graph.New(deps.Embedder, log, opts...)
	e.rag = rag.NewBuilder(e.graph, log)

	return e
}

// Start loads the last snapshot and starts the background workers.
func (e *Engine) Start(ctx context.Context) error {
	if e.snapshots != nil {
		nodes, err := e.snapshots.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}

		e.graph.Load(nodes)
		e.log.WithField("nodes", e.graph.Len()).Info("snapshot loaded")

		if e.dims > 0 {
			if _, err := e.graph.Reembed(ctx, e.dims); err != nil {
				return fmt.Errorf("re-embedding snapshot: %w", err)
			}
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	if e.saver != nil {
		e.wg.Go(func() { e.saver.Run(runCtx) })
	}

	if e.reviews != nil {
		e.wg.Go(func() { e.reviews.Run(runCtx) })
	}

	return nil
}

// Close stops the workers and writes a final snapshot.
func (e *Engine) Close(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	e.wg.Wait()

	if e.saver != nil {
		if err := e.saver.Save(ctx); err != nil {
			return fmt.Errorf("saving final snapshot: %w", err)
		}
	}

	return nil
}

// Graph exposes the underlying store.
func (e *Engine) Graph() *graph.Store {
	return e.graph
}

// ImportConcepts creates a node per concept and rebuilds connections once.
func (e *Engine) ImportConcepts(ctx context.Context, sessionID string, concepts []models.ConceptInput) ([]string, error) {
	return e.graph.ImportConcepts(ctx, concepts, sessionID)
}

// AddNode creates a node. It stays unconnected until the next Rebuild or
// import.
func (e *Engine) AddNode(ctx context.Context, in models.NewNode) (models.Node, error) {
	id, err := e.graph.AddNode(ctx, in)
	if err != nil {
		return models.Node{}, err
	}

	return e.GetNode(id)
}

// UpdateNode patches a node. Text changes rebuild connections.
func (e *Engine) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (models.Node, error) {
	ok, err := e.graph.UpdateNode(ctx, id, patch)
	if err != nil {
		return models.Node{}, err
	}

	if !ok {
		return models.Node{}, models.ErrNodeNotFound
	}

	if patch.TouchesText() {
		if err := e.graph.BuildConnections(ctx); err != nil {
			e.log.WithError(err).WithField("node_id", id).Warn("rebuilding connections after update")
		}
	}

	return e.GetNode(id)
}

// RemoveNode deletes a node and every reference to it.
func (e *Engine) RemoveNode(id string) error {
	if !e.graph.RemoveNode(id) {
		return models.ErrNodeNotFound
	}

	return nil
}

// GetNode returns a copy of a node.
func (e *Engine) GetNode(id string) (models.Node, error) {
	n, ok := e.graph.GetNode(id)
	if !ok {
		return models.Node{}, models.ErrNodeNotFound
	}

	return n, nil
}

// ListNodes returns every node in insertion order.
func (e *Engine) ListNodes() []models.Node {
	return e.graph.ListNodes()
}

// VisibleMastery returns the decayed mastery of a node.
func (e *Engine) VisibleMastery(id string) float64 {
	return e.graph.VisibleMastery(id)
}

// Now returns the engine's clock.
func (e *Engine) Now() time.Time {
	return e.graph.Now()
}

// Search returns the k nodes most similar to a free-text query.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]models.ScoredNode, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrEmptyQuery
	}

	return e.graph.FindSimilarNodes(ctx, query, k)
}

// SimilarTo returns the k nodes most similar to an existing node, excluding it.
func (e *Engine) SimilarTo(id string, k int) ([]models.ScoredNode, error) {
	target, err := e.GetNode(id)
	if err != nil {
		return nil, err
	}

	all := e.graph.ListNodes()
	others := make([]models.Node, 0, len(all))

	for _, n := range all {
		if n.ID != id {
			others = append(others, n)
		}
	}

	if k <= 0 {
		k = graph.DefaultTopK
	}

	return graph.RankNodes(target.Embedding, others, k), nil
}

// Query builds retrieval context for text. A non-positive topK uses the default.
func (e *Engine) Query(ctx context.Context, text string, topK int) (models.RAGContext, error) {
	if strings.TrimSpace(text) == "" {
		return models.RAGContext{}, models.ErrEmptyQuery
	}

	return e.rag.BuildContext(ctx, text, topK)
}

// LearningPath plans the concepts to study on the way to goal.
func (e *Engine) LearningPath(ctx context.Context, goal string) (models.LearningPath, error) {
	if strings.TrimSpace(goal) == "" {
		return models.LearningPath{}, models.ErrEmptyQuery
	}

	return e.rag.LearningPath(ctx, goal)
}

// SuggestNext proposes related concepts to study after topic.
func (e *Engine) SuggestNext(ctx context.Context, topic string, limit int) ([]models.ConceptSuggestion, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, models.ErrEmptyQuery
	}

	return e.rag.SuggestNext(ctx, topic, limit)
}

// Review applies a graded review to a node and logs it to the review history.
func (e *Engine) Review(ctx context.Context, id string, quality int) (models.Node, error) {
	if err := ctx.Err(); err != nil {
		return models.Node{}, err
	}

	n, err := e.graph.Review(id, quality)
	if err != nil {
		return models.Node{}, err
	}

	if e.reviews != nil {
		e.reviews.Enqueue(models.ReviewRecord{
			NodeID:     n.ID,
			Quality:    quality,
			EaseFactor: n.SRS.EaseFactor,
			Interval:   n.SRS.Interval,
			Mastery:    n.SRS.Mastery,
			ReviewedAt: n.SRS.LastReview,
		})
	}

	return n, nil
}

// ReviewHistory returns the most recent reviews of a node, newest first.
func (e *Engine) ReviewHistory(ctx context.Context, id string, limit int) ([]models.ReviewRecord, error) {
	if _, err := e.GetNode(id); err != nil {
		return nil, err
	}

	if e.history == nil {
		return []models.ReviewRecord{}, nil
	}

	return e.history.ListReviews(ctx, id, limit)
}

// DueNodes returns nodes due for review, most overdue first.
func (e *Engine) DueNodes() []models.Node {
	return e.graph.DueNodes()
}

// UpcomingNodes returns nodes that become due within hours.
func (e *Engine) UpcomingNodes(hours int) []models.Node {
	return e.graph.UpcomingNodes(hours)
}

// Stats aggregates the collection.
func (e *Engine) Stats() models.Stats {
	return e.graph.Stats()
}

// Rebuild recomputes all connections.
func (e *Engine) Rebuild(ctx context.Context) error {
	return e.graph.BuildConnections(ctx)
}

// DuePredictions scores every node for exam relevance and caches the
// probabilities on the nodes.
func (e *Engine) DuePredictions(transcript string) []models.ExamPrediction {
	preds := e.scorer.Predict(e.graph.ListNodes(), transcript)

	probs := make(map[string]float64, len(preds))
	for _, p := range preds {
		probs[p.NodeID] = p.Probability
	}

	e.graph.SetExamProbabilities(probs)

	return preds
}

// TopTopics returns the limit most likely exam topics.
func (e *Engine) TopTopics(transcript string, limit int) []models.ExamPrediction {
	preds := e.DuePredictions(transcript)
	if limit <= 0 {
		limit = exam.DefaultTopTopics
	}

	if len(preds) > limit {
		preds = preds[:limit]
	}

	return preds
}

// StudyPriority ranks nodes by exam likelihood and remaining mastery gap.
func (e *Engine) StudyPriority(transcript string) []models.StudyPriority {
	return e.scorer.StudyPriority(e.graph.ListNodes(), transcript)
}

// Export returns a portable snapshot of the collection.
func (e *Engine) Export() *models.ExportFormat {
	nodes := e.graph.ListNodes()

	return &models.ExportFormat{
		SchemaVersion: models.SnapshotVersion,
		NexusVersion:  e.version,
		ExportedAt:    e.graph.Now().UTC(),
		Stats:         graph.ComputeStats(nodes, e.graph.Now()),
		Nodes:         nodes,
	}
}

// Import replaces the collection with a snapshot.
func (e *Engine) Import(data *models.ExportFormat) (*models.ImportResult, error) {
	if data.SchemaVersion > models.SnapshotVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", models.ErrSnapshotVersion, data.SchemaVersion, models.SnapshotVersion)
	}

	e.graph.Load(data.Nodes)

	if e.saver != nil {
		e.saver.MarkDirty()
	}

	e.log.WithFields(logrus.Fields{
		"nodes":          e.graph.Len(),
		"schema_version": data.SchemaVersion,
	}).Info("snapshot imported")

	return &models.ImportResult{NodesLoaded: e.graph.Len()}, nil
}

// Reload replaces the collection with the stored snapshot, picking up saves
// made by another instance sharing the database. Reload is skipped while
// local changes are unsaved; the next local save wins.
func (e *Engine) Reload(ctx context.Context) error {
	if e.snapshots == nil {
		return nil
	}

	if e.saver != nil && e.saver.Pending() {
		e.log.Debug("reload skipped, local changes unsaved")

		return nil
	}

	nodes, err := e.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading snapshot: %w", err)
	}

	e.graph.Load(nodes)
	e.log.WithField("nodes", e.graph.Len()).Info("snapshot reloaded")

	return nil
}

// Clear removes every node.
func (e *Engine) Clear() {
	e.graph.Clear()
}
