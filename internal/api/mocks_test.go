package api_test

import (
	"context"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

// mockEngine implements api.Engine for testing. Nil function fields return
// zero values.
type mockEngine struct {
	addFn          func(ctx context.Context, in models.NewNode) (models.Node, error)
	updateFn       func(ctx context.Context, id string, patch models.NodePatch) (models.Node, error)
	removeFn       func(id string) error
	getFn          func(id string) (models.Node, error)
	nodes          []models.Node
	similarFn      func(id string, k int) ([]models.ScoredNode, error)
	importFn       func(ctx context.Context, sessionID string, concepts []models.ConceptInput) ([]string, error)
	queryFn        func(ctx context.Context, text string, topK int) (models.RAGContext, error)
	pathFn         func(ctx context.Context, goal string) (models.LearningPath, error)
	suggestFn      func(ctx context.Context, topic string, limit int) ([]models.ConceptSuggestion, error)
	reviewFn       func(ctx context.Context, id string, quality int) (models.Node, error)
	historyFn      func(ctx context.Context, id string, limit int) ([]models.ReviewRecord, error)
	due            []models.Node
	upcomingFn     func(hours int) []models.Node
	stats          models.Stats
	rebuildFn      func(ctx context.Context) error
	cleared        bool
	predictions    []models.ExamPrediction
	topFn          func(transcript string, limit int) []models.ExamPrediction
	prioritiesFn   func(transcript string) []models.StudyPriority
	lastTranscript string
	exportData     *models.ExportFormat
	importSnapFn   func(data *models.ExportFormat) (*models.ImportResult, error)
}

func (m *mockEngine) AddNode(ctx context.Context, in models.NewNode) (models.Node, error) {
	return m.addFn(ctx, in)
}

func (m *mockEngine) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (models.Node, error) {
	return m.updateFn(ctx, id, patch)
}

func (m *mockEngine) RemoveNode(id string) error {
	if m.removeFn == nil {
		return nil
	}

	return m.removeFn(id)
}

func (m *mockEngine) GetNode(id string) (models.Node, error) {
	return m.getFn(id)
}

func (m *mockEngine) ListNodes() []models.Node { return m.nodes }

func (m *mockEngine) SimilarTo(id string, k int) ([]models.ScoredNode, error) {
	return m.similarFn(id, k)
}

func (m *mockEngine) Now() time.Time { return testNow }

func (m *mockEngine) ImportConcepts(ctx context.Context, sessionID string, concepts []models.ConceptInput) ([]string, error) {
	return m.importFn(ctx, sessionID, concepts)
}

func (m *mockEngine) Query(ctx context.Context, text string, topK int) (models.RAGContext, error) {
	return m.queryFn(ctx, text, topK)
}

func (m *mockEngine) LearningPath(ctx context.Context, goal string) (models.LearningPath, error) {
	return m.pathFn(ctx, goal)
}

func (m *mockEngine) SuggestNext(ctx context.Context, topic string, limit int) ([]models.ConceptSuggestion, error) {
	return m.suggestFn(ctx, topic, limit)
}

func (m *mockEngine) Review(ctx context.Context, id string, quality int) (models.Node, error) {
	return m.reviewFn(ctx, id, quality)
}

func (m *mockEngine) ReviewHistory(ctx context.Context, id string, limit int) ([]models.ReviewRecord, error) {
	return m.historyFn(ctx, id, limit)
}

func (m *mockEngine) DueNodes() []models.Node { return m.due }

func (m *mockEngine) UpcomingNodes(hours int) []models.Node {
	if m.upcomingFn == nil {
		return nil
	}

	return m.upcomingFn(hours)
}

func (m *mockEngine) Stats() models.Stats { return m.stats }

func (m *mockEngine) Rebuild(ctx context.Context) error {
	if m.rebuildFn == nil {
		return nil
	}

	return m.rebuildFn(ctx)
}

func (m *mockEngine) Clear() { m.cleared = true }

func (m *mockEngine) DuePredictions(transcript string) []models.ExamPrediction {
	m.lastTranscript = transcript

	return m.predictions
}

func (m *mockEngine) TopTopics(transcript string, limit int) []models.ExamPrediction {
	return m.topFn(transcript, limit)
}

func (m *mockEngine) StudyPriority(transcript string) []models.StudyPriority {
	return m.prioritiesFn(transcript)
}

func (m *mockEngine) Export() *models.ExportFormat { return m.exportData }

func (m *mockEngine) Import(data *models.ExportFormat) (*models.ImportResult, error) {
	return m.importSnapFn(data)
}
