package api

import (
	"context"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

// NodeService defines node operations used by NodeHandler.
type NodeService interface {
	AddNode(ctx context.Context, in models.NewNode) (models.Node, error)
	UpdateNode(ctx context.Context, id string, patch models.NodePatch) (models.Node, error)
	RemoveNode(id string) error
	GetNode(id string) (models.Node, error)
	ListNodes() []models.Node
	SimilarTo(id string, k int) ([]models.ScoredNode, error)
	Now() time.Time
}

// ConceptService imports extracted lecture concepts.
type ConceptService interface {
	ImportConcepts(ctx context.Context, sessionID string, concepts []models.ConceptInput) ([]string, error)
}

// QueryService answers retrieval queries.
// The service layer handles embedding generation. Handlers pass query strings.
type QueryService interface {
	Query(ctx context.Context, text string, topK int) (models.RAGContext, error)
	LearningPath(ctx context.Context, goal string) (models.LearningPath, error)
	SuggestNext(ctx context.Context, topic string, limit int) ([]models.ConceptSuggestion, error)
	Now() time.Time
}

// ReviewService defines the spaced-repetition operations used by ReviewHandler.
type ReviewService interface {
	Review(ctx context.Context, id string, quality int) (models.Node, error)
	ReviewHistory(ctx context.Context, id string, limit int) ([]models.ReviewRecord, error)
	DueNodes() []models.Node
	UpcomingNodes(hours int) []models.Node
	Now() time.Time
}

// GraphService defines whole-collection operations.
type GraphService interface {
	Stats() models.Stats
	Rebuild(ctx context.Context) error
	Clear()
}

// ExamService scores nodes for exam relevance.
type ExamService interface {
	DuePredictions(transcript string) []models.ExamPrediction
	TopTopics(transcript string, limit int) []models.ExamPrediction
	StudyPriority(transcript string) []models.StudyPriority
}

// ExportImportService defines snapshot export and import.
type ExportImportService interface {
	Export() *models.ExportFormat
	Import(data *models.ExportFormat) (*models.ImportResult, error)
}

// Engine is everything the router needs from the service layer.
type Engine interface {
	NodeService
	ConceptService
	QueryService
	ReviewService
	GraphService
	ExamService
	ExportImportService
}

// HealthChecker reports whether a storage backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
