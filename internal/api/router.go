package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/middleware"
	"github.com/studynexus/nexus/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Engine      Engine
	Hub         *ws.Hub
	Storage     HealthChecker // nil for in-memory storage
	Embeddings  EmbeddingInfo
	StorageKind string
	CORSOrigins []string
	Version     string
}

// Router-level limits.
const (
	rateLimit = 100 // requests per second per IP
	rateBurst = 200 // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) error {
	limiter, err := middleware.NewRateLimiter(rateLimit, rateBurst)
	if err != nil {
		return fmt.Errorf("creating rate limiter: %w", err)
	}

	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.AccessLog(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBody, "/api/v1/import", "/api/v1/concepts/import"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(limiter.Handler())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return nil
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log
	eng := deps.Engine

	health := NewHealthHandler(HealthDeps{
		Storage:     deps.Storage,
		StorageKind: deps.StorageKind,
		Hub:         deps.Hub,
		Stats:       eng,
		Embeddings:  deps.Embeddings,
		Version:     deps.Version,
	}, log)
	concepts := NewConceptHandler(eng, log)
	query := NewQueryHandler(eng, log)
	nodes := NewNodeHandler(eng, log)
	reviews := NewReviewHandler(eng, log)
	graph := NewGraphHandler(eng, log)
	exam := NewExamHandler(eng, log)
	snapshot := NewExportImportHandler(eng, deps.Version, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Ingestion.
	api.POST("/concepts/import", concepts.Import)

	// Retrieval.
	api.POST("/query", query.Query)
	api.POST("/query/learning-path", query.LearningPath)
	api.POST("/query/suggest", query.Suggest)

	// Nodes.
	api.GET("/nodes", nodes.List)
	api.POST("/nodes", nodes.Create)
	api.GET("/nodes/:id", nodes.Get)
	api.PATCH("/nodes/:id", nodes.Update)
	api.DELETE("/nodes/:id", nodes.Delete)
	api.GET("/nodes/:id/similar", nodes.Similar)
	api.POST("/nodes/:id/review", reviews.Review)
	api.GET("/nodes/:id/reviews", reviews.History)

	// Scheduling.
	api.GET("/reviews/due", reviews.Due)
	api.GET("/reviews/upcoming", reviews.Upcoming)

	// Whole graph.
	api.POST("/graph/rebuild", graph.Rebuild)
	api.DELETE("/graph", graph.Clear)
	api.GET("/stats", graph.Stats)

	// Exam relevance.
	api.POST("/exam/predictions", exam.Predictions)
	api.POST("/exam/priorities", exam.Priorities)

	// Snapshots.
	api.GET("/export", snapshot.Export)
	api.POST("/import", snapshot.Import)

	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
// ctx bounds the lifetime of WebSocket connections.
func NewRouter(ctx context.Context, deps *RouterDeps) (http.Handler, error) {
	r := gin.New()
	if err := setupMiddleware(r, deps); err != nil {
		return nil, err
	}

	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r, nil
}
