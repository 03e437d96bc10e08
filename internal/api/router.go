package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scottkmcmillan/relate/internal/api/handlers"
	mw "github.com/scottkmcmillan/relate/internal/api/middleware"
	"github.com/scottkmcmillan/relate/internal/config"
	"github.com/scottkmcmillan/relate/internal/domain"
	"github.com/scottkmcmillan/relate/internal/embedding"
	"github.com/scottkmcmillan/relate/internal/llm"
	"github.com/scottkmcmillan/relate/internal/service"
	"github.com/scottkmcmillan/relate/internal/store"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Refresher    *service.RefresherService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	userStore := store.NewUserStore(db)
	knowledgeStore := store.NewKnowledgeStore(db)
	graphStore := store.NewGraphStore(db)
	conversationStore := store.NewConversationStore(db)
	valueStore := store.NewValueStore(db)
	provenanceStore := store.NewProvenanceStore(db)
	feedbackStore := store.NewFeedbackStore(db)
	refCache := store.NewReferenceCache(db, config.ReferenceTTL())

	// External clients via provider factory
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey(), config.EmbeddingModel())
	if err != nil {
		return nil, err
	}
	logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))

	generationClient, err := llm.NewClient(config.GenerationProvider(), config.OpenAIAPIKey())
	if err != nil {
		return nil, err
	}
	logger.Info("generation client initialized", zap.String("provider", config.GenerationProvider()))

	// Services
	analyzer := service.NewQueryAnalyzer(embeddingClient, logger)
	detector := service.NewCandorDetector(valueStore, conversationStore, embeddingClient, candorConfig(), logger)
	retrieval := service.NewRetrievalEngine(knowledgeStore, refCache, config.RetrievalTimeout(), logger)
	ranker, err := service.NewHybridRanker(graphStore, config.VectorWeight(), config.GraphWeight(), logger)
	if err != nil {
		return nil, err
	}
	synthesizer := service.NewContextSynthesizer(knowledgeStore, config.ScoreThreshold(), config.MaxSources(), logger)
	tracker := service.NewProvenanceTracker(provenanceStore, logger)
	converseSvc := service.NewConverseService(
		analyzer, detector, retrieval, ranker, synthesizer, tracker,
		conversationStore, generationClient, logger)
	feedbackSvc := service.NewFeedbackService(feedbackStore, provenanceStore, logger)
	refresherSvc := service.NewRefresherService(refCache, logger)

	// Handlers
	userHandler := handlers.NewUserHandler(userStore)
	converseHandler := handlers.NewConverseHandler(converseSvc, logger)
	conversationHandler := handlers.NewConversationHandler(conversationStore)
	provenanceHandler := handlers.NewProvenanceHandler(tracker)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Refresher: refresherSvc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// User registration (no auth, bootstrap endpoint)
	r.Post("/v1/users", userHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(userStore))

		r.Post("/converse", converseHandler.Converse)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/{id}/history", conversationHandler.History)
		})

		r.Get("/responses/{id}/provenance", provenanceHandler.Get)

		r.Post("/feedback", feedbackHandler.Create)
	})

	return app, nil
}

func candorConfig() service.CandorConfig {
	cfg := service.DefaultCandorConfig()
	cfg.RepetitionThreshold = config.CandorRepetitionThreshold()
	cfg.AvoidanceThreshold = config.CandorAvoidanceThreshold()
	cfg.ValidationThreshold = config.CandorValidationThreshold()
	cfg.MisalignmentThreshold = config.CandorMisalignmentThreshold()
	cfg.AvoidanceWeight = config.CandorAvoidanceWeight()
	cfg.ValidationWeight = config.CandorValidationWeight()
	cfg.Window = config.ConversationWindow()
	return cfg
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.UserStore         = (*store.UserStore)(nil)
	_ domain.KnowledgeStore    = (*store.KnowledgeStore)(nil)
	_ domain.GraphStore        = (*store.GraphStore)(nil)
	_ domain.ConversationStore = (*store.ConversationStore)(nil)
	_ domain.ValueStore        = (*store.ValueStore)(nil)
	_ domain.ProvenanceStore   = (*store.ProvenanceStore)(nil)
	_ domain.FeedbackStore     = (*store.FeedbackStore)(nil)
	_ domain.ReferenceLookup   = (*store.ReferenceCache)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.GenerationClient  = (*llm.OpenAIClient)(nil)
	_ domain.GenerationClient  = (*llm.MockClient)(nil)
)
