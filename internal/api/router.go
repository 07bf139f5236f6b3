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
	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/api/handlers"
	mw "github.com/vindexhq/vindex/internal/api/middleware"
	"github.com/vindexhq/vindex/internal/config"
	"github.com/vindexhq/vindex/internal/domain"
	"github.com/vindexhq/vindex/internal/service"
	"github.com/vindexhq/vindex/internal/store"
	"github.com/vindexhq/vindex/internal/trust"
	"github.com/vindexhq/vindex/internal/vin"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Runner       *service.ResearchRunner
	Sweeper      *service.LeaseSweeper
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	decisionStore := store.NewDecisionStore(db)
	doubtStore := store.NewDoubtQueueStore(db)
	patternStore := store.NewPatternStore(db)
	vinIndexStore := store.NewVINIndexStore(db)

	// External clients
	decoder := vin.NewVPICClient(config.VPICBaseURL(), config.VPICTimeout())
	trustChecker := trust.NewChecker(config.TrustedAuctionDomains())

	// Services
	matcher := service.NewMatcher(patternStore, logger)
	validators := service.NewValidators(vinIndexStore, matcher, trustChecker, logger)
	evalSvc := service.NewEvaluationService(validators, decisionStore, logger)
	researchSvc := service.NewResearchService(doubtStore, decisionStore, patternStore, vinIndexStore, decoder, trustChecker, logger)
	researchSvc.SetWorkers(config.ResearchWorkers())

	runner := service.NewResearchRunner(researchSvc, logger)
	runner.SetInterval(config.ResearchInterval())
	runner.SetBatchSize(config.ResearchBatchSize())

	sweeper := service.NewLeaseSweeper(doubtStore, logger)
	sweeper.SetInterval(config.SweepInterval())
	sweeper.SetLease(config.ClaimLease())
	sweeper.SetRetention(config.DoubtRetention())

	// Handlers
	evaluateHandler := handlers.NewEvaluateHandler(evalSvc)
	decisionHandler := handlers.NewDecisionHandler(decisionStore)
	doubtHandler := handlers.NewDoubtHandler(doubtStore)
	patternHandler := handlers.NewPatternHandler(patternStore)
	researchHandler := handlers.NewResearchHandler(researchSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Runner:    runner,
		Sweeper:   sweeper,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health
	r.Get("/health", healthHandler(db))

	// Metrics
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Evaluations
		r.Post("/evaluations", evaluateHandler.Create)

		// Decision log
		r.Route("/decisions", func(r chi.Router) {
			r.Get("/", decisionHandler.List)
			r.Get("/{id}", decisionHandler.GetByID)
		})

		// Doubt queue
		r.Route("/doubts", func(r chi.Router) {
			r.Get("/", doubtHandler.List)
			r.Get("/stats", doubtHandler.Stats)
			r.Post("/claim", doubtHandler.Claim)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", doubtHandler.GetByID)
				r.Post("/resolve", doubtHandler.Resolve)
			})
		})

		// Learned patterns
		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", patternHandler.List)
			r.Post("/{id}/deactivate", patternHandler.Deactivate)
		})

		// Manual research trigger
		r.Post("/research/run", researchHandler.Run)
	})

	return app
}

// NewRouter returns just the chi.Mux for embedding in another mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
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
	_ domain.DecisionStore   = (*store.DecisionStore)(nil)
	_ domain.DoubtQueueStore = (*store.DoubtQueueStore)(nil)
	_ domain.PatternStore    = (*store.PatternStore)(nil)
	_ domain.VINIndex        = (*store.VINIndexStore)(nil)
	_ domain.DecisionStore   = (*store.MemoryDecisionStore)(nil)
	_ domain.DoubtQueueStore = (*store.MemoryDoubtQueue)(nil)
	_ domain.PatternStore    = (*store.MemoryPatternStore)(nil)
	_ domain.VINIndex        = (*store.MemoryVINIndex)(nil)
	_ domain.VINDecoder      = (*vin.VPICClient)(nil)
	_ domain.SourceTrust     = (*trust.Checker)(nil)
)
