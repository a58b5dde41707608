package rest

import (
	"context"
	"net/http"
	"time"

	"promptstore/application/commands/bus"
	"promptstore/application/ports"
	querybus "promptstore/application/queries/bus"
	"promptstore/infrastructure/config"
	"promptstore/interfaces/http/rest/handlers"
	"promptstore/interfaces/http/rest/middleware"
	"promptstore/pkg/common"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// readinessProbeID never names a real document; a NOT_FOUND answer proves the store is reachable
const readinessProbeID = "00000000-0000-4000-8000-000000000000"

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	store      ports.PromptStore
	metrics    *observability.Collector
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	store ports.PromptStore,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		store:      store,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()
	errorHandler := errors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}
	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
			MaxAge:         300,
		}))
	}

	// Health check endpoints
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	prompts := handlers.NewPromptHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/prompts", prompts.FetchAllPrompts)
		r.Get("/prompts/{id}", prompts.GetPromptByID)

		r.Route("/users/{userID}/prompts", func(r chi.Router) {
			r.Post("/", prompts.CreatePrompt)
			r.Get("/", prompts.GetUserPrompts)

			r.Route("/{promptID}", func(r chi.Router) {
				r.Get("/", prompts.GetLatestPrompt)
				r.Get("/versions", prompts.GetAllPromptVersions)
				r.Post("/versions", prompts.CreateNewVersion)
				r.Get("/versions/{version}", prompts.GetPromptVersion)
				r.Post("/reconcile", prompts.ReconcileLineage)

				// single documents, addressed by id within the lineage
				r.Patch("/documents/{id}", prompts.UpdateMetadata)
				r.Delete("/documents/{id}", prompts.DeletePrompt)
				r.Post("/documents/{id}/archive", prompts.ArchivePrompt)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck probes the store with a point lookup
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	_, err := rt.store.FindByID(ctx, readinessProbeID)
	if err != nil && !errors.IsNotFound(err) {
		rt.logger.Warn("Readiness probe failed", zap.Error(err))
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"store":  rt.cfg.StoreBackend,
		})
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"store":  rt.cfg.StoreBackend,
	})
}
