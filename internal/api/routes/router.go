package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/handlers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/middleware"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
)

// HealthCheck reports whether a backing service is reachable
type HealthCheck func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	caseHandler       *handlers.CaseHandler
	predictionHandler *handlers.PredictionHandler
	sseHandler        *handlers.SSEHandler

	allowedOrigins []string
	healthChecks   map[string]HealthCheck
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	caseHandler *handlers.CaseHandler,
	predictionHandler *handlers.PredictionHandler,
	sseHandler *handlers.SSEHandler,
	allowedOrigins []string,
	healthChecks map[string]HealthCheck,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		caseHandler:       caseHandler,
		predictionHandler: predictionHandler,
		sseHandler:        sseHandler,
		allowedOrigins:    allowedOrigins,
		healthChecks:      healthChecks,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.health)

	r.mux.HandleFunc("GET /api/{$}", r.caseHandler.Root)

	// Case endpoints
	r.mux.HandleFunc("GET /api/documents", r.caseHandler.ListDocuments)
	r.mux.HandleFunc("GET /api/documents/{id}", r.caseHandler.GetDocument)
	r.mux.HandleFunc("PUT /api/save/{id}", r.caseHandler.SaveDocument)
	r.mux.HandleFunc("PATCH /api/documents/{id}/name", r.caseHandler.RenameDocument)
	r.mux.HandleFunc("PATCH /api/documents/{id}/human-prediction", r.caseHandler.SetHumanPrediction)
	r.mux.HandleFunc("POST /api/documents/{id}/analyze", r.caseHandler.AnalyzeDocument)
	r.mux.HandleFunc("DELETE /api/documents/{id}", r.caseHandler.DeleteDocument)

	r.mux.HandleFunc("POST /api/upload", r.caseHandler.Upload)
	r.mux.HandleFunc("GET /api/pdf/{id}", r.caseHandler.GetPDF)

	if r.predictionHandler != nil {
		r.mux.HandleFunc("POST /api/predict", r.predictionHandler.Predict)
	}

	// Live list updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/documents", r.sseHandler.StreamDocuments)
		r.mux.HandleFunc("GET /api/stream/documents/{id}", r.sseHandler.StreamDocument)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so error responses also carry its headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(name + " unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
