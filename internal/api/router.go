package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicepost-platform/voicepost/internal/database"
	ievents "github.com/voicepost-platform/voicepost/internal/events"
	mw "github.com/voicepost-platform/voicepost/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Pipeline handlers
	GeneratePost http.HandlerFunc
	ConfirmPost  http.HandlerFunc

	// Scheduled job handlers
	ListScheduled  http.HandlerFunc
	CancelSchedule http.HandlerFunc

	// Credential handlers
	SaveKeys http.HandlerFunc

	// Context index handlers
	AddContext http.HandlerFunc

	// Scheduler health
	SchedulerRunning func() bool
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	GenerateRateLimit  func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *ievents.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: checks DB, NATS, scheduler
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":    "healthy",
			"database":  "healthy",
			"nats":      "healthy",
			"scheduler": "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		if h.SchedulerRunning != nil && !h.SchedulerRunning() {
			health["scheduler"] = "not running"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			// Generation is the expensive path, so it is rate limited
			r.Group(func(r chi.Router) {
				if cfg.GenerateRateLimit != nil {
					r.Use(cfg.GenerateRateLimit)
				}
				r.Post("/generate", h.GeneratePost)
			})

			r.Post("/confirm", h.ConfirmPost)
			r.Get("/scheduled", h.ListScheduled)
			r.Delete("/scheduled/{jobID}", h.CancelSchedule)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Post("/keys", h.SaveKeys)
		})

		r.Post("/context", h.AddContext)
	})

	return r
}
