package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/verse-app/verse/internal/database"
	"github.com/verse-app/verse/internal/events"
	mw "github.com/verse-app/verse/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	// Auth handlers
	CreateSession http.HandlerFunc
	Refresh       http.HandlerFunc
	Logout        http.HandlerFunc

	// User handlers
	Me            http.HandlerFunc
	Usage         http.HandlerFunc
	ClearUserData http.HandlerFunc

	// Bible handlers
	GetPassage       http.HandlerFunc
	GetChapter       http.HandlerFunc
	ListTranslations http.HandlerFunc

	// Insight handlers
	GenerateInsight      http.HandlerFunc
	ListInsights         http.HandlerFunc
	ClearInsights        http.HandlerFunc
	StreamInsightChat    http.HandlerFunc
	InsightMessages      http.HandlerFunc
	ClearInsightMessages http.HandlerFunc

	// Definition handlers
	Define           http.HandlerFunc
	ListDefinitions  http.HandlerFunc
	ClearDefinitions http.HandlerFunc

	// Chat handlers
	StreamChat   http.HandlerFunc
	ListChats    http.HandlerFunc
	ChatMessages http.HandlerFunc
	DeleteChat   http.HandlerFunc

	// Search handlers
	SearchConversations http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	SessionRateLimiter func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, redisClient *goredis.Client, natsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe, checks DB, Redis and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			health["redis"] = "unhealthy"
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

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public); session creation is rate-limited to slow
		// down bulk anonymous account creation
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.SessionRateLimiter != nil {
					r.Use(cfg.SessionRateLimiter)
				}
				r.Post("/session", h.CreateSession)
			})
			r.Post("/refresh", h.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", h.Me)
				r.Get("/usage", h.Usage)
				r.Delete("/data", h.ClearUserData)
			})

			// Bible routes
			r.Get("/passage", h.GetPassage)
			r.Get("/chapter", h.GetChapter)
			r.Get("/translations", h.ListTranslations)

			// Insight routes
			r.Route("/insights", func(r chi.Router) {
				r.Post("/", h.GenerateInsight)
				r.Get("/", h.ListInsights)
				r.Delete("/", h.ClearInsights)

				r.Route("/{id}/chat", func(r chi.Router) {
					r.Post("/", h.StreamInsightChat)
					r.Get("/", h.InsightMessages)
					r.Delete("/", h.ClearInsightMessages)
				})
			})

			// Definition routes
			r.Route("/definitions", func(r chi.Router) {
				r.Post("/", h.Define)
				r.Get("/", h.ListDefinitions)
				r.Delete("/", h.ClearDefinitions)
			})

			// Standalone chat routes
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", h.ListChats)
				r.Post("/stream", h.StreamChat)
				r.Get("/{id}/messages", h.ChatMessages)
				r.Delete("/{id}", h.DeleteChat)
			})

			// Conversation search
			r.Get("/search/conversations", h.SearchConversations)
		})
	})

	return r
}
