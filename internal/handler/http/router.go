package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/GameStoreGo/internal/service"
	"github.com/utafrali/GameStoreGo/pkg/health"
	"github.com/utafrali/GameStoreGo/pkg/middleware"
)

// RouterConfig carries the HTTP-layer settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc *service.StorefrontService,
	session middleware.SessionSource,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Session(session))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	h := NewStorefrontHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Get("/session", h.GetSession)
		r.Post("/session", h.SignIn)
		r.Delete("/session", h.SignOut)

		r.Get("/games/{gameId}/affordances", h.GetAffordances)

		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", h.GetAchievements)
			r.Post("/refresh", h.RefreshAchievements)
			r.With(middleware.RequireSession(session)).Post("/check", h.CheckAchievements)
			r.Get("/{type}", h.GetAchievement)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(session))
			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)
		})

		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", h.GetCollection)
			r.Delete("/", h.ClearCollection)
			r.Post("/refresh", h.RefreshCollection)
			r.Post("/items", h.AddItem)
			r.Get("/items/{gameId}", h.GetMembership)
			r.Delete("/items/{gameId}", h.RemoveItem)
		})
	})

	return r
}
