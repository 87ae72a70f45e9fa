package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the service's HTTP surface.
func NewRouter(
	webhook *WebhookHandler,
	messages *MessageHandler,
	stats *StatsHandler,
	health *HealthHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(chi_middleware.Timeout(60 * time.Second))
	r.Use(PrometheusMetricsMiddleware)

	r.Post("/webhook", webhook.HandleWebhook)
	r.Get("/messages", messages.HandleListMessages)
	r.Get("/stats", stats.HandleGetStats)
	r.Get("/health/live", health.HandleLive)
	r.Get("/health/ready", health.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
