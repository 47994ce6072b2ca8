package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/etianguis/checkout/pkg/health"
	"github.com/etianguis/checkout/pkg/middleware"
)

// RouterConfig carries the dependencies the router mounts.
type RouterConfig struct {
	Checkout          *CheckoutHandler
	Health            *health.Handler
	Logger            *slog.Logger
	ServiceName       string
	AllowedOrigins    []string
	PprofAllowedCIDRs []string
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	middleware.MountPprof(r, cfg.PprofAllowedCIDRs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/{cartID}/complete", cfg.Checkout.CompleteCheckout)
		r.Get("/orders/{orderID}", cfg.Checkout.GetOrder)
	})

	return r
}
