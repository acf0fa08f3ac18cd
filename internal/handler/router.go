package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	chathandler "github.com/boddenberg/stylist-bfa-go/internal/chat/handler"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency probed by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names a probed dependency.
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

// RouterDeps groups what NewRouter serves. Nil services leave their routes
// unmounted.
type RouterDeps struct {
	Stylist  StylistService
	Barcode  BarcodeService
	Chat     chathandler.Chatter
	Enricher TagEnricher
	Auth     *Auth
	Health   []HealthCheck
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d RouterDeps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Health, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(RequestMetrics(d.Metrics))
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
		}

		r.Get("/metrics/stylist", stylistMetricsHandler(d.Metrics))

		if d.Stylist != nil {
			r.Post("/analyze", analyzeHandler(d.Stylist, logger))
			r.Post("/recreate", recreateHandler(d.Stylist, logger))
			r.Post("/shop", shopHandler(d.Stylist, logger))
			r.Get("/suggest", suggestHandler(d.Stylist, logger))
			r.Get("/capsule", capsuleHandler(d.Stylist, logger))
		}

		if d.Enricher != nil {
			r.Get("/tags/enrich", enrichTagsHandler(d.Enricher))
		}

		if d.Chat != nil {
			r.Post("/chat", chathandler.ChatHandler(d.Chat, UserIDFromContext, logger))
			r.Get("/chat/history", chathandler.HistoryHandler(d.Chat, UserIDFromContext, logger))
			r.Delete("/chat/memory", chathandler.ForgetMemoryHandler(d.Chat, UserIDFromContext, logger))
		}

		if d.Barcode != nil {
			r.Post("/barcode/decode", barcodeDecodeHandler(d.Barcode, logger))
			r.Post("/barcode/scan", barcodeScanHandler(d.Barcode, logger))
			r.Get("/barcode/{code}", barcodeLookupHandler(d.Barcode, logger))
		}
	})

	return r
}

// ============================================================
// Probes & metrics
// ============================================================

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "stylist-api", Status: "healthy", LastChecked: now},
		}
		for _, c := range checks {
			start := time.Now()
			status := "healthy"
			if err := c.Pinger.Ping(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", c.Name), zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: c.Name, Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func stylistMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSnapshot())
	}
}
