package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/access"
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Reports is the report use case the HTTP layer serves.
type Reports interface {
	GetLeasePaymentReport(ctx context.Context, filter domain.ReportFilter) (*domain.LeasePaymentReport, error)
	ExportLeasePaymentReport(ctx context.Context, filter domain.ReportFilter) ([]byte, error)
	Health(ctx context.Context) *domain.HealthStatus
}

// Options configures the router.
type Options struct {
	JWTSecret    string
	AuthDisabled bool
	// CacheTTL is advertised to clients via Cache-Control.
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(reports Reports, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(reports))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		r.Use(AuthMiddleware(opts.JWTSecret, opts.AuthDisabled, logger))

		r.With(RequirePermission(access.ResourceReports, access.OpRead, logger)).
			Get("/reports/lease-payments", leasePaymentReportHandler(reports, opts.CacheTTL, logger))
		r.With(RequirePermission(access.ResourceReports, access.OpExport, logger)).
			Get("/reports/lease-payments/export", leasePaymentExportHandler(reports, logger))

		r.With(RequirePermission(access.ResourceMetrics, access.OpRead, logger)).
			Get("/metrics/reports", reportMetricsHandler(metrics))
	})

	return r
}

func healthzHandler(reports Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			writeJSON(w, http.StatusOK, domain.HealthStatus{
				Status: "healthy",
				Services: []domain.ServiceHealth{
					{Name: "lease-report-api", Status: "up", LastChecked: time.Now().UTC().Format(time.RFC3339)},
				},
			})
			return
		}

		status := reports.Health(r.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func reportMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetReportSnapshot())
	}
}
