package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"cclens/internal/errors"
	"cclens/internal/infrastructure"
)

// DatasetGuard rejects analytics and export requests while no complaint
// dataset is loaded, so handlers never see an empty dataset slot. Paths that
// must stay reachable regardless of dataset state (health, status, reload,
// metrics, the websocket) are excluded.
type DatasetGuard struct {
	provider        DatasetStateProvider
	logger          *slog.Logger
	excludePaths    []string
	excludePrefixes []string
	enabled         bool
	metrics         *GuardMetrics
}

// GuardMetrics holds OpenTelemetry metrics for the dataset guard
type GuardMetrics struct {
	RequestsTotal   metric.Int64Counter
	PathExclusions  metric.Int64Counter
	RejectionsTotal metric.Int64Counter
}

// NewDatasetGuard creates a new dataset readiness middleware
func NewDatasetGuard(provider DatasetStateProvider, logger *slog.Logger) *DatasetGuard {
	return &DatasetGuard{
		provider: provider,
		logger:   logger.With(slog.String("component", "dataset_guard")),
		enabled:  true,
		excludePaths: []string{
			"/",
			"/api/health",
			"/api/health/ready",
			"/api/health/live",
			"/api/version",
			"/api/dataset/status",
			"/api/dataset/reload",
			"/ws",
			"/metrics",
			"/favicon.ico",
			"/robots.txt",
		},
		excludePrefixes: []string{
			"/static/",
			"/assets/",
		},
	}
}

// AttachMetrics creates the guard's OpenTelemetry counters on the given meter
func (dg *DatasetGuard) AttachMetrics(meter metric.Meter) error {
	requestsTotal, err := meter.Int64Counter(
		"dataset_guard_requests_total",
		metric.WithDescription("Total requests seen by the dataset guard"),
	)
	if err != nil {
		return fmt.Errorf("create guard requests counter: %w", err)
	}

	pathExclusions, err := meter.Int64Counter(
		"dataset_guard_exclusions_total",
		metric.WithDescription("Requests that bypassed the dataset readiness check"),
	)
	if err != nil {
		return fmt.Errorf("create guard exclusions counter: %w", err)
	}

	rejectionsTotal, err := meter.Int64Counter(
		"dataset_guard_rejections_total",
		metric.WithDescription("Requests rejected because no dataset was loaded"),
	)
	if err != nil {
		return fmt.Errorf("create guard rejections counter: %w", err)
	}

	dg.metrics = &GuardMetrics{
		RequestsTotal:   requestsTotal,
		PathExclusions:  pathExclusions,
		RejectionsTotal: rejectionsTotal,
	}
	return nil
}

// Handler returns the middleware handler function
func (dg *DatasetGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := otel.Tracer("dataset-guard")

		ctx, span := tracer.Start(ctx, "dataset_guard.check",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.Path),
				attribute.String("component", "dataset_guard"),
			),
		)
		defer span.End()

		reqID := GetReqID(ctx)
		traceID := infrastructure.TraceIDFromContext(ctx)
		if traceID == "" {
			traceID = reqID
		}

		if dg.metrics != nil {
			dg.metrics.RequestsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("path", r.URL.Path),
				attribute.String("method", r.Method),
			))
		}

		if !dg.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if dg.shouldExcludePath(r.URL.Path) {
			span.SetAttributes(
				attribute.String("dataset.check", "excluded"),
				attribute.String("exclusion_reason", "path_excluded"),
			)

			if dg.metrics != nil {
				dg.metrics.PathExclusions.Add(ctx, 1, metric.WithAttributes(
					attribute.String("path", r.URL.Path),
				))
			}

			next.ServeHTTP(w, r)
			return
		}

		if dg.provider.Ready() {
			span.SetAttributes(
				attribute.String("dataset.check", "performed"),
				attribute.Bool("dataset.ready", true),
			)
			next.ServeHTTP(w, r)
			return
		}

		span.SetAttributes(
			attribute.String("dataset.check", "performed"),
			attribute.Bool("dataset.ready", false),
		)

		if dg.metrics != nil {
			dg.metrics.RejectionsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("path", r.URL.Path),
			))
		}

		dg.logger.WarnContext(ctx, "rejecting request, dataset not loaded",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.String("trace_id", traceID))

		dg.rejectNotLoaded(w, r, traceID)
	})
}

// shouldExcludePath checks if a path should bypass the readiness check
func (dg *DatasetGuard) shouldExcludePath(path string) bool {
	for _, excluded := range dg.excludePaths {
		if path == excluded {
			return true
		}
	}

	for _, prefix := range dg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// rejectNotLoaded writes the not-loaded response for the request flavor
func (dg *DatasetGuard) rejectNotLoaded(w http.ResponseWriter, r *http.Request, traceID string) {
	if isAPIRequest(r) {
		problem := errors.NewProblemDetails(
			http.StatusServiceUnavailable,
			errors.TypeDatasetNotLoaded,
			"Dataset Not Loaded",
			"No complaint dataset is loaded. Trigger a reload and retry.",
			fmt.Sprintf("%s#%s", r.URL.Path, traceID),
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_NOT_LOADED").
			WithExtension("reload_endpoint", "/api/dataset/reload")

		render.Render(w, r, problem)
		return
	}

	http.Error(w, "Complaint dataset not loaded. Trigger a reload and retry.", http.StatusServiceUnavailable)
}

// AddExcludePath adds a path to be excluded from the readiness check
func (dg *DatasetGuard) AddExcludePath(path string) {
	dg.excludePaths = append(dg.excludePaths, path)
}

// AddExcludePrefix adds a path prefix to be excluded from the readiness check
func (dg *DatasetGuard) AddExcludePrefix(prefix string) {
	dg.excludePrefixes = append(dg.excludePrefixes, prefix)
}

// SetEnabled toggles the readiness check
func (dg *DatasetGuard) SetEnabled(enabled bool) {
	dg.enabled = enabled
}

// isAPIRequest checks if the request expects a JSON response
func isAPIRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		return true
	}

	return strings.HasPrefix(r.URL.Path, "/api/")
}
