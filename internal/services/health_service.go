package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"cclens/internal/infrastructure"
)

// HubStats is what the health surface needs from the websocket hub.
type HubStats interface {
	ClientCount() int
	GetHubMetrics() map[string]interface{}
}

// HealthService aggregates component health for the health endpoints.
type HealthService struct {
	version   string
	buildTime string
	dataset   *DatasetService
	analytics *AnalyticsService
	hub       HubStats
	system    *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health endpoint response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime_seconds"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth reports one component's state inside HealthStatus.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates the health service. The hub and system collector
// may be nil; their sections are simply omitted then.
func NewHealthService(version, buildTime string, dataset *DatasetService, analyticsSvc *AnalyticsService, hub HubStats, system *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		dataset:   dataset,
		analytics: analyticsSvc,
		hub:       hub,
		system:    system,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the full health report: overall status, runtime
// gauges and per-component sections.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Services:  make(map[string]interface{}),
	}

	status.Services["dataset"] = hs.checkDataset()
	if hs.analytics != nil {
		status.Services["cache"] = hs.analytics.CacheStats()
	}
	if hs.hub != nil {
		status.Services["websocket"] = hs.hub.GetHubMetrics()
	}

	if hs.system != nil {
		if stats := hs.system.GetCurrentStats(ctx); stats != nil {
			status.Runtime = stats.FormatStats()
		}
	}
	if status.Runtime == nil {
		status.Runtime = map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		}
	}

	// The API is degraded, not down, while the dataset is absent: health
	// and status endpoints still answer.
	if hs.dataset == nil || !hs.dataset.Ready() {
		status.Status = "degraded"
	}

	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", status.Status),
		slog.Float64("uptime_seconds", status.Uptime))

	return status
}

// ReadinessCheck reports whether the service can answer analytics queries.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Services:  make(map[string]interface{}),
	}

	ds := hs.checkDataset()
	status.Services["dataset"] = ds
	if ds.Status != "ready" {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck reports that the process is running. It never consults
// dependencies: liveness failing means the process should be restarted.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns build and runtime version information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkDataset() ServiceHealth {
	if hs.dataset == nil {
		return ServiceHealth{Status: "unknown", Message: "dataset service not wired"}
	}
	if hs.dataset.Reloading() {
		return ServiceHealth{Status: "reloading", Message: "dataset reload in progress"}
	}
	if !hs.dataset.Ready() {
		return ServiceHealth{Status: "not_ready", Message: "complaints dataset is not loaded"}
	}
	return ServiceHealth{Status: "ready"}
}
