package config

import "time"

// Application constants for the ComplaintLens service.
const (
	AppName    = "ComplaintLens"
	AppVersion = "1.2.0"

	// File locations, relative to the executable directory
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultDatasetCSV = "data/complaints.csv"

	// Network timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	DatasetFetchTimeout = 10 * time.Minute
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Rollup limits shared by the API and the exports
	DefaultTopN = 10
	MaxTopN     = 50

	// API endpoints
	APIBasePath       = "/api"
	AnalyticsEndpoint = "/api/analytics"
	DatasetEndpoint   = "/api/dataset"
	ExportsEndpoint   = "/api/exports"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"

	// Log settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	MaxLogFileSize   = 100 * 1024 * 1024 // 100MB
)
