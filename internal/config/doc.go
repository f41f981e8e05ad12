// Package config provides centralized configuration management for the
// ComplaintLens service. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CCLENS_* for namespacing:
//
//	CCLENS_SERVER_PORT=8080
//	CCLENS_DATA_CSV_PATH=/srv/complaints.csv
//	CCLENS_ANALYTICS_CRITICAL_PCT=22
//	CCLENS_LOGGING_LEVEL=info
//	CCLENS_CACHE_ENABLED=true
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	exportPath := paths.GetExportPath("summary.xlsx")
//	logPath := paths.GetLogPath("app.log")
//
// # Validation
//
// All configuration is validated at load time: ports and timeouts must be
// sensible, risk thresholds must be ordered (critical above watch), the
// latency window must not be inverted, and the dataset location must be
// set. The logging block is normalized rather than rejected.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
