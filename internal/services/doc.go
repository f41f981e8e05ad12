// Package services implements the business logic layer between the HTTP
// handlers and the analytics pipeline.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Available Services
//
// The package provides these core services:
//
//	- DatasetService: owns the current complaints dataset and its lifecycle
//	  (initial load, fetch, reload, status)
//	- AnalyticsService: the request surface over the pure analytics
//	  functions, with result caching keyed by dataset fingerprint
//	- HealthService: system health checks for the health endpoints
//
// # Error Handling
//
// Services return sentinel errors that handlers transform into API errors:
//
//	- ErrDatasetNotLoaded when no dataset is resident yet
//	- ErrReloadInProgress when a reload is already running
//	- the analytics package sentinels for invalid request enums
//
// # Caching
//
// Analytics results are cached because the pipeline is pure: the same
// dataset fingerprint, filter selection and parameters always produce the
// same output, so recomputation is a safe substitute for any lost entry.
// The cache is evicted wholesale when the dataset is swapped.
package services
