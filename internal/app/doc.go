// Package app provides application initialization and lifecycle management for
// the ComplaintLens server. It handles the orchestration of all major
// components including configuration loading, service initialization, and
// graceful shutdown procedures.
//
// # Architecture
//
// The app package follows a dependency injection pattern where all components
// are wired together at startup. This ensures loose coupling and testability.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Create the websocket hub and the dataset/analytics/health services
//	4. Set up HTTP handlers and middleware
//	5. Configure the HTTP server
//
// The initial dataset load happens in Start, off the accept path: the server
// answers health and dataset-status requests immediately, the dataset guard
// holds analytics traffic with 503 until the load swaps a dataset in, and the
// readiness endpoint flips once it has.
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    slog.Error("failed to initialize", slog.String("error", err.Error()))
//	    os.Exit(1)
//	}
//	if err := application.Run(); err != nil {
//	    slog.Error("application error", slog.String("error", err.Error()))
//	    os.Exit(1)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed
//	- WebSocket connections are closed cleanly
//	- Metric collectors stop
//	- OpenTelemetry providers are flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing
// the main function to control the exit process.
package app
