package websocket

import (
	"log/slog"
	"time"
)

// RefreshNotifier translates dataset lifecycle events into the wire messages
// dashboards listen for. The dataset service talks to this instead of
// composing hub payloads itself.
type RefreshNotifier struct {
	hub    Broadcaster
	logger *slog.Logger
}

// NewRefreshNotifier creates a notifier bound to the given hub
func NewRefreshNotifier(hub Broadcaster, logger *slog.Logger) *RefreshNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshNotifier{
		hub:    hub,
		logger: logger.With(slog.String("component", "websocket.notifier")),
	}
}

// ReloadStarted announces that a dataset reload began
func (n *RefreshNotifier) ReloadStarted(loadID, trigger string) {
	n.hub.Broadcast(TypeReloadStarted, map[string]interface{}{
		"load_id": loadID,
		"trigger": trigger,
	})
}

// ReloadCompleted announces a swapped-in dataset. Dashboards re-query all
// views when they see this event.
func (n *RefreshNotifier) ReloadCompleted(loadID string, records int, fingerprint string, duration time.Duration) {
	n.logger.Debug("Broadcasting dataset reloaded",
		slog.String("load_id", loadID),
		slog.Int("records", records))

	n.hub.Broadcast(TypeDatasetReloaded, map[string]interface{}{
		"load_id":     loadID,
		"records":     records,
		"fingerprint": fingerprint,
		"duration_ms": duration.Milliseconds(),
	})
}

// ReloadFailed announces that a reload failed and the previous dataset is
// still being served
func (n *RefreshNotifier) ReloadFailed(loadID string, err error) {
	message := "dataset reload failed"
	if err != nil {
		message = err.Error()
	}

	n.hub.Broadcast(TypeReloadFailed, map[string]interface{}{
		"load_id":     loadID,
		"message":     message,
		"recoverable": true,
	})
}
