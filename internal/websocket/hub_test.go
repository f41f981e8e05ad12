package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewHub tests hub creation
func TestNewHub(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.logger)
	assert.NotNil(t, hub.quit)
	assert.NotNil(t, hub.metricsQuit)
	assert.Equal(t, 0, len(hub.clients))
	assert.False(t, hub.running)
}

// TestHubStartStop tests starting and stopping the hub
func TestHubStartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)

	hub.Start()
	assert.True(t, hub.running)

	// Starting again should be idempotent
	hub.Start()
	assert.True(t, hub.running)

	time.Sleep(10 * time.Millisecond)

	hub.Stop()
	assert.False(t, hub.running)

	// Stopping again should be idempotent
	hub.Stop()
	assert.False(t, hub.running)
}

// TestHubClientRegistration tests client registration and unregistration
func TestHubClientRegistration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	client := &Client{
		id:          "test-client-1",
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		traceID:     "test-trace-1",
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:8080",
	}

	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, hub.ClientCount())

	// Client should receive the welcome message
	select {
	case msg := <-client.send:
		var connMsg map[string]interface{}
		err := json.Unmarshal(msg, &connMsg)
		require.NoError(t, err)
		assert.Equal(t, TypeConnection, connMsg["type"])
		data := connMsg["data"].(map[string]interface{})
		assert.Equal(t, "connected", data["status"])
		assert.Equal(t, "test-client-1", data["client_id"])
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for connection message")
	}

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ClientCount())
}

// TestHubBroadcast tests message fan-out to multiple clients
func TestHubBroadcast(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	clients := make([]*Client, 3)
	for i := 0; i < 3; i++ {
		clients[i] = &Client{
			id:          fmt.Sprintf("test-client-%d", i),
			hub:         hub,
			send:        make(chan []byte, sendBufferSize),
			connectedAt: time.Now(),
			remoteAddr:  fmt.Sprintf("127.0.0.1:808%d", i),
		}
		hub.Register(clients[i])
	}

	time.Sleep(100 * time.Millisecond)

	// Clear welcome messages
	for _, client := range clients {
		<-client.send
	}

	testMsg := map[string]interface{}{
		"type": "test",
		"data": "broadcast test",
	}
	jsonData, _ := json.Marshal(testMsg)
	hub.broadcast <- jsonData

	var wg sync.WaitGroup
	wg.Add(3)
	for i, client := range clients {
		go func(idx int, c *Client) {
			defer wg.Done()
			select {
			case msg := <-c.send:
				assert.Equal(t, jsonData, msg)
			case <-time.After(1 * time.Second):
				t.Errorf("client %d: timeout waiting for broadcast", idx)
			}
		}(i, client)
	}
	wg.Wait()
}

// TestHubBroadcastMethods tests the typed broadcast helpers
func TestHubBroadcastMethods(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	client := &Client{
		id:          "test-client",
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:8080",
	}
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)
	<-client.send // Clear welcome message

	tests := []struct {
		name      string
		broadcast func()
		checkMsg  func(t *testing.T, msg map[string]interface{})
	}{
		{
			name: "Broadcast dataset reloaded",
			broadcast: func() {
				hub.Broadcast(TypeDatasetReloaded, map[string]interface{}{
					"load_id": "load-42",
					"records": 5000,
				})
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeDatasetReloaded, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "load-42", data["load_id"])
				assert.Equal(t, float64(5000), data["records"])
				assert.NotEmpty(t, msg["timestamp"])
			},
		},
		{
			name: "BroadcastWithTrace carries trace ID",
			broadcast: func() {
				hub.BroadcastWithTrace(TypeReloadStarted, map[string]interface{}{
					"load_id": "load-43",
				}, "trace-abc")
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeReloadStarted, msg["type"])
				assert.Equal(t, "trace-abc", msg["trace_id"])
			},
		},
		{
			name: "BroadcastRefresh",
			broadcast: func() {
				hub.BroadcastRefresh("dataset-service", []string{"overview", "rankings"})
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeDataUpdate, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "dataset-service", data["source"])
				assert.Equal(t, ActionRefresh, data["action"])
				components := data["components"].([]interface{})
				assert.Equal(t, 2, len(components))
			},
		},
		{
			name: "BroadcastError",
			broadcast: func() {
				hub.BroadcastError("RELOAD_FAILED", "fetch dataset: connection refused", true)
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeError, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "RELOAD_FAILED", data["code"])
				assert.Equal(t, "fetch dataset: connection refused", data["message"])
				assert.Equal(t, true, data["recoverable"])
			},
		},
		{
			name: "BroadcastJSON",
			broadcast: func() {
				hub.BroadcastJSON(map[string]interface{}{
					"type":   "custom",
					"detail": "raw payload",
				})
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, "custom", msg["type"])
				assert.Equal(t, "raw payload", msg["detail"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.broadcast()

			select {
			case msgBytes := <-client.send:
				var msg map[string]interface{}
				err := json.Unmarshal(msgBytes, &msg)
				require.NoError(t, err)
				tt.checkMsg(t, msg)
			case <-time.After(1 * time.Second):
				t.Fatal("timeout waiting for broadcast message")
			}
		})
	}
}

// TestHubSlowClientEviction tests that clients with full buffers are dropped
func TestHubSlowClientEviction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	// A client whose buffer holds a single message and is never drained
	slow := &Client{
		id:          "slow-client",
		hub:         hub,
		send:        make(chan []byte, 1),
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:9999",
	}
	hub.Register(slow)
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, hub.ClientCount())
	// The welcome message filled the buffer; the next broadcast cannot be
	// delivered and the hub must evict the client
	hub.Broadcast(TypeDatasetReloaded, map[string]interface{}{"load_id": "load-1"})
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, hub.ClientCount())
}

// TestHubMetricsSnapshot tests the health-endpoint metrics view
func TestHubMetricsSnapshot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	client := &Client{
		id:          "metrics-client",
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:8080",
	}
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	metrics := hub.GetHubMetrics()
	assert.Equal(t, 1, metrics["active_clients"])
	assert.Equal(t, int64(1), metrics["total_connections"])
	assert.Contains(t, metrics, "messages_sent")
	assert.Contains(t, metrics, "messages_received")
	assert.Contains(t, metrics, "connection_errors")
}
