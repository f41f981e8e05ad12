package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemMetrics_Collect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewSystemMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	startTime := time.Now().Add(-10 * time.Second)
	stats := metrics.Collect(context.Background(), startTime)
	require.NotNil(t, stats)

	assert.Positive(t, stats.GoRoutines)
	assert.Positive(t, stats.MemoryUsage)
	assert.Positive(t, stats.MemorySystem)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.ProcessUptime, 10*time.Second)
	assert.False(t, stats.Timestamp.IsZero())
}

func TestSystemStats_FormatStats(t *testing.T) {
	stats := &SystemStats{
		GoRoutines:      12,
		MemoryUsage:     64 * 1024 * 1024,
		MemoryAllocated: 128 * 1024 * 1024,
		MemorySystem:    256 * 1024 * 1024,
		GCCount:         3,
		LastGCPause:     2 * time.Millisecond,
		CPUCount:        8,
		ProcessUptime:   90 * time.Second,
		Timestamp:       time.Date(2016, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	formatted := stats.FormatStats()

	runtimeStats, ok := formatted["runtime"].(map[string]interface{})
	require.True(t, ok, "expected runtime section")
	assert.Equal(t, int64(12), runtimeStats["goroutines"])
	assert.Equal(t, int64(64), runtimeStats["memory_usage_mb"])
	assert.Equal(t, int64(128), runtimeStats["memory_alloc_mb"])
	assert.Equal(t, int64(256), runtimeStats["memory_system_mb"])
	assert.Equal(t, uint32(3), runtimeStats["gc_count"])
	assert.Equal(t, int64(2), runtimeStats["last_gc_pause_ms"])

	systemStats, ok := formatted["system"].(map[string]interface{})
	require.True(t, ok, "expected system section")
	assert.Equal(t, 8, systemStats["cpu_count"])
	assert.Equal(t, 90.0, systemStats["uptime_seconds"])

	assert.Equal(t, "2016-04-01T12:00:00Z", formatted["timestamp"])
}

func TestSystemMetricsCollector(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	collector, err := NewSystemMetricsCollector(providers.Meter, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, collector)
	assert.NotNil(t, collector.GetMetrics())

	done := make(chan struct{})
	go func() {
		collector.Start(context.Background())
		close(done)
	}()

	// Let a few collection cycles run
	time.Sleep(35 * time.Millisecond)

	stats := collector.GetCurrentStats(context.Background())
	require.NotNil(t, stats)
	assert.Positive(t, stats.GoRoutines)

	collector.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestSystemMetricsCollector_ContextCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	collector, err := NewSystemMetricsCollector(providers.Meter, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		collector.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop on context cancellation")
	}
}
