package influxdb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/obdlog/internal/infrastructure/config"
	"github.com/nerrad567/obdlog/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
// The token can be overridden with OBDLOG_TEST_INFLUXDB_TOKEN.
func testConfig() config.InfluxDBConfig {
	token := os.Getenv("OBDLOG_TEST_INFLUXDB_TOKEN")
	if token == "" {
		token = "obdlog-dev-token"
	}
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         token,
		Org:           "obdlog",
		Bucket:        "obd",
		Measurement:   "obd_signal_test",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") != "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := influxdb.Connect(ctx, testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	client.Close() //nolint:errcheck // reachability check only
}

// connect opens a client for the test and closes it on cleanup.
func connect(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client := connect(t, testConfig())
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := influxdb.Connect(ctx, testConfig())
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	skipIfNoInfluxDB(t)

	tests := []struct {
		name          string
		batchSize     int
		flushInterval int
	}{
		{"zero", 0, 0},
		{"negative", -5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize = tt.batchSize
			cfg.FlushInterval = tt.flushInterval

			client := connect(t, cfg)
			if !client.IsConnected() {
				t.Error("IsConnected() = false with defaulted batch settings")
			}
		})
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)

	client := connect(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close() //nolint:errcheck // closing to test state

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteSignal(t *testing.T) {
	skipIfNoInfluxDB(t)

	client := connect(t, testConfig())

	ts := time.Now().Add(-time.Minute)
	client.WriteSignal("Vehicle speed", "mph", "MPH", 55.5, ts)
	client.WriteSignal("Custom PID", "unknown", "", 3, ts)

	if err := client.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestWriteSignal_UnknownBucket(t *testing.T) {
	skipIfNoInfluxDB(t)

	cfg := testConfig()
	cfg.Bucket = "obdlog-no-such-bucket"
	client := connect(t, cfg)

	client.WriteSignal("Vehicle speed", "mph", "MPH", 55.5, time.Now())

	// Batch errors arrive asynchronously; allow the drain goroutine to run
	var err error
	for i := 0; i < 20 && err == nil; i++ {
		err = client.Flush()
		if err == nil {
			time.Sleep(50 * time.Millisecond)
			client.WriteSignal("Vehicle speed", "mph", "MPH", 55.5, time.Now())
		}
	}
	if !errors.Is(err, influxdb.ErrWriteFailed) {
		t.Errorf("Flush() error = %v, want ErrWriteFailed", err)
	}
}

func TestMeasurement(t *testing.T) {
	skipIfNoInfluxDB(t)

	cfg := testConfig()
	cfg.Measurement = ""
	client := connect(t, cfg)

	if got := client.Measurement(); got != "obd_signal" {
		t.Errorf("Measurement() = %q, want %q", got, "obd_signal")
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteSignal("Close test", "volts", "V", 12.6, time.Now())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes and flushes after close are no-ops
	client.WriteSignal("Close test", "volts", "V", 12.6, time.Now())
	if err := client.Flush(); err != nil {
		t.Errorf("Flush() after Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
