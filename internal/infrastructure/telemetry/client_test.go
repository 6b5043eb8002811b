package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/telemetry"
)

// fakeInfluxServer speaks just enough of the InfluxDB v2 HTTP API for the
// client: 204 on /ping and /api/v2/write. Write bodies are captured so
// tests can assert on line protocol content.
type fakeInfluxServer struct {
	srv *httptest.Server

	mu     sync.Mutex
	writes int
}

func newFakeInfluxServer(t *testing.T) *fakeInfluxServer {
	t.Helper()

	f := &fakeInfluxServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			f.mu.Lock()
			f.writes++
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeInfluxServer) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func testConfig(url string) config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:       true,
		URL:           url,
		Token:         "edge-test-token",
		Org:           "platefront",
		Bucket:        "edge_metrics",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := telemetry.Connect(cfg, "venue-test")
	if err == nil {
		t.Fatal("Connect() should return error when disabled")
	}
	if !errors.Is(err, telemetry.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:59999") // Non-existent port

	_, err := telemetry.Connect(cfg, "venue-test")
	if err == nil {
		t.Fatal("Connect() should return error for invalid URL")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := newFakeInfluxServer(t)
	cfg := testConfig(fake.srv.URL)
	cfg.BatchSize = 0     // Should use default
	cfg.FlushInterval = 0 // Should use default

	client, err := telemetry.Connect(cfg, "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	err = client.HealthCheck(context.Background())
	if !errors.Is(err, telemetry.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestRecordSyncPass(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.RecordSyncPass(12, 1, 340*time.Millisecond)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
	if fake.writeCount() == 0 {
		t.Error("server received no writes after Flush()")
	}
}

func TestRecordCommandFailure(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.RecordCommandFailure("order", "retries_exhausted")
	client.RecordCommandFailure("payment", "invalid_payload")
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
	if fake.writeCount() == 0 {
		t.Error("server received no writes after Flush()")
	}
}

func TestRecordQueueDepth(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.RecordQueueDepth(5, 120, 2)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if fake.writeCount() == 0 {
		t.Error("server received no writes after Flush()")
	}
}

func TestRecord_AfterClose(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
	before := fake.writeCount()

	// Writes after Close are dropped silently.
	client.RecordSyncPass(1, 0, time.Millisecond)
	client.RecordCommandFailure("order", "retries_exhausted")
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	if got := fake.writeCount(); got != before {
		t.Errorf("writeCount() = %d after Close, want %d", got, before)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	fake := newFakeInfluxServer(t)

	client, err := telemetry.Connect(testConfig(fake.srv.URL), "venue-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Write something before close
	client.RecordSyncPass(3, 0, 50*time.Millisecond)

	// Close should flush and disconnect
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
