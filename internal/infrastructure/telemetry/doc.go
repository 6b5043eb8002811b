// Package telemetry provides InfluxDB connectivity for the edge gateway.
//
// It wraps the official influxdb-client-go v2 library with gateway-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Sync pass outcomes (commands replayed, failures, pass duration)
//   - Terminal command failures with a reason tag
//   - Cache and queue depth snapshots
//
// # Usage
//
//	cfg := config.TelemetryConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "platefront",
//	    Bucket:  "edge_metrics",
//	}
//
//	client, err := telemetry.Connect(cfg, "venue-42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RecordSyncPass(12, 0, 340*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly. Telemetry is a
// best-effort concern: a down InfluxDB never affects queue or hub behaviour.
package telemetry
