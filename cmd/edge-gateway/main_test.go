package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_MissingVenueID verifies run fails when no venue is configured.
func TestRun_MissingVenueID(t *testing.T) {
	t.Setenv("EDGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("EDGE_VENUE_ID", "")
	t.Setenv("EDGE_CLOUD_BASE_URL", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a venue ID")
	}
}

// TestRun_InvalidDatabasePath verifies run fails when the database
// directory does not exist.
func TestRun_InvalidDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	// A regular file where the database directory should be makes
	// MkdirAll fail regardless of privileges.
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0600); err != nil {
		t.Fatalf("failed to write blocker file: %v", err)
	}

	configContent := `
venue:
  id: venue-test

cloud:
  base_url: "https://api.example.com"

database:
  path: "` + filepath.Join(blocker, "edge.db") + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("EDGE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with an unusable database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("EDGE_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("EDGE_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
