// Venue Edge Gateway
//
// This is the main entry point for the edge gateway process. One instance
// runs at each physical venue and:
//   - durably queues state-changing commands from in-venue devices
//   - replays them to the cloud exactly-once once connectivity returns
//   - serves a TTL-bounded local cache so reads keep working offline
//   - hosts the device WebSocket hub and optional LAN discovery
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/platefront/edge-gateway/migrations"

	"github.com/platefront/edge-gateway/internal/api"
	"github.com/platefront/edge-gateway/internal/cloud"
	"github.com/platefront/edge-gateway/internal/discovery"
	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/database"
	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
	"github.com/platefront/edge-gateway/internal/infrastructure/mqtt"
	"github.com/platefront/edge-gateway/internal/infrastructure/telemetry"
	"github.com/platefront/edge-gateway/internal/queue"
	"github.com/platefront/edge-gateway/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// A store initialisation failure is fatal: the process exits non-zero so a
// supervisor restarts it, rather than running with storage in an unknown
// state.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting edge gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "venue_id", cfg.Venue.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version, cfg.Venue.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	st := store.New(db.DB)

	// Cloud client: reachability probe + command replayer
	cloudClient := cloud.New(cfg.Cloud, cfg.Venue.ID)
	log.Info("cloud client initialised", "base_url", cfg.Cloud.BaseURL)

	// Connect to the local MQTT broker (optional)
	var events queue.EventPublisher
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Venue.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		events = mqtt.NewEventBus(mqttClient, cfg.Venue.ID, log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var metrics queue.MetricsRecorder
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry, cfg.Venue.ID)
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		metrics = telemetryClient
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Sync engine
	engine, err := queue.New(queue.Deps{
		Store:   st,
		Cloud:   cloudClient,
		Config:  cfg.Sync,
		Logger:  log,
		Events:  events,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("creating sync engine: %w", err)
	}

	// API server + device hub
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Cache:   cfg.Cache,
		Pairing: cfg.Pairing,
		Logger:  log,
		Store:   st,
		Engine:  engine,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// The hub pushes queue counters to devices after each pass.
	engine.SetBroadcaster(server.Hub())
	engine.StartSync()
	defer func() {
		log.Info("stopping sync engine")
		engine.StopSync()
	}()
	log.Info("sync engine started",
		"interval", cfg.Sync.GetInterval(),
		"max_retries", cfg.Sync.MaxRetries,
		"batch_size", cfg.Sync.BatchSize,
	)

	// LAN discovery (optional)
	if cfg.Discovery.Enabled {
		disc, discErr := discovery.New(discovery.Deps{
			Config:  cfg.Discovery,
			Logger:  log,
			Store:   st,
			VenueID: cfg.Venue.ID,
			Version: version,
			Port:    cfg.API.Port,
		})
		if discErr != nil {
			return fmt.Errorf("creating discovery service: %w", discErr)
		}
		// Best-effort: a venue LAN without multicast still gets a
		// working gateway.
		if startErr := disc.Start(ctx); startErr != nil {
			log.Warn("discovery failed to start, devices must connect directly", "error", startErr)
		} else {
			defer func() {
				log.Info("stopping discovery")
				disc.Stop()
			}()
			log.Info("discovery started",
				"service", cfg.Discovery.ServiceName,
				"browse_service", cfg.Discovery.DeviceServiceName,
			)
		}
	} else {
		log.Info("discovery disabled")
	}

	// Periodic purge of expired cache rows
	go runCacheSweeper(ctx, st, cfg.Cache.GetSweepInterval(), log)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Discovery (if enabled)
	// 2. Sync engine (drains the in-flight pass)
	// 3. API server (graceful HTTP shutdown)
	// 4. Telemetry (if enabled)
	// 5. MQTT (if enabled)
	// 6. Database

	log.Info("edge gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runCacheSweeper purges expired cache rows on a timer until ctx is done.
// Reads already treat expired rows as misses; the sweep just reclaims disk.
func runCacheSweeper(ctx context.Context, st *store.Store, interval time.Duration, log *logging.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := st.PurgeExpiredCache(ctx)
			if err != nil {
				log.Error("cache sweep failed", "error", err)
				continue
			}
			if purged > 0 {
				log.Debug("cache sweep complete", "purged", purged)
			}
		}
	}
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - telemetryClient: Telemetry client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	// Cloud reachability is intentionally not part of startup health:
	// the gateway exists to run while the cloud is unreachable.

	return nil
}
