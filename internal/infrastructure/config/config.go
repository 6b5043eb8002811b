package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Venue Edge Gateway.
// Values are loaded from an optional YAML file and can be overridden by
// EDGE_* environment variables, so a container deployment can run without a
// config file at all.
type Config struct {
	Venue     VenueConfig     `yaml:"venue"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Pairing   PairingConfig   `yaml:"pairing"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// VenueConfig identifies the venue this gateway instance serves.
type VenueConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CloudConfig contains settings for the upstream cloud API.
type CloudConfig struct {
	// BaseURL is the root of the cloud API, e.g. "https://api.example.com".
	BaseURL string `yaml:"base_url"`

	// ProbeTimeout is the reachability probe timeout in seconds.
	ProbeTimeout int `yaml:"probe_timeout"`

	// RequestTimeout is the per-replay request timeout in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CacheConfig contains local cache settings.
type CacheConfig struct {
	// DefaultTTL is the cache entry lifetime in seconds when the caller
	// does not specify one.
	DefaultTTL int `yaml:"default_ttl"`

	// SweepInterval is how often expired rows are purged, in seconds.
	SweepInterval int `yaml:"sweep_interval"`
}

// SyncConfig contains command queue and sync engine settings.
type SyncConfig struct {
	// Interval is the periodic sync interval in seconds.
	Interval int `yaml:"interval"`

	// MaxRetries is the retry budget per command before it is marked FAILED.
	MaxRetries int `yaml:"max_retries"`

	// BatchSize is the maximum number of pending commands fetched per pass.
	BatchSize int `yaml:"batch_size"`
}

// APIConfig contains local HTTP server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// RateLimitConfig contains local request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// WebSocketConfig contains device WebSocket settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DiscoveryConfig contains LAN (mDNS) discovery settings.
type DiscoveryConfig struct {
	// Enabled toggles the whole discovery subsystem. The queue and hub do
	// not depend on it; devices can always connect directly.
	Enabled bool `yaml:"enabled"`

	// ServiceName is the mDNS service type the gateway advertises itself
	// under, e.g. "_edge-gateway._tcp".
	ServiceName string `yaml:"service_name"`

	// DeviceServiceName is the mDNS service type in-venue devices advertise.
	DeviceServiceName string `yaml:"device_service_name"`

	// BrowseInterval is how often the gateway browses for devices, seconds.
	BrowseInterval int `yaml:"browse_interval"`
}

// PairingConfig contains device pairing settings.
type PairingConfig struct {
	// CodeTTL is the lifetime of an issued pairing code in seconds.
	CodeTTL int `yaml:"code_ttl"`
}

// MQTTConfig contains settings for the optional local event bus.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// TelemetryConfig contains settings for the optional InfluxDB metrics sink.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// Loading order:
//  1. Hardcoded defaults
//  2. YAML file values (the file is optional; a missing file is not an error)
//  3. EDGE_* environment variables
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only deployment; defaults plus EDGE_* overrides.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			ProbeTimeout:   3,
			RequestTimeout: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/edge-gateway.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cache: CacheConfig{
			DefaultTTL:    300,
			SweepInterval: 60,
		},
		Sync: SyncConfig{
			Interval:   30,
			MaxRetries: 5,
			BatchSize:  50,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8088,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 65536,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Discovery: DiscoveryConfig{
			Enabled:           false,
			ServiceName:       "_edge-gateway._tcp",
			DeviceServiceName: "_edge-device._tcp",
			BrowseInterval:    60,
		},
		Pairing: PairingConfig{
			CodeTTL: 300,
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     1883,
			ClientID: "edge-gateway",
			QoS:      1,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies EDGE_* environment variable overrides. Every knob
// a deployment needs to vary per venue has an override so the gateway can be
// configured entirely from the environment.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("EDGE_VENUE_ID", &cfg.Venue.ID)
	setString("EDGE_VENUE_NAME", &cfg.Venue.Name)

	setString("EDGE_CLOUD_BASE_URL", &cfg.Cloud.BaseURL)
	setInt("EDGE_CLOUD_PROBE_TIMEOUT", &cfg.Cloud.ProbeTimeout)
	setInt("EDGE_CLOUD_REQUEST_TIMEOUT", &cfg.Cloud.RequestTimeout)

	setString("EDGE_DATABASE_PATH", &cfg.Database.Path)

	setInt("EDGE_CACHE_DEFAULT_TTL", &cfg.Cache.DefaultTTL)

	setInt("EDGE_SYNC_INTERVAL", &cfg.Sync.Interval)
	setInt("EDGE_SYNC_MAX_RETRIES", &cfg.Sync.MaxRetries)
	setInt("EDGE_SYNC_BATCH_SIZE", &cfg.Sync.BatchSize)

	setString("EDGE_API_HOST", &cfg.API.Host)
	setInt("EDGE_API_PORT", &cfg.API.Port)
	setBool("EDGE_API_RATE_LIMIT_ENABLED", &cfg.API.RateLimit.Enabled)
	setInt("EDGE_API_RATE_LIMIT_RPM", &cfg.API.RateLimit.RequestsPerMinute)

	setBool("EDGE_DISCOVERY_ENABLED", &cfg.Discovery.Enabled)
	setString("EDGE_DISCOVERY_SERVICE_NAME", &cfg.Discovery.ServiceName)

	setInt("EDGE_PAIRING_CODE_TTL", &cfg.Pairing.CodeTTL)

	setBool("EDGE_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("EDGE_MQTT_HOST", &cfg.MQTT.Host)
	setInt("EDGE_MQTT_PORT", &cfg.MQTT.Port)
	setString("EDGE_MQTT_USERNAME", &cfg.MQTT.Username)
	setString("EDGE_MQTT_PASSWORD", &cfg.MQTT.Password)

	setBool("EDGE_TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	setString("EDGE_TELEMETRY_URL", &cfg.Telemetry.URL)
	setString("EDGE_TELEMETRY_TOKEN", &cfg.Telemetry.Token)

	setString("EDGE_LOG_LEVEL", &cfg.Logging.Level)
	setString("EDGE_LOG_FORMAT", &cfg.Logging.Format)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Venue.ID == "" {
		errs = append(errs, "venue.id is required (set EDGE_VENUE_ID)")
	}

	if c.Cloud.BaseURL == "" {
		errs = append(errs, "cloud.base_url is required (set EDGE_CLOUD_BASE_URL)")
	} else if u, err := url.Parse(c.Cloud.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "cloud.base_url must be an absolute URL")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Sync.Interval < 1 {
		errs = append(errs, "sync.interval must be at least 1 second")
	}
	if c.Sync.MaxRetries < 0 {
		errs = append(errs, "sync.max_retries must not be negative")
	}
	if c.Sync.BatchSize < 1 {
		errs = append(errs, "sync.batch_size must be at least 1")
	}

	if c.Cache.DefaultTTL < 1 {
		errs = append(errs, "cache.default_ttl must be at least 1 second")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		errs = append(errs, "telemetry.url is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetProbeTimeout returns the reachability probe timeout as a Duration.
func (c *CloudConfig) GetProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

// GetRequestTimeout returns the per-replay request timeout as a Duration.
func (c *CloudConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetInterval returns the sync interval as a Duration.
func (c *SyncConfig) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// GetSweepInterval returns the cache sweep interval as a Duration.
func (c *CacheConfig) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// GetBrowseInterval returns the discovery browse interval as a Duration.
func (c *DiscoveryConfig) GetBrowseInterval() time.Duration {
	return time.Duration(c.BrowseInterval) * time.Second
}

// GetCodeTTL returns the pairing code lifetime as a Duration.
func (c *PairingConfig) GetCodeTTL() time.Duration {
	return time.Duration(c.CodeTTL) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
