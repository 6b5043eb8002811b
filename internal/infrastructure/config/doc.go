// Package config loads and validates Venue Edge Gateway configuration.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then EDGE_* environment variables. The environment layer covers every
// per-venue knob (venue ID, cloud URL, database path, sync tuning, discovery,
// pairing), so production deployments typically run without a config file.
package config
