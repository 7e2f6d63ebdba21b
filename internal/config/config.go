// Package config loads application configuration from environment variables,
// with optional YAML overrides for cache lifetimes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Storage StorageConfig
	Graph   GraphConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// StorageMode selects how reads are served.
type StorageMode string

const (
	// ModePrimary serves all reads from the primary store.
	ModePrimary StorageMode = "primary"

	// ModeShadow serves reads from the primary while comparing result
	// counts against the graph store in the background.
	ModeShadow StorageMode = "shadow"
)

// StorageConfig selects the primary store and the read-serving mode.
type StorageConfig struct {
	SQLitePath string
	Mode       StorageMode
}

// GraphConfig describes connectivity to the graph database used as the
// shadow-read target.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// RedisConfig describes the cache backend. An empty Addr selects the
// in-process cache instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig tunes the read-through cache.
type CacheConfig struct {
	Namespace string

	// TTLFile optionally points at a YAML file mapping scope names to
	// durations, overriding the built-in lifetimes.
	TTLFile string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level   string
	Format  string // text|json
	Colored bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSQLitePath      = "data/splitledger.db"
	defaultCacheNamespace  = "splitledger"
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultGraphSessions   = 10
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Storage: StorageConfig{
			SQLitePath: valueOrDefault("SQLITE_PATH", defaultSQLitePath),
			Mode:       StorageMode(valueOrDefault("STORE_MODE", string(ModePrimary))),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       os.Getenv("GRAPH_DATABASE"),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphSessions),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Namespace: valueOrDefault("CACHE_NAMESPACE", defaultCacheNamespace),
			TTLFile:   os.Getenv("CACHE_TTL_FILE"),
		},
		Logging: LoggingConfig{
			Level:   valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:  valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored: parseBoolWithDefault("LOG_COLOR", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	for _, t := range []struct {
		key  string
		dest *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
	} {
		if v := os.Getenv(t.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", t.key, err)
			}
			*t.dest = d
		}
	}

	switch cfg.Storage.Mode {
	case ModePrimary, ModeShadow:
	default:
		return Config{}, fmt.Errorf("invalid STORE_MODE %q (want primary or shadow)", cfg.Storage.Mode)
	}
	if cfg.Storage.Mode == ModeShadow && cfg.Graph.URI == "" {
		return Config{}, fmt.Errorf("STORE_MODE=shadow requires GRAPH_URI")
	}

	return cfg, nil
}

// CacheTTLs loads per-scope TTL overrides from the configured YAML file.
// Returns an empty map when no file is configured.
func (c CacheConfig) CacheTTLs() (map[string]time.Duration, error) {
	if c.TTLFile == "" {
		return map[string]time.Duration{}, nil
	}

	raw, err := os.ReadFile(c.TTLFile)
	if err != nil {
		return nil, fmt.Errorf("read cache TTL file: %w", err)
	}

	var parsed map[string]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse cache TTL file: %w", err)
	}

	ttls := make(map[string]time.Duration, len(parsed))
	for scope, v := range parsed {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL for scope %q: %w", scope, err)
		}
		ttls[scope] = d
	}
	return ttls, nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return port, nil
}
