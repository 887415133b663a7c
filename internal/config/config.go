// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DevFallbackAPIKey is the dev-only global key used when FG_API_KEY is unset.
const DevFallbackAPIKey = "supersecret"

const prodDefaultDBPath = "/var/lib/frostgate/state/frostgate.db"

// Config holds all application configuration. It is immutable after Load.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64

	// Identity.
	Service string
	Env     string

	// Auth.
	AuthEnabled bool
	APIKey      string

	// Database.
	DBPath     string
	DBPoolSize int

	// Decision pipeline.
	ClockStaleMS int64

	// Rate limiting (per tenant, per route).
	RateLimitRPS   float64
	RateLimitBurst int

	// Feature flags. Each gates the mounting of its optional surface;
	// when off the endpoints respond 404 as if not present.
	DevEventsEnabled       bool
	MissionEnvelopeEnabled bool
	RingRouterEnabled      bool
	ROEEngineEnabled       bool
	ForensicsEnabled       bool
	GovernanceEnabled      bool

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool

	// Operational settings.
	LogLevel string
}

// Options override environment-derived values for embedded use.
type Options struct {
	// AuthEnabled, when non-nil, takes precedence over FG_AUTH_ENABLED
	// and the FG_API_KEY presence heuristic.
	AuthEnabled *bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions is Load with explicit overrides. Precedence for auth:
// opts.AuthEnabled > FG_AUTH_ENABLED > FG_API_KEY non-empty.
func LoadWithOptions(opts Options) (Config, error) {
	apiKey := os.Getenv("FG_API_KEY")

	authEnabled := apiKey != ""
	if v, ok := envBoolSet("FG_AUTH_ENABLED"); ok {
		authEnabled = v
	}
	if opts.AuthEnabled != nil {
		authEnabled = *opts.AuthEnabled
	}

	if apiKey == "" {
		apiKey = DevFallbackAPIKey
		slog.Warn("config: FG_API_KEY not set, using dev fallback key (not for production)")
	}

	env := envStr("FG_ENV", "dev")

	dbPath, err := resolveDBPath(env)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envInt("FG_PORT", 8080),
		ReadTimeout:  envDuration("FG_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: envDuration("FG_WRITE_TIMEOUT", 30*time.Second),
		MaxBodyBytes: int64(envInt("FG_MAX_BODY_BYTES", 1*1024*1024)),

		Service: envStr("FG_SERVICE", "frostgate-core"),
		Env:     env,

		AuthEnabled: authEnabled,
		APIKey:      apiKey,

		DBPath:     dbPath,
		DBPoolSize: envInt("FG_DB_POOL_SIZE", 8),

		ClockStaleMS: int64(envInt("FG_CLOCK_STALE_MS", 300000)),

		RateLimitRPS:   envFloat("FG_RATE_LIMIT_RPS", 10),
		RateLimitBurst: envInt("FG_RATE_LIMIT_BURST", 20),

		DevEventsEnabled:       envBool("FG_DEV_EVENTS_ENABLED", false),
		MissionEnvelopeEnabled: envBool("FG_MISSION_ENVELOPE_ENABLED", false),
		RingRouterEnabled:      envBool("FG_RING_ROUTER_ENABLED", false),
		ROEEngineEnabled:       envBool("FG_ROE_ENGINE_ENABLED", false),
		ForensicsEnabled:       envBool("FG_FORENSICS_ENABLED", false),
		GovernanceEnabled:      envBool("FG_GOVERNANCE_ENABLED", false),

		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),

		LogLevel: envStr("FG_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveDBPath resolves the SQLite path with explicit precedence:
// FG_SQLITE_PATH, then the prod system path when FG_ENV=prod, then a
// state dir under FG_STATE_DIR (default ./state). A test environment
// resolving under /var/lib is configuration drift and fails loudly.
func resolveDBPath(env string) (string, error) {
	path := os.Getenv("FG_SQLITE_PATH")
	if path == "" {
		if env == "prod" {
			path = prodDefaultDBPath
		} else {
			stateDir := envStr("FG_STATE_DIR", "state")
			path = filepath.Join(stateDir, "frostgate.db")
		}
	}
	if env == "test" && strings.HasPrefix(path, "/var/lib/") {
		return "", fmt.Errorf("config: FG_ENV=test must not resolve the database under /var/lib (got %s)", path)
	}
	return path, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: database path is required")
	}
	if c.DBPoolSize <= 0 {
		return fmt.Errorf("config: FG_DB_POOL_SIZE must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: FG_MAX_BODY_BYTES must be positive")
	}
	if c.ClockStaleMS < 0 {
		return fmt.Errorf("config: FG_CLOCK_STALE_MS must be non-negative")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v, ok := envBoolSet(key); ok {
		return v
	}
	return defaultVal
}

// envBoolSet parses a boolean env var, reporting whether it was set to
// a recognizable value. Accepts 1/0, true/false, yes/no, on/off.
func envBoolSet(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
