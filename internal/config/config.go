// Package config handles application configuration loading and validation
// from environment variables, providing a type-safe configuration structure.
package config

import (
	"time"
)

// Config holds all application configuration values loaded from environment variables.
// It provides a centralized, type-safe way to access configuration throughout the application.
type Config struct {
	// Server configuration
	ListenAddr     string        // Address to listen on (e.g., ":8080")
	RequestTimeout time.Duration // HTTP server read/write timeout (idle timeout is twice this) and shutdown grace period

	// Environment
	APIEnv string // 'production', 'development', 'test'

	// Logging
	LogLevel        string // debug, info, warn, error
	LogFormat       string // json or console
	LogFile         string // path to log file (empty for stdout)
	LogMaxSizeBytes int64  // rotate the log file once it exceeds this size (0 disables rotation)
	LogMaxBackups   int    // number of rotated log files to retain

	// Header policy (§4.1)
	DefaultUserAgent string // overridable for tests; production default is the Firefox UA

	// Connection pool manager (§4.2)
	PoolMaxConnections        int // per-origin connection ceiling
	PoolMaxPipelinedPerConn   int // pipelined requests per connection
	PoolKeepAliveIdle         time.Duration
	PoolDialTimeout           time.Duration
	PoolTLSHandshakeTimeout   time.Duration
	PoolResponseHeaderTimeout time.Duration
	PoolExpectContinueTimeout time.Duration

	// Segment cache (§4.3)
	CacheMaxEntries     int
	CacheMaxMemoryBytes int64
	CacheExpiry         time.Duration
	CacheSweepInterval  time.Duration

	// Runtime toggles (§6)
	DisableCache bool // DISABLE_CACHE=true
	DisableM3U8  bool // DISABLE_M3U8=true
	ReqDebug     bool // REQ_DEBUG=true

	// Optional origin allowlist file (domain-stack extension, see SPEC_FULL.md)
	OriginConfigPath string

	// Management operations (Cache-Purge; /cache-stats is never token-guarded)
	ManagementToken string // if empty, DELETE /cache-purge is open (development mode)
}

// New creates a new configuration with values from environment variables,
// applying defaults where a variable is unset.
func New() *Config {
	return &Config{
		ListenAddr:     getEnvString("LISTEN_ADDR", ":8080"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		APIEnv: getEnvString("API_ENV", "development"),

		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		LogFormat:       getEnvString("LOG_FORMAT", "json"),
		LogFile:         getEnvString("LOG_FILE", ""),
		LogMaxSizeBytes: getEnvInt64("LOG_MAX_SIZE_BYTES", 0),
		LogMaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 5),

		DefaultUserAgent: getEnvString("DEFAULT_USER_AGENT", DefaultUserAgent),

		PoolMaxConnections:        getEnvInt("POOL_MAX_CONNECTIONS", 10),
		PoolMaxPipelinedPerConn:   getEnvInt("POOL_MAX_PIPELINED_PER_CONNECTION", 5),
		PoolKeepAliveIdle:         getEnvDuration("POOL_KEEPALIVE_IDLE", 30*time.Second),
		PoolDialTimeout:           getEnvDuration("POOL_DIAL_TIMEOUT", 30*time.Second),
		PoolTLSHandshakeTimeout:   getEnvDuration("POOL_TLS_HANDSHAKE_TIMEOUT", 10*time.Second),
		PoolResponseHeaderTimeout: getEnvDuration("POOL_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
		PoolExpectContinueTimeout: getEnvDuration("POOL_EXPECT_CONTINUE_TIMEOUT", time.Second),

		CacheMaxEntries:     getEnvInt("CACHE_MAX_ENTRIES", 2000),
		CacheMaxMemoryBytes: getEnvInt64("CACHE_MAX_MEMORY_BYTES", 500*1024*1024),
		CacheExpiry:         getEnvDuration("CACHE_EXPIRY", 2*time.Hour),
		CacheSweepInterval:  getEnvDuration("CACHE_SWEEP_INTERVAL", 30*time.Minute),

		DisableCache: envIsTrue("DISABLE_CACHE"),
		DisableM3U8:  envIsTrue("DISABLE_M3U8"),
		ReqDebug:     envIsTrue("REQ_DEBUG"),

		OriginConfigPath: getEnvString("ORIGIN_CONFIG_PATH", ""),
		ManagementToken:  getEnvString("MANAGEMENT_TOKEN", ""),
	}
}

// DefaultUserAgent is the bit-exact default outbound User-Agent (spec.md §6).
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:93.0) Gecko/20100101 Firefox/93.0"

// envIsTrue matches spec.md's literal-string toggle semantics: only the
// exact string "true" enables the switch, not any value ParseBool accepts.
func envIsTrue(key string) bool {
	return getEnvString(key, "") == "true"
}

// DisableCacheEnabled, DisableM3U8Enabled, and ReqDebugEnabled read their
// environment switches fresh on every call, per spec.md §4.5/§6: these
// three toggles are read on each invocation, never snapshotted at startup.
// Config.DisableCache/DisableM3U8/ReqDebug remain as the value observed at
// process start, useful for logging the effective configuration.
func DisableCacheEnabled() bool { return envIsTrue("DISABLE_CACHE") }
func DisableM3U8Enabled() bool  { return envIsTrue("DISABLE_M3U8") }
func ReqDebugEnabled() bool     { return envIsTrue("REQ_DEBUG") }
