// Package config builds the service configuration from environment
// variables so main stays lean. Every knob has a development default; the
// only values production must override are the signing key and, when the
// admin surface is exposed, the admin key hash.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"biorempp/internal/parser"
	"biorempp/internal/pipeline"
	"biorempp/internal/reftable"
	"biorempp/pkg/platform/circuit"
)

// Config is the root configuration assembled by FromEnv.
type Config struct {
	Server   Server
	Auth     Auth
	Limits   Limits
	Pipeline Pipeline
	Redis    Redis
	Kafka    Kafka
	Tables   Tables
	Audit    Audit
	Sessions Sessions
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr      string
	LogFormat string
	LogLevel  string
}

// Auth carries the session token and admin key material.
type Auth struct {
	// JWTSigningKey signs session tokens. The default is for development
	// only and must be overridden in production.
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	// AdminKeyHash is the bcrypt hash the X-Admin-Key header is verified
	// against. Empty disables the admin endpoints.
	AdminKeyHash string
}

// Limits bounds a single submission before and during parsing.
type Limits struct {
	MaxSamples      int
	MaxKOsPerSample int
	MaxTotalKOs     int
	MaxContentBytes int
}

// ParserLimits converts the configured ceilings into the parser's type.
func (l Limits) ParserLimits() parser.Limits {
	return parser.Limits{
		MaxSamples:      l.MaxSamples,
		MaxKOsPerSample: l.MaxKOsPerSample,
		MaxTotalKOs:     l.MaxTotalKOs,
	}
}

// Pipeline tunes the merge orchestrator.
type Pipeline struct {
	MaxRetries       int
	RetryDelay       time.Duration
	Timeout          time.Duration
	CacheTTL         time.Duration
	CacheMaxEntries  int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	SkipPathway      bool
	SkipHadeg        bool
	SkipToxcsm       bool

	// MaxConcurrentRuns bounds how many pipeline runs execute at once.
	MaxConcurrentRuns int
	// WarmTables preloads every reference table at startup.
	WarmTables bool
}

// OrchestratorConfig converts the tuning knobs into the pipeline's type.
func (p Pipeline) OrchestratorConfig() pipeline.Config {
	return pipeline.Config{
		MaxRetries:       p.MaxRetries,
		RetryDelay:       p.RetryDelay,
		Timeout:          p.Timeout,
		CacheTTL:         p.CacheTTL,
		BreakerThreshold: p.BreakerThreshold,
		BreakerCooldown:  p.BreakerCooldown,
		SkipPathway:      p.SkipPathway,
		SkipHadeg:        p.SkipHadeg,
		SkipToxcsm:       p.SkipToxcsm,
	}
}

// Redis configures the optional shared result cache. An empty URL keeps the
// in-memory cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the optional analysis event stream. No brokers means the
// no-op publisher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Tables selects where the reference tables are read from. Per-table
// overrides switch individual tables to another driver.
type Tables struct {
	DataDir   string
	Delimiter rune
	Overrides map[string]reftable.SourceConfig
}

// CatalogConfig converts the table settings into the loader catalog's type.
func (t Tables) CatalogConfig() reftable.CatalogConfig {
	return reftable.CatalogConfig{
		DataDir:   t.DataDir,
		Delimiter: t.Delimiter,
		Overrides: t.Overrides,
	}
}

// Audit configures the submission audit trail. An empty DSN keeps the
// in-memory store.
type Audit struct {
	PostgresDSN string
	BufferSize  int
}

// Sessions bounds the in-memory analysis session store.
type Sessions struct {
	TTL         time.Duration
	MaxSessions int
}

// FromEnv assembles the configuration from BIOREMPP_* environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:      envString("BIOREMPP_ADDR", ":8080"),
			LogFormat: envString("BIOREMPP_LOG_FORMAT", "text"),
			LogLevel:  envString("BIOREMPP_LOG_LEVEL", "info"),
		},
		Auth: Auth{
			JWTSigningKey: envString("BIOREMPP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envString("BIOREMPP_JWT_ISSUER", "biorempp"),
			TokenTTL:      envDuration("BIOREMPP_TOKEN_TTL", 24*time.Hour),
			AdminKeyHash:  os.Getenv("BIOREMPP_ADMIN_KEY_HASH"),
		},
		Limits: Limits{
			MaxSamples:      envInt("BIOREMPP_MAX_SAMPLES", parser.DefaultMaxSamples),
			MaxKOsPerSample: envInt("BIOREMPP_MAX_KOS_PER_SAMPLE", parser.DefaultMaxKOsPerSample),
			MaxTotalKOs:     envInt("BIOREMPP_MAX_TOTAL_KOS", parser.DefaultMaxTotalKOs),
			MaxContentBytes: envInt("BIOREMPP_MAX_CONTENT_BYTES", parser.DefaultMaxContentBytes),
		},
		Pipeline: Pipeline{
			MaxRetries:        envInt("BIOREMPP_PIPELINE_MAX_RETRIES", pipeline.DefaultMaxRetries),
			RetryDelay:        envDuration("BIOREMPP_PIPELINE_RETRY_DELAY", pipeline.DefaultRetryDelay),
			Timeout:           envDuration("BIOREMPP_PIPELINE_TIMEOUT", pipeline.DefaultTimeout),
			CacheTTL:          envDuration("BIOREMPP_RESULT_CACHE_TTL", pipeline.DefaultCacheTTL),
			CacheMaxEntries:   envInt("BIOREMPP_RESULT_CACHE_MAX_ENTRIES", 0),
			BreakerThreshold:  envInt("BIOREMPP_BREAKER_THRESHOLD", circuit.DefaultFailureThreshold),
			BreakerCooldown:   envDuration("BIOREMPP_BREAKER_COOLDOWN", circuit.DefaultCooldown),
			SkipPathway:       envBool("BIOREMPP_SKIP_PATHWAY", false),
			SkipHadeg:         envBool("BIOREMPP_SKIP_HADEG", false),
			SkipToxcsm:        envBool("BIOREMPP_SKIP_TOXCSM", false),
			MaxConcurrentRuns: envInt("BIOREMPP_MAX_CONCURRENT_RUNS", 4),
			WarmTables:        envBool("BIOREMPP_WARM_TABLES", true),
		},
		Redis: Redis{
			URL:          os.Getenv("BIOREMPP_REDIS_URL"),
			PoolSize:     envInt("BIOREMPP_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BIOREMPP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BIOREMPP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BIOREMPP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BIOREMPP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envStrings("BIOREMPP_KAFKA_BROKERS"),
			Topic:   envString("BIOREMPP_KAFKA_TOPIC", "biorempp.analysis"),
		},
		Tables: Tables{
			DataDir:   envString("BIOREMPP_DATA_DIR", "data"),
			Delimiter: envDelimiter("BIOREMPP_TABLE_DELIMITER", ';'),
			Overrides: tableOverridesFromEnv(),
		},
		Audit: Audit{
			PostgresDSN: os.Getenv("BIOREMPP_AUDIT_POSTGRES_DSN"),
			BufferSize:  envInt("BIOREMPP_AUDIT_BUFFER_SIZE", 256),
		},
		Sessions: Sessions{
			TTL:         envDuration("BIOREMPP_SESSION_TTL", 24*time.Hour),
			MaxSessions: envInt("BIOREMPP_MAX_SESSIONS", 1000),
		},
	}
}

// tableOverridesFromEnv reads per-table source overrides. For each table
// name, BIOREMPP_TABLE_<NAME>_DRIVER selects the driver and the remaining
// fields parameterize it, e.g. BIOREMPP_TABLE_TOXCSM_DRIVER=postgres with
// BIOREMPP_TABLE_TOXCSM_DSN and BIOREMPP_TABLE_TOXCSM_QUERY.
func tableOverridesFromEnv() map[string]reftable.SourceConfig {
	overrides := make(map[string]reftable.SourceConfig)
	for _, spec := range reftable.Specs() {
		prefix := "BIOREMPP_TABLE_" + strings.ToUpper(spec.Name) + "_"
		driver := os.Getenv(prefix + "DRIVER")
		if driver == "" {
			continue
		}
		overrides[spec.Name] = reftable.SourceConfig{
			Driver:    driver,
			Path:      os.Getenv(prefix + "PATH"),
			Delimiter: envDelimiter(prefix+"DELIMITER", 0),
			Bucket:    os.Getenv(prefix + "BUCKET"),
			Region:    os.Getenv(prefix + "REGION"),
			Endpoint:  os.Getenv(prefix + "ENDPOINT"),
			PathStyle: envBool(prefix+"PATH_STYLE", false),
			Key:       os.Getenv(prefix + "KEY"),
			DSN:       os.Getenv(prefix + "DSN"),
			Query:     os.Getenv(prefix + "QUERY"),
		}
	}
	return overrides
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envStrings(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		warnInvalid(key, v)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warnInvalid(key, v)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warnInvalid(key, v)
		return fallback
	}
	return d
}

func envDelimiter(key string, fallback rune) rune {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	runes := []rune(v)
	if len(runes) != 1 {
		warnInvalid(key, v)
		return fallback
	}
	return runes[0]
}

// warnInvalid goes to stderr because config is read before the logger exists.
func warnInvalid(key, value string) {
	fmt.Fprintf(os.Stderr, "config: ignoring invalid %s=%q\n", key, value)
}
