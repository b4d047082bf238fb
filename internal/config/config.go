package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RunMigrations bool

	Redis     RedisConfig
	Lock      LockConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig

	MetricsPush MetricsPushConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig configures the cross-process evaluation lock. When disabled only
// the in-process and row-level locks serialize evaluations.
type LockConfig struct {
	Enabled    bool
	TTLSeconds int
	WaitMillis int
}

// RateLimitConfig throttles on-demand evaluations per subject.
type RateLimitConfig struct {
	Enabled             bool
	ManualEvaluateRate  float64
	ManualEvaluateBurst int
}

// CacheConfig controls the in-process cache of gamification reads.
type CacheConfig struct {
	TTLSeconds     int
	CleanupSeconds int
}

// MetricsPushConfig ships gamification snapshot gauges to a central Prometheus.
// Exporter is "prometheus_remote_write" or "prometheus_pushgateway".
type MetricsPushConfig struct {
	Enabled         bool
	Exporter        string
	Endpoint        string
	AuthToken       string
	IntervalSeconds int
}

// RedisRequired reports whether any component needs the redis client.
func (c Config) RedisRequired() bool {
	return c.Lock.Enabled || c.RateLimit.Enabled
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "studiobook"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "studiobook"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "studiobook.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RunMigrations:     getenvBool("DATABASE_MIGRATE", true),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Lock: LockConfig{
			Enabled:    getenvBool("LOCK_REDIS_ENABLED", false),
			TTLSeconds: getenvInt("LOCK_TTL_SECONDS", 10),
			WaitMillis: getenvInt("LOCK_WAIT_MILLIS", 3000),
		},
		RateLimit: RateLimitConfig{
			Enabled:             getenvBool("RATE_LIMIT_ENABLED", false),
			ManualEvaluateRate:  getenvFloat("RATE_LIMIT_MANUAL_EVALUATE_RATE", 0.2),
			ManualEvaluateBurst: getenvInt("RATE_LIMIT_MANUAL_EVALUATE_BURST", 3),
		},
		Cache: CacheConfig{
			TTLSeconds:     getenvInt("GAMIFICATION_CACHE_TTL_SECONDS", 30),
			CleanupSeconds: getenvInt("GAMIFICATION_CACHE_CLEANUP_SECONDS", 60),
		},
		MetricsPush: MetricsPushConfig{
			Enabled:         getenvBool("METRICS_PUSH_ENABLED", false),
			Exporter:        strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", "prometheus_remote_write")),
			Endpoint:        strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken:       strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
			IntervalSeconds: getenvInt("METRICS_PUSH_INTERVAL_SECONDS", 300),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
