package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Port        string

	// APIKey protects the query-side HTTP surface.
	APIKey string

	// WebhookSecret protects the inbound schedule webhook. Exact match,
	// not an HMAC.
	WebhookSecret string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// CarrierConfigPath overrides where carriers.yml is searched for.
	CarrierConfigPath string

	RateLimit RateLimitConfig
}

// RateLimitConfig configures the redis-backed ingest limiter. Rates are
// tokens per second; bursts are bucket capacities.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WebhookRate        float64
	WebhookBurst       int
	WebhookClientRate  float64
	WebhookClientBurst int

	// SyncLockTTLSeconds bounds how long a carrier sync lock can be held.
	SyncLockTTLSeconds int
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCarrierConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "boxlane"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		Port:              getenv("PORT", "8080"),
		APIKey:            strings.TrimSpace(getenv("API_KEY", "")),
		WebhookSecret:     strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "boxlane"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		CarrierConfigPath: strings.TrimSpace(getenv("CARRIER_CONFIG_PATH", "")),
		RateLimit: RateLimitConfig{
			Enabled:            getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:          getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379"),
			RedisPassword:      getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:            getenvInt("RATE_LIMIT_REDIS_DB", 0),
			WebhookRate:        getenvFloat("RATE_LIMIT_WEBHOOK_RATE", 50),
			WebhookBurst:       getenvInt("RATE_LIMIT_WEBHOOK_BURST", 100),
			WebhookClientRate:  getenvFloat("RATE_LIMIT_WEBHOOK_CLIENT_RATE", 10),
			WebhookClientBurst: getenvInt("RATE_LIMIT_WEBHOOK_CLIENT_BURST", 20),
			SyncLockTTLSeconds: getenvInt("RATE_LIMIT_SYNC_LOCK_TTL_SECONDS", 600),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
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
