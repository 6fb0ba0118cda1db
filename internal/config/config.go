package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Lock      LockConfig
	Cache     CacheConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port                 string
	Environment          string
	LogFilePath          string
	NotificationLogPath  string
	CorsAllowedOrigins   string
	NatsURL              string
	RedisURL             string
	BusinessTimezone     string
	JwtSecret            string
	MaxCalendarRangeDays int
}

type DatabaseConfig struct {
	Connection string
}

type SchedulerConfig struct {
	AckSweepInterval      time.Duration // how often due acks are examined
	AckPromptInterval     time.Duration // delay between prompts and before auto-confirm
	AckSweepBatchSize     int
	PromptWorkers         int
	PromptQueueSize       int
	PromptRatePerSecond   float64
	GatewayResyncInterval time.Duration
}

type LockConfig struct {
	TTL time.Duration
}

type CacheConfig struct {
	SubscriptionTTL time.Duration
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                 getEnv("APP_PORT", "3000"),
			Environment:          getEnv("GO_ENV", "development"),
			LogFilePath:          getEnv("LOG_FILE_PATH", "logs/app.log"),
			NotificationLogPath:  getEnv("NOTIFICATION_LOG_FILE_PATH", "logs/notification.log"),
			CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:              getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
			BusinessTimezone:     getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
			JwtSecret:            getEnv("JWT_SECRET", ""),
			MaxCalendarRangeDays: getEnvAsInt("MAX_CALENDAR_RANGE_DAYS", 62),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Scheduler: SchedulerConfig{
			AckSweepInterval:      getEnvAsDuration("ACK_SWEEP_INTERVAL", time.Minute),
			AckPromptInterval:     getEnvAsDuration("ACK_PROMPT_INTERVAL", 60*time.Second),
			AckSweepBatchSize:     getEnvAsInt("ACK_SWEEP_BATCH_SIZE", 200),
			PromptWorkers:         getEnvAsInt("PROMPT_WORKERS", 4),
			PromptQueueSize:       getEnvAsInt("PROMPT_QUEUE_SIZE", 1000),
			PromptRatePerSecond:   getEnvAsFloat("PROMPT_RATE_PER_SECOND", 50),
			GatewayResyncInterval: getEnvAsDuration("GATEWAY_RESYNC_INTERVAL", time.Minute),
		},
		Lock: LockConfig{
			TTL: getEnvAsDuration("SUBSCRIPTION_LOCK_TTL", 10*time.Second),
		},
		Cache: CacheConfig{
			SubscriptionTTL: getEnvAsDuration("SUBSCRIPTION_CACHE_TTL", time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "meal-subscription-be"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Location resolves BusinessTimezone, falling back to UTC on a bad name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.BusinessTimezone)
	if err != nil {
		log.Printf("Invalid BUSINESS_TIMEZONE %q, using UTC: %v", c.App.BusinessTimezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "1m") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
