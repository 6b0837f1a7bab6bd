package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Env          string
	HTTPAddr     string
	GRPCAddr     string
	RedisPass    string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	EventChannel string
	CacheTTL     time.Duration

	TriggerRateLimit  int
	TriggerRateWindow time.Duration
	TriggerRateBlock  time.Duration

	Catalog Catalog
}

// Load reads the service configuration from the environment. The catalog is
// parsed here but validated separately so callers can report every problem.
func Load() (AppConfig, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return AppConfig{}, err
	}

	return AppConfig{
		Env:          getEnv("APP_ENV", "production"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8031"),
		GRPCAddr:     getEnv("GRPC_ADDR", ":8032"),
		RedisAddr:    getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:    getEnv("REDIS_PASS", ""),
		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:   getEnv("KAFKA_LEDGER_TOPIC", "loyalty.ledger.events"),
		EventChannel: getEnv("LEDGER_EVENTS_CHANNEL", "loyalty_ledger_events"),
		CacheTTL:     time.Duration(getEnvAsInt64("CACHE_TTL_SECONDS", 60)) * time.Second,
		Catalog:      catalog,

		TriggerRateLimit:  int(getEnvAsInt64("TRIGGER_RATE_LIMIT", 120)),
		TriggerRateWindow: time.Duration(getEnvAsInt64("TRIGGER_RATE_WINDOW_SECONDS", 60)) * time.Second,
		TriggerRateBlock:  time.Duration(getEnvAsInt64("TRIGGER_RATE_BLOCK_SECONDS", 300)) * time.Second,
	}, nil
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
