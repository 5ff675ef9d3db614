package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	RedisURL      string
	RedisPassword string

	// JWT issued by the auth provider
	JWTSecret string

	// Server
	Port        string
	Environment string

	// CORS
	CORSOrigins []string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int
	RateLimitBurst    int

	CompletionRateLimit       int
	CompletionRateLimitWindow int

	// Features
	EnableCache   bool
	EnableMetrics bool
	EnableSeed    bool
	SeedAuthorID  uint

	// Learning
	LeaderboardCacheTTL time.Duration
	CatalogCacheTTL     time.Duration
	ReconcileInterval   time.Duration

	// Background jobs
	SchedulerWorkers   int
	SchedulerQueueSize int
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "academy"),
		DBPassword: getEnv("DB_PASSWORD", "academypassword"),
		DBName:     getEnv("DB_NAME", "academydb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// CORS
		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 0),

		CompletionRateLimit:       getEnvAsInt("COMPLETION_RATE_LIMIT", 30),
		CompletionRateLimitWindow: getEnvAsInt("COMPLETION_RATE_LIMIT_WINDOW", 60),

		// Features
		EnableCache:   getEnvAsBool("ENABLE_CACHE", true),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		EnableSeed:    getEnvAsBool("ENABLE_SEED", false),
		SeedAuthorID:  uint(getEnvAsInt("SEED_AUTHOR_ID", 1)),

		// Learning
		LeaderboardCacheTTL: time.Duration(getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 60)) * time.Second,
		CatalogCacheTTL:     time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 300)) * time.Second,
		ReconcileInterval:   time.Duration(getEnvAsInt("RECONCILE_INTERVAL_MINUTES", 360)) * time.Minute,

		// Background jobs
		SchedulerWorkers:   getEnvAsInt("SCHEDULER_WORKERS", 2),
		SchedulerQueueSize: getEnvAsInt("SCHEDULER_QUEUE_SIZE", 32),
	}

	if url := getEnv("DATABASE_URL", ""); url != "" {
		c.DatabaseURL = url
	} else {
		c.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
		)
	}

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
