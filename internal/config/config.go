package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dandantas/turnstile/internal/model"
)

// Config holds all application configuration
type Config struct {
	// Counting engine
	EngineBaseURL         string
	EngineSubmitTimeout   time.Duration
	DefaultWebhookTimeout time.Duration

	// MongoDB Configuration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// CORS Configuration
	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int

	// Retention sweeper
	SweepEnabled   bool
	SweepSchedule  string
	SweepRetention time.Duration
	SweepLockTTL   time.Duration

	// Default counting parameters for new sessions
	DefaultParameters model.ParameterSet
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Engine
		EngineBaseURL:         getEnv("ENGINE_BASE_URL", "http://localhost:8000"),
		EngineSubmitTimeout:   getDurationEnv("ENGINE_SUBMIT_TIMEOUT_SEC", 120) * time.Second,
		DefaultWebhookTimeout: getDurationEnv("DEFAULT_WEBHOOK_TIMEOUT_SEC", 10) * time.Second,

		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/turnstile?authSource=admin"),
		MongoDatabase: getEnv("MONGO_DATABASE", "turnstile"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 300) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 300) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// CORS
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS, PATCH"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),

		// Retention sweeper
		SweepEnabled:   getBoolEnv("SWEEP_ENABLED", true),
		SweepSchedule:  getEnv("SWEEP_SCHEDULE", "0 3 * * *"),
		SweepRetention: getDurationEnv("SWEEP_RETENTION_HOURS", 24*30) * time.Hour,
		SweepLockTTL:   getDurationEnv("SWEEP_LOCK_TTL_SEC", 300) * time.Second,

		// Counting defaults, mirroring the engine's own defaults
		DefaultParameters: model.ParameterSet{
			DoorDirection:       model.DoorDirection(getEnv("DEFAULT_DOOR_DIRECTION", "up")),
			Confidence:          getFloatEnv("DEFAULT_CONFIDENCE", 0.5),
			SkipFrames:          getIntEnv("DEFAULT_SKIP_FRAMES", 1),
			PollIntervalSeconds: getIntEnv("DEFAULT_POLL_INTERVAL_SEC", 5),
			CenterCrop:          getBoolEnv("DEFAULT_CENTER_CROP", false),
			ShowPreview:         getBoolEnv("DEFAULT_SHOW_PREVIEW", true),
		},
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		log.Printf("Warning: Invalid float value for %s, using default %g", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
