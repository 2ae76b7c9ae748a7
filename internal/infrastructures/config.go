package infrastructures

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

type AppConfig struct {
	APP_PORT          string
	DATABASE_URL      string
	REDIS_ADDRESS     string
	REDIS_PASSWORD    string
	REDIS_DB          int
	STORE_DRIVER      string
	STORE_TIMEOUT     time.Duration
	LOG_LEVEL         string
	REDIS_KEY_PREFIX  string
	RATE_LIMIT_PREFIX string
	AUTO_MIGRATE      bool
}

var Config *AppConfig

func LoadConfig() *AppConfig {
	godotenv.Load()

	Config = &AppConfig{
		APP_PORT:          getEnv("APP_PORT", "8080"),
		DATABASE_URL:      os.Getenv("DATABASE_URL"),
		REDIS_ADDRESS:     getEnv("REDIS_ADDRESS", "localhost:6379"),
		REDIS_PASSWORD:    os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:          getEnvInt("REDIS_DB", 0),
		STORE_DRIVER:      getEnv("STORE_DRIVER", StoreDriverPostgres),
		STORE_TIMEOUT:     getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		LOG_LEVEL:         getEnv("LOG_LEVEL", "info"),
		REDIS_KEY_PREFIX:  getEnv("REDIS_KEY_PREFIX", "coupon-core"),
		RATE_LIMIT_PREFIX: getEnv("RATE_LIMIT_PREFIX", "coupon-core"),
		AUTO_MIGRATE:      getEnvBool("AUTO_MIGRATE", true),
	}

	return Config
}

// ProvideConfig hands the loaded configuration to the injector, loading it if main has not.
func ProvideConfig() *AppConfig {
	if Config == nil {
		return LoadConfig()
	}
	return Config
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
