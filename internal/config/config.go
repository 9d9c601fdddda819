package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the messaging service.
type Config struct {
	ListenAddr  string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
	JWTSecret   string
	Environment string
}

// Load reads configuration from a .env file (if present) and environment
// variables, falling back to development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=artmarket port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     0,
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		Environment: getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
