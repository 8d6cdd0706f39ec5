package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBDriver   string // postgres or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite file

	// Cache / session backends
	CacheBackend  string // redis, memcached or memory
	RedisAddress  string
	MemcachedAddr string

	// JWT configuration
	JWTSecret string

	// Blob folders
	DocumentFolder string
	DeletedFolder  string

	// Optional recognition services
	OCRAddress     string
	SummaryAddress string

	// Background OCR workers
	WorkerCount int

	DefaultAdminPassword string
	FrontendAddress      string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	AppConfig = Config{
		ServerPort:           getEnv("PORT", "8080"),
		Environment:          getEnv("ENV", "development"),
		DBDriver:             getEnv("DB_DRIVER", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", "postgres"),
		DBName:               getEnv("DB_NAME", "doc_tracker"),
		DBPath:               getEnv("DB_PATH", "doc-tracker.db"),
		CacheBackend:         getEnv("CACHE_BACKEND", "memory"),
		RedisAddress:         getEnv("REDIS_ADDRESS", "localhost:6379"),
		MemcachedAddr:        getEnv("MEMCACHED_ADDRESS", "localhost:11211"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		DocumentFolder:       getEnv("DOCUMENT_FOLDER", "documents"),
		DeletedFolder:        getEnv("DELETED_FOLDER", "deleted"),
		OCRAddress:           os.Getenv("OCR_ADDRESS"),
		SummaryAddress:       os.Getenv("SUMMARY_ADDRESS"),
		WorkerCount:          getEnvInt("WORKER_COUNT", 2),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", "admin123"),
		FrontendAddress:      getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
	}

	if AppConfig.JWTSecret == "" && AppConfig.Environment != "production" {
		AppConfig.JWTSecret = generateRandomSecret(32)
	}

	return AppConfig.Validate()
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in %s", c.Environment)
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for postgres")
		}
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.CacheBackend {
	case "redis", "memcached", "memory":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.DocumentFolder == "" || c.DeletedFolder == "" {
		return fmt.Errorf("DOCUMENT_FOLDER and DELETED_FOLDER must not be empty")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}

// generateRandomSecret generates a random hex secret of length bytes
func generateRandomSecret(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
