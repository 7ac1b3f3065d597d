package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// app config for the interview orchestrator
type Config struct {
	Port               string
	CorsAllowedOrigins []string
	Provider           string

	// upper bound on every AI collaborator call
	CollaboratorTimeout time.Duration
	TrackedExpressions  []string

	StoreBackend       string
	MongoURI           string
	SessionsDBName     string
	SessionsCollection string
	Postgres           PostgresConfig

	RedisAddr            string
	AutoPersist          bool
	PersistRetrySchedule string

	LogLevel    string
	LogFilePath string
}

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     string
	SSLMode  string
}

// DSN builds the libpq connection string used by gorm's postgres driver
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

// loads configuration from environment variables (and an optional .env file)
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		CorsAllowedOrigins:   splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		Provider:             getEnvOrDefault("AI_PROVIDER", "gemini"),
		CollaboratorTimeout:  getEnvDuration("COLLABORATOR_TIMEOUT", 30*time.Second),
		TrackedExpressions:   splitList(getEnvOrDefault("TRACKED_EXPRESSIONS", "sad,neutral,excited")),
		StoreBackend:         strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreMemory)),
		MongoURI:             os.Getenv("MONGO_URI"),
		SessionsDBName:       getEnvOrDefault("SESSIONS_DB_NAME", "peerprep"),
		SessionsCollection:   getEnvOrDefault("SESSIONS_COLLECTION", "interview_sessions"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		AutoPersist:          getEnvBool("AUTO_PERSIST", false),
		PersistRetrySchedule: getEnvOrDefault("PERSIST_RETRY_SCHEDULE", "@every 1m"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFilePath:          os.Getenv("LOG_FILE_PATH"),
		Postgres: PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.CollaboratorTimeout <= 0 {
		return errors.New("COLLABORATOR_TIMEOUT must be positive")
	}
	if len(config.TrackedExpressions) == 0 {
		return errors.New("TRACKED_EXPRESSIONS must name at least one expression")
	}
	switch config.StoreBackend {
	case StoreMemory, StorePostgres:
	case StoreMongo:
		if config.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	default:
		return errors.New("unsupported STORE_BACKEND: " + config.StoreBackend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
