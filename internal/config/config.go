package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all the configuration variables for the application
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string
	ElasticURL  string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	// PublicBaseURL is used to build links in emails (certificate pages).
	PublicBaseURL  string
	AllowedOrigins []string

	AdminEmail    string
	AdminPassword string

	SessionTTL       time.Duration
	FormSubmitRate   float64
	FormSubmitBurst  int
	EmailConcurrency int
	// TrustProxy reads client addresses from X-Real-IP / X-Forwarded-For.
	TrustProxy       bool
}

// Load reads the application configuration from environment variables
// and the .env file if it exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Env:              getEnvOrDefault("ENV", "development"),
		Port:             getEnvOrDefault("PORT", "8080"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ElasticURL:       os.Getenv("ELASTIC_URL"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getIntOrDefault("SMTP_PORT", 587),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		MailFrom:         getEnvOrDefault("MAIL_FROM", "no-reply@hackathon-hub.local"),
		PublicBaseURL:    getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:3000"),
		AllowedOrigins:   []string{getEnvOrDefault("ALLOWED_ORIGIN", "http://localhost:3000")},
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		SessionTTL:       getDurationOrDefault("SESSION_TTL", 72*time.Hour),
		FormSubmitRate:   getFloatOrDefault("FORM_SUBMIT_RATE", 0.5),
		FormSubmitBurst:  getIntOrDefault("FORM_SUBMIT_BURST", 5),
		EmailConcurrency: getIntOrDefault("EMAIL_CONCURRENCY", 5),
		TrustProxy:       getBoolOrDefault("TRUST_PROXY", false),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.EmailConcurrency < 1 {
		return errors.New("EMAIL_CONCURRENCY must be at least 1")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	return value
}

func getIntOrDefault(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloatOrDefault(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDurationOrDefault(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBoolOrDefault(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
