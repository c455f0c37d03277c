package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel     OTelConfig
	Telegram TelegramConfig
	Webhook  WebhookConfig
	Tracking TrackingConfig
	Env      string
	Port     string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type TelegramConfig struct {
	BotToken        string
	APIBaseURL      string
	DeliveryTimeout time.Duration
}

type WebhookConfig struct {
	SecretToken   string
	QueueCapacity int
	RestartDelay  time.Duration
	MaxBodyBytes  int64
}

type TrackingConfig struct {
	MaxAge          time.Duration
	CleanupInterval time.Duration
}

// Load loads configuration from environment variables. In development it
// first loads a local .env file so the server can run without exported vars.
func Load() (Config, error) {
	if getEnv("NUECAGRAM_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:  getEnv("NUECAGRAM_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "nuecagram"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Telegram: TelegramConfig{
			BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIBaseURL:      getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			DeliveryTimeout: getEnvDuration("TELEGRAM_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			SecretToken:   getEnv("NUECAGRAM_SECRET_TOKEN", ""),
			QueueCapacity: getEnvInt("WEBHOOK_QUEUE_CAPACITY", 100),
			RestartDelay:  getEnvDuration("WEBHOOK_RESTART_DELAY", 5*time.Second),
			MaxBodyBytes:  getEnvInt64("WEBHOOK_MAX_BODY_BYTES", 1<<20),
		},
		Tracking: TrackingConfig{
			MaxAge:          getEnvDuration("TRACKING_MAX_AGE", 2*time.Hour),
			CleanupInterval: getEnvDuration("TRACKING_CLEANUP_INTERVAL", 30*time.Minute),
		},
	}

	if cfg.Telegram.BotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if cfg.Webhook.SecretToken == "" {
		return Config{}, fmt.Errorf("NUECAGRAM_SECRET_TOKEN is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
