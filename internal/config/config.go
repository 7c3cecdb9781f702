package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Telegram bot configuration
	TelegramBotToken      string
	TelegramUseWebhook    bool
	GatewayTimeoutSeconds int

	// Admin API configuration
	AdminAPIKey string

	// Brevo email configuration (optional; invite emails are skipped when unset)
	BrevoAPIKey    string
	BrevoFromEmail string

	// Lifecycle webhook configuration (optional; events are dropped when unset)
	LifecycleWebhookURL    string
	LifecycleWebhookSecret string

	// Subscription configuration
	SubscriptionDays     int
	InviteExpireHours    int
	SweepIntervalMinutes int
	RateLimitMinutes     int
	ServiceName          string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                   getEnv("PORT", "8080"),
		Mode:                   getEnv("GIN_MODE", "debug"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		TelegramBotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramUseWebhook:     getEnvBool("TELEGRAM_USE_WEBHOOK", false),
		GatewayTimeoutSeconds:  getEnvInt("GATEWAY_TIMEOUT_SECONDS", 45),
		AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:         getEnv("BREVO_FROM_EMAIL", ""),
		LifecycleWebhookURL:    getEnv("LIFECYCLE_WEBHOOK_URL", ""),
		LifecycleWebhookSecret: getEnv("LIFECYCLE_WEBHOOK_SECRET", ""),
		SubscriptionDays:       getEnvInt("SUBSCRIPTION_DAYS", 30),
		InviteExpireHours:      getEnvInt("INVITE_EXPIRE_HOURS", 24),
		SweepIntervalMinutes:   getEnvInt("SWEEP_INTERVAL_MINUTES", 60),
		RateLimitMinutes:       getEnvInt("RATE_LIMIT_MINUTES", 1),
		ServiceName:            getEnv("SERVICE_NAME", "Group Access Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
