package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCORSOrigin is allowed when CORS_ALLOWED_ORIGINS names no origin.
const DefaultCORSOrigin = "http://localhost:3000"

// Config holds all configuration for the loyalty backend.
type Config struct {
	Port   string
	AppEnv string

	DBURL string

	JWTSecret string
	JWTExpiry time.Duration

	RedisURL         string
	RedemptionTTL    time.Duration
	RecentCodeWindow time.Duration
	ExpirySweepSpec  string

	CORSAllowedOrigins []string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// SNS topic for redemption events
	RedemptionSNSTopicARN string
	AWSEndpoint           string

	// Bootstrap platform admin, created at startup when both are set
	AdminEmail    string
	AdminPassword string
}

// LoadConfig reads configuration from the environment, after loading a
// .env file when one is present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AppEnv:                getEnv("APP_ENV", "development"),
		DBURL:                 os.Getenv("DB_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTExpiry:             time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		RedisURL:              os.Getenv("REDIS_URL"),
		RedemptionTTL:         time.Duration(getEnvInt("REDEMPTION_TTL_MINUTES", 5)) * time.Minute,
		RecentCodeWindow:      time.Duration(getEnvInt("RECENT_CODE_WINDOW_MINUTES", 60)) * time.Minute,
		ExpirySweepSpec:       getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 1m"),
		CORSAllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", DefaultCORSOrigin), DefaultCORSOrigin),
		TwilioAccountSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:       os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:     os.Getenv("TWILIO_PHONE_NUMBER"),
		RedemptionSNSTopicARN: os.Getenv("REDEMPTION_SNS_TOPIC_ARN"),
		AWSEndpoint:           os.Getenv("AWS_ENDPOINT"),
		AdminEmail:            os.Getenv("ADMIN_EMAIL"),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// TwilioEnabled reports whether SMS confirmations can be sent.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// splitList splits a comma separated list, returning fallback alone when
// no entry is left after trimming.
func splitList(s, fallback string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}
