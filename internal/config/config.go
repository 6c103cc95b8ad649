package config

import (
	"os"
	"strings"
	"time"
)

const (
	// Dispatcher
	MaxSaveRetries = 3

	// Webhook throttling (events per sender)
	SenderEventsPerMinute = 30
	SenderEventBurst      = 10
	LimiterCleanupPeriod  = 5 * time.Minute

	// Display-name cache
	DisplayNameCacheTTL = 24 * time.Hour

	// Admin tokens
	AdminTokenTTL = 72 * time.Hour
)

// DefaultLanguages is the recognized language set when LANGUAGES is not set.
var DefaultLanguages = []string{
	"english", "spanish", "french", "german", "italian", "portuguese",
	"mandarin", "japanese", "korean", "arabic", "hindi", "russian", "ukrainian",
}

// Config carries everything read from the environment at startup.
type Config struct {
	PageAccessToken   string
	VerificationToken string
	AdminSecret       string
	JWTSecret         string
	DatabaseDSN       string
	RedisAddr         string
	Port              string
	Languages         []string
}

// Load reads the configuration from the environment. Defaults match the
// original deployment: port 1337, local Postgres and Redis.
func Load() *Config {
	cfg := &Config{
		PageAccessToken:   os.Getenv("PAGE_ACCESS_TOKEN"),
		VerificationToken: os.Getenv("VERIFICATION_TOKEN"),
		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=nativeteacher port=5432 sslmode=disable"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		Port:              getEnv("PORT", "1337"),
		Languages:         DefaultLanguages,
	}

	if raw := os.Getenv("LANGUAGES"); raw != "" {
		langs := make([]string, 0)
		for _, l := range strings.Split(raw, ",") {
			trimmed := strings.ToLower(strings.TrimSpace(l))
			if trimmed != "" {
				langs = append(langs, trimmed)
			}
		}
		if len(langs) > 0 {
			cfg.Languages = langs
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
