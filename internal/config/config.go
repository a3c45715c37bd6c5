package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"

	WeeklyAccumulate = "accumulate"
	WeeklyOverwrite  = "overwrite"

	RepeatReuse  = "reuse"
	RepeatUnique = "unique"
)

type Config struct {
	// Application
	AppEnv   string
	Port     string
	Location *time.Location

	// Storage
	StoreDriver string
	DatabaseURL string

	// Firebase
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	FirebaseCredentialsJSON string

	// Auth
	ClerkSecretKey string
	AuthDevSecret  string

	// Observability
	MetricsUser string
	MetricsPass string
	SentryDSN   string

	// Progression
	DailyChallenges  int
	WeeklyPointsMode string
	RepeatPolicy     string
	SessionCacheSize int

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "3333"),
		Location: loadLocation(getEnv("APP_TIMEZONE", "UTC")),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreFirestore)),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseCredentialsJSON: getEnv("FCM_SERVICE_ACCOUNT_JSON", ""),

		ClerkSecretKey: getEnv("CLERK_SECRET_KEY", ""),
		AuthDevSecret:  getEnv("AUTH_DEV_SECRET", ""),

		MetricsUser: getEnv("METRICS_USER", ""),
		MetricsPass: getEnv("METRICS_PASS", ""),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		DailyChallenges:  getEnvInt("DAILY_CHALLENGES", 5),
		WeeklyPointsMode: oneOf(getEnv("WEEKLY_POINTS_MODE", WeeklyAccumulate), WeeklyAccumulate, WeeklyOverwrite),
		RepeatPolicy:     oneOf(getEnv("CHALLENGE_REPEAT_POLICY", RepeatReuse), RepeatReuse, RepeatUnique),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 10000),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 30),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}

	if cfg.DailyChallenges < 1 {
		cfg.DailyChallenges = 5
	}

	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", value)
		return fallback
	}
	return f
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func oneOf(value string, allowed ...string) string {
	value = strings.ToLower(value)
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	slog.Warn("unsupported option, using default", "value", value, "default", allowed[0])
	return allowed[0]
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown APP_TIMEZONE, falling back to UTC", "timezone", name)
		return time.UTC
	}
	return loc
}
