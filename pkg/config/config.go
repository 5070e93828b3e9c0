package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// Comma-separated list of addresses that count as "us" when classifying
	// message direction.
	MyEmails []string

	// Date-range syncs search in:anywhere when true (includes archived mail).
	SyncIncludeArchived bool

	// Window used both for first-time bootstrap and for recovery when the
	// stored Gmail history ID has expired.
	SyncBootstrapDays int

	// Background loops.
	EnableScheduler  bool
	PollInterval     time.Duration
	ReminderInterval time.Duration
	ReminderCooldown time.Duration
	ReminderToEmail  string

	// AI triage / drafting. Empty key disables Gemini; the rule-based
	// classifier still runs.
	GeminiAPIKey string
	GeminiModel  string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres dbname=ticketdesk port=5432 sslmode=disable"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),

		MyEmails: splitEmails(getEnv("MY_EMAILS", "")),

		SyncIncludeArchived: getEnvBool("SYNC_INCLUDE_ARCHIVED", false),
		SyncBootstrapDays:   getEnvInt("SYNC_BOOTSTRAP_DAYS", 30),

		EnableScheduler:  getEnvBool("ENABLE_SCHEDULER", true),
		PollInterval:     time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 300)) * time.Second,
		ReminderInterval: time.Duration(getEnvInt("REMINDER_INTERVAL_SECONDS", 900)) * time.Second,
		ReminderCooldown: time.Duration(getEnvInt("REMINDER_COOLDOWN_SECONDS", 3600)) * time.Second,
		ReminderToEmail:  getEnv("REMINDER_TO_EMAIL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitEmails(raw string) []string {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
