package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	DatabaseURL       string
	AdminTelegramID   int64
	LogLevel          string
	Environment       string
	TZOffsetMinutes   int // civil-zone offset from UTC, default Asia/Kolkata (+330)
	DispatchWindowMin int // half-width of the dispatch matching window
	RetentionDays     int // age after which sent records are purged
	SnoozeMinutes     int // default snooze interval
	CronSpecDispatch  string
	CronSpecCleanup   string
	CronSpecStats     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.TZOffsetMinutes, err = intEnv("TZ_OFFSET_MINUTES", 330) // Asia/Kolkata
	if err != nil {
		return nil, err
	}
	cfg.DispatchWindowMin, err = intEnv("DISPATCH_WINDOW_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	if cfg.DispatchWindowMin <= 0 {
		return nil, fmt.Errorf("DISPATCH_WINDOW_MINUTES must be positive")
	}
	cfg.RetentionDays, err = intEnv("RETENTION_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive")
	}
	cfg.SnoozeMinutes, err = intEnv("SNOOZE_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	if cfg.SnoozeMinutes <= 0 {
		return nil, fmt.Errorf("SNOOZE_MINUTES must be positive")
	}

	cfg.CronSpecDispatch = os.Getenv("CRON_SPEC_DISPATCH")
	if cfg.CronSpecDispatch == "" {
		cfg.CronSpecDispatch = "*/5 * * * *" // Default: every 5 minutes
	}
	cfg.CronSpecCleanup = os.Getenv("CRON_SPEC_CLEANUP")
	if cfg.CronSpecCleanup == "" {
		cfg.CronSpecCleanup = "0 0 * * *" // Default: daily at midnight
	}
	cfg.CronSpecStats = os.Getenv("CRON_SPEC_STATS")
	if cfg.CronSpecStats == "" {
		cfg.CronSpecStats = "0 * * * *" // Default: hourly
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
