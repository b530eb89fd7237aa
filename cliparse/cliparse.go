package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	TokenSecret    string
	BaseURL        string
	Timezone       string
	SweepInterval  time.Duration
	WorkerInterval time.Duration
	Email          EmailConfig
}

type EmailConfig struct {
	FromEmail    string
	ResendAPIKey string
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseFlags reads flags, then falls back to the environment (and a .env file
// when one is present in the working directory).
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Missing .env is fine; real env vars always win over it.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("hoa-assembly", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or pgx)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Public base URL used in email links")
	fs.StringVar(&cfg.Timezone, "tz", "", "Timezone for reminder times (IANA name)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 0, "Reminder sweep interval")
	fs.DurationVar(&cfg.WorkerInterval, "worker-interval", 0, "Job worker poll interval")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "Token signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "pgx":
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+strconv.Itoa(cfg.Port))
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timezone == "" {
		cfg.Timezone = getEnv("ASSEMBLY_TIMEZONE", "UTC")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	var err error
	if cfg.SweepInterval, err = durationOrEnv(cfg.SweepInterval, "SWEEP_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.WorkerInterval, err = durationOrEnv(cfg.WorkerInterval, "WORKER_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}

	// Secrets - MUST be provided
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	}
	if cfg.TokenSecret == "" {
		return Config{}, errors.New("TOKEN_SECRET required")
	}

	cfg.Email = EmailConfig{
		FromEmail:    getEnv("EMAIL_FROM", "HOA Assembly <assembly@resend.dev>"),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		SMTPEnabled:  strings.EqualFold(getEnv("SMTP_ENABLED", "false"), "true"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
	}

	return cfg, nil
}

func durationOrEnv(flagValue time.Duration, key string, fallback time.Duration) (time.Duration, error) {
	if flagValue > 0 {
		return flagValue, nil
	}
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
