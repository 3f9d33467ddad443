package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultBotPrefix       = "/elo"
	DefaultWebhookAddr     = ":8080"
	DefaultKFactor         = 24
	DefaultInitialRating   = 1200
	DefaultMaxRetries      = 5
	DefaultLeaderboardSize = 10
)

type AppConfig struct {
	BotPrefix string

	IrisBaseURL string
	IrisWSURL   string
	XUserID     string
	XUserEmail  string
	XSessionID  string

	AllowedRooms []string

	WebhookAddr        string
	SlackSigningSecret string
	SkipSlackSigning   bool

	DatabaseURL    string
	DatabaseDriver string
	RedisURL       string

	KFactor          float64
	InitialRating    float64
	MaxUpdateRetries int
	LeaderboardSize  int
	ReservedIDs      []string

	MessagesDir    string
	MetricsEnabled bool
}

// IrisEnabled reports whether the chat websocket transport is configured.
func (c *AppConfig) IrisEnabled() bool {
	return c.IrisBaseURL != "" && c.IrisWSURL != ""
}

// WebhookEnabled reports whether the slash-command endpoint should run.
func (c *AppConfig) WebhookEnabled() bool {
	return c.WebhookAddr != ""
}

// Load reads the environment. A .env file in the working directory (or the
// path in ENV_FILE) seeds variables that are not already set.
func Load() (*AppConfig, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		BotPrefix:        DefaultBotPrefix,
		DatabaseDriver:   "postgres",
		KFactor:          DefaultKFactor,
		InitialRating:    DefaultInitialRating,
		MaxUpdateRetries: DefaultMaxRetries,
		LeaderboardSize:  DefaultLeaderboardSize,
		MetricsEnabled:   true,
	}

	if v := env("BOT_PREFIX"); v != "" {
		cfg.BotPrefix = v
	}
	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")
	cfg.AllowedRooms = splitList(env("ALLOWED_ROOMS"))

	cfg.WebhookAddr = env("WEBHOOK_ADDR")
	cfg.SlackSigningSecret = env("SLACK_SIGNING_SECRET")
	cfg.SkipSlackSigning = boolEnv("SKIP_SLACK_SIGNING", false)

	cfg.DatabaseURL = env("DATABASE_URL")
	if v := env("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = v
	}
	cfg.RedisURL = env("REDIS_URL")

	if v := env("ELO_K_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.KFactor = f
		}
	}
	if v := env("ELO_INITIAL_RATING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.InitialRating = f
		}
	}
	if v := env("ELO_MAX_UPDATE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUpdateRetries = n
		}
	}
	if v := env("ELO_LEADERBOARD_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardSize = n
		}
	}
	cfg.ReservedIDs = splitList(env("ELO_RESERVED_IDS"))
	cfg.MessagesDir = env("MESSAGES_DIR")
	cfg.MetricsEnabled = boolEnv("METRICS_ENABLED", true)

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER %q is not supported", cfg.DatabaseDriver)
	}
	if cfg.IrisBaseURL != "" && cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required when IRIS_BASE_URL is set")
	}
	if !cfg.IrisEnabled() && !cfg.WebhookEnabled() {
		return nil, errors.New("either IRIS_BASE_URL/IRIS_WS_URL or WEBHOOK_ADDR is required")
	}
	if cfg.WebhookEnabled() && cfg.SlackSigningSecret == "" && !cfg.SkipSlackSigning {
		return nil, errors.New("SLACK_SIGNING_SECRET is required unless SKIP_SLACK_SIGNING=true")
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func boolEnv(key string, def bool) bool {
	if v := env(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
