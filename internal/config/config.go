// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds every runtime setting of the server.
type Config struct {
	// Env is APP_ENV. Only non-production environments may use the
	// development encryption key.
	Env string

	DBPath     string
	KeyPath    string
	ListenAddr string

	// BackupDir enables scheduled backups when non-empty.
	BackupDir      string
	BackupSchedule string
	BackupKeep     int

	// QuarantineCorrupt keeps unreadable values under a quarantine key
	// instead of deleting them.
	QuarantineCorrupt bool

	// TokenSecretPath holds the API token signing secret, created on first run.
	TokenSecretPath string
	// TokenPath receives a freshly issued API token at every start.
	TokenPath string
	// TokenTTL is how long issued tokens stay valid. Zero means no expiry.
	TokenTTL time.Duration

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty allows same-origin callers only.
	CORSOrigins []string

	LogLevel  string
	LogFormat string
}

// AllowDevelopmentKey reports whether the cipher may fall back to the
// built-in development key.
func (c Config) AllowDevelopmentKey() bool {
	return c.Env != EnvProduction
}

// Load reads files (default ".env") into the environment without overriding
// variables that are already set, then builds a Config. Missing files are fine.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No env file, using process environment", "file", f)
				continue
			}
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
		slog.Debug("Loaded env file", "file", f)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:             strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		DBPath:          getEnv("DB_PATH", "./data/tutorledger.db"),
		KeyPath:         getEnv("KEY_PATH", "./data/tutorledger.key"),
		ListenAddr:      getEnv("LISTEN_ADDR", "127.0.0.1:8080"),
		BackupDir:       getEnv("BACKUP_DIR", ""),
		BackupSchedule:  getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
		TokenSecretPath: getEnv("TOKEN_SECRET_PATH", "./data/token.key"),
		TokenPath:       getEnv("TOKEN_PATH", "./data/api.token"),
		CORSOrigins:     getList("CORS_ORIGINS"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.BackupKeep, err = getInt("BACKUP_KEEP", 7); err != nil {
		return Config{}, err
	}
	if cfg.QuarantineCorrupt, err = getBool("QUARANTINE_CORRUPT", false); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative duration", key, value)
	}
	return d, nil
}

// getList splits a comma-separated value, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
