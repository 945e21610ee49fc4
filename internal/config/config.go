package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the client needs to reach the backend and keep
// local state.
type Config struct {
	APIURL            string
	UserID            string
	DBPath            string
	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	SyncInterval      time.Duration
	FlapThreshold     int
	MaxAttempts       int
	LogEvents         bool
	RelayListen       string
	Offline           bool
}

const (
	defaultConfigPath = "~/.weekendly/config.toml"
	defaultDBPath     = "~/.weekendly/weekendly.db"
	defaultAPIURL     = "http://127.0.0.1:3000"
	defaultRelay      = "127.0.0.1:8787"
)

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		DBPath:            mustExpand(defaultDBPath),
		RequestTimeout:    8 * time.Second,
		HeartbeatInterval: 15 * time.Second,
		SyncInterval:      time.Minute,
		FlapThreshold:     2,
		MaxAttempts:       10,
		RelayListen:       defaultRelay,
	}
}

type fileConfig struct {
	APIURL           string `toml:"api_url"`
	UserID           string `toml:"user_id"`
	DBPath           string `toml:"db_path"`
	RequestTimeoutMs int    `toml:"request_timeout_ms"`
	HeartbeatMs      int    `toml:"heartbeat_ms"`
	SyncIntervalMs   int    `toml:"sync_interval_ms"`
	FlapThreshold    int    `toml:"flap_threshold"`
	MaxAttempts      int    `toml:"max_attempts"`
	LogEvents        *bool  `toml:"log_events"`
	RelayListen      string `toml:"relay_listen"`
	Offline          *bool  `toml:"offline"`
}

// Load builds the configuration from defaults, the TOML file at path (or
// ~/.weekendly/config.toml when path is empty; a missing file is fine) and
// finally WEEKENDLY_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		var raw fileConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, raw fileConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.UserID); v != "" {
		cfg.UserID = v
	}
	if v := strings.TrimSpace(raw.DBPath); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return fmt.Errorf("db_path: %w", err)
		}
		cfg.DBPath = expanded
	}
	if raw.RequestTimeoutMs > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMs) * time.Millisecond
	}
	if raw.HeartbeatMs > 0 {
		cfg.HeartbeatInterval = time.Duration(raw.HeartbeatMs) * time.Millisecond
	}
	if raw.SyncIntervalMs > 0 {
		cfg.SyncInterval = time.Duration(raw.SyncIntervalMs) * time.Millisecond
	}
	if raw.FlapThreshold > 0 {
		cfg.FlapThreshold = raw.FlapThreshold
	}
	if raw.MaxAttempts > 0 {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if raw.LogEvents != nil {
		cfg.LogEvents = *raw.LogEvents
	}
	if v := strings.TrimSpace(raw.RelayListen); v != "" {
		cfg.RelayListen = v
	}
	if raw.Offline != nil {
		cfg.Offline = *raw.Offline
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WEEKENDLY_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("WEEKENDLY_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("WEEKENDLY_DB"); v != "" {
		cfg.DBPath = mustExpand(v)
	}
	applyDurationEnv(&cfg.RequestTimeout, "WEEKENDLY_REQUEST_TIMEOUT_MS")
	applyDurationEnv(&cfg.HeartbeatInterval, "WEEKENDLY_HEARTBEAT_MS")
	applyDurationEnv(&cfg.SyncInterval, "WEEKENDLY_SYNC_INTERVAL_MS")
	if v := os.Getenv("WEEKENDLY_FLAP_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FlapThreshold = n
		}
	}
	if v := os.Getenv("WEEKENDLY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("WEEKENDLY_LOG_EVENTS"); v != "" {
		cfg.LogEvents, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("WEEKENDLY_RELAY_LISTEN"); v != "" {
		cfg.RelayListen = v
	}
	if v := os.Getenv("WEEKENDLY_OFFLINE"); v != "" {
		cfg.Offline, _ = strconv.ParseBool(v)
	}
}

func applyDurationEnv(dst *time.Duration, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	*dst = time.Duration(n) * time.Millisecond
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if trimmed == ":memory:" {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
