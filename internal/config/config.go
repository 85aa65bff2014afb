package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/cohort/internal/realtime"
)

// Config captures the client settings read from config.toml.
type Config struct {
	BackendURL     string
	UserID         string
	UserEmail      string
	AdminEmail     string
	Role           string
	LogDir         string
	ProbeURL       string
	Cooldown       time.Duration
	MetricsAddr    string
	RequestTimeout time.Duration
}

const (
	defaultConfigPath     = "~/.config/cohort/config.toml"
	defaultLogDir         = "~/.local/share/cohort/logs"
	defaultBackendURL     = "127.0.0.1:7490"
	defaultRequestTimeout = 3 * time.Second
	logFileName           = "cohort.log"
)

type rawConfig struct {
	BackendURL            string `toml:"backend_url"`
	UserID                string `toml:"user_id"`
	UserEmail             string `toml:"user_email" validate:"omitempty,email"`
	AdminEmail            string `toml:"admin_email" validate:"omitempty,email"`
	Role                  string `toml:"role" validate:"omitempty,oneof=admin trainee"`
	LogDir                string `toml:"log_dir"`
	ProbeURL              string `toml:"probe_url" validate:"omitempty,url"`
	CooldownSeconds       int    `toml:"cooldown_seconds" validate:"gte=0"`
	MetricsAddr           string `toml:"metrics_addr" validate:"omitempty,hostname_port"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BackendURL:     defaultBackendURL,
		LogDir:         mustExpand(defaultLogDir),
		Cooldown:       realtime.DefaultCooldown,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load locates and parses the cohort config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	trimStrings(&raw)
	if err := validate.Struct(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Default()
	if raw.BackendURL != "" {
		cfg.BackendURL = raw.BackendURL
	}
	if raw.LogDir != "" {
		cfg.LogDir = mustExpand(raw.LogDir)
	}
	cfg.UserID = raw.UserID
	cfg.UserEmail = raw.UserEmail
	cfg.AdminEmail = raw.AdminEmail
	cfg.Role = raw.Role
	cfg.ProbeURL = raw.ProbeURL
	cfg.MetricsAddr = raw.MetricsAddr
	if raw.CooldownSeconds > 0 {
		cfg.Cooldown = realtime.ClampCooldown(time.Duration(raw.CooldownSeconds) * time.Second)
	}
	if raw.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}
	return cfg, nil
}

// LogPath returns the path to the client's log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/" + logFileName)
	}
	return filepath.Join(c.LogDir, logFileName)
}

func trimStrings(raw *rawConfig) {
	for _, s := range []*string{
		&raw.BackendURL, &raw.UserID, &raw.UserEmail, &raw.AdminEmail,
		&raw.Role, &raw.LogDir, &raw.ProbeURL, &raw.MetricsAddr,
	} {
		*s = strings.TrimSpace(*s)
	}
	raw.Role = strings.ToLower(raw.Role)
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
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
