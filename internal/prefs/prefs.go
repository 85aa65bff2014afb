// Package prefs persists the cohort UI's per-user choices: colour theme,
// startup view and the logs view's minimum level. Preferences live in
// ~/.config/cohort/prefs.toml and never block startup; an unreadable file
// yields defaults.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences. View is the screen shown at startup.
type Prefs struct {
	Theme    string `toml:"theme"`
	View     string `toml:"view"`
	LogLevel string `toml:"log_level"`
}

const (
	defaultPrefsPath = "~/.config/cohort/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultView      = "dashboard"
	defaultLogLevel  = "info"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Defaults returns the preferences used before anything is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, View: defaultView, LogLevel: defaultLogLevel}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, or the default path when empty. Missing,
// unreadable or malformed files give Defaults; the error is only for callers
// that want to log it.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), nil // Graceful degradation
	}

	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), nil // Graceful degradation
	}
	return p.normalize(), nil
}

func (p Prefs) normalize() Prefs {
	def := Defaults()
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	p.View = strings.ToLower(strings.TrimSpace(p.View))
	if p.View == "" {
		p.View = def.View
	}
	p.LogLevel = strings.ToLower(strings.TrimSpace(p.LogLevel))
	if !slices.Contains(logLevels, p.LogLevel) {
		p.LogLevel = def.LogLevel
	}
	return p
}

// Save writes preferences to path through a temp file and rename, so a crash
// mid-write never leaves a truncated file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalize())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
