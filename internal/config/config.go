// Package config loads and watches winfade settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vicomannen/winfade/internal/fade"
)

// Default configuration values.
const (
	DefaultOpacity  = 180
	DefaultFadeMs   = 120
	DefaultTickMs   = 15
	DefaultLogLevel = "info"
)

// Scope selects how the app list is interpreted.
type Scope string

const (
	// ScopeExclude applies fading to every app except those listed.
	ScopeExclude Scope = "exclude"
	// ScopeInclude applies fading only to the apps listed.
	ScopeInclude Scope = "include"
)

// Config is the settings file schema.
type Config struct {
	Opacity  int      `yaml:"opacity"`   // alpha while moving, 0-255
	FadeMs   int      `yaml:"fade_ms"`   // fade duration, 0 = instant
	TickMs   int      `yaml:"tick_ms"`   // animation tick cadence
	Scope    Scope    `yaml:"scope"`     // exclude (default) or include
	Apps     []string `yaml:"apps"`      // exe names the scope applies to
	LogLevel string   `yaml:"log_level"` // debug, info, warn, error
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Opacity:  DefaultOpacity,
		FadeMs:   DefaultFadeMs,
		TickMs:   DefaultTickMs,
		Scope:    ScopeExclude,
		LogLevel: DefaultLogLevel,
	}
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "winfade.yaml"
	}
	return filepath.Join(dir, "winfade", "winfade.yaml")
}

// Load reads the settings file at path. A missing file yields defaults;
// a malformed or invalid file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize clamps numeric fields into range, canonicalizes the app
// list, and validates enumerations.
func (c *Config) Normalize() error {
	if c.Opacity < 0 {
		c.Opacity = 0
	} else if c.Opacity > 255 {
		c.Opacity = 255
	}
	if c.FadeMs < 0 {
		c.FadeMs = 0
	}
	if c.TickMs <= 0 {
		c.TickMs = DefaultTickMs
	}

	switch c.Scope {
	case "":
		c.Scope = ScopeExclude
	case ScopeExclude, ScopeInclude:
	default:
		return fmt.Errorf("scope must be %q or %q, got %q", ScopeExclude, ScopeInclude, c.Scope)
	}

	c.Apps = splitAppList(c.Apps)

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return nil
}

// splitAppList flattens entries that pack several names separated by
// commas, semicolons, or whitespace, then lowercases and de-duplicates.
func splitAppList(entries []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, entry := range entries {
		fields := strings.FieldsFunc(entry, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
		for _, f := range fields {
			name := strings.ToLower(strings.TrimSpace(f))
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// EnabledFor reports whether fading applies to windows owned by the
// given executable name (case-insensitive). An empty name falls back to
// the scope's default disposition.
func (c Config) EnabledFor(exe string) bool {
	exe = strings.ToLower(strings.TrimSpace(exe))
	listed := false
	for _, app := range c.Apps {
		if app == exe {
			listed = true
			break
		}
	}
	if c.Scope == ScopeInclude {
		return listed
	}
	return !listed
}

// FadeOptions converts the settings into engine options.
func (c Config) FadeOptions() fade.Options {
	return fade.Options{
		DragOpacity:  byte(c.Opacity),
		FadeDuration: time.Duration(c.FadeMs) * time.Millisecond,
		TickInterval: time.Duration(c.TickMs) * time.Millisecond,
	}
}
