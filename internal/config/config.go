// Package config handles configuration loading from TOML files, environment
// variables and editor-supplied settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// SymbolsPlugin is the plugin section that controls document symbols.
const SymbolsPlugin = "jedi_symbols"

// IncludeImportSymbols is the SymbolsPlugin key that toggles import symbols.
const IncludeImportSymbols = "include_import_symbols"

// Config is the root configuration structure.
type Config struct {
	Plugins   map[string]PluginSettings `toml:"plugins"`
	Log       LogConfig                 `toml:"log"`
	Workspace WorkspaceConfig           `toml:"workspace"`
}

// PluginSettings holds the free-form settings of one plugin.
type PluginSettings map[string]any

// Bool returns the boolean stored under key, or def when the key is absent
// or not a boolean.
func (p PluginSettings) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn or error.
	Level string `toml:"level"`
	// File receives JSON log lines. Empty means stderr.
	File string `toml:"file"`
}

// LevelOrDefault returns the configured level or "info" if unset.
func (l LogConfig) LevelOrDefault() string {
	if l.Level == "" {
		return "info"
	}
	return strings.ToLower(l.Level)
}

// WorkspaceConfig holds settings for walking a project tree.
type WorkspaceConfig struct {
	Exclude []string `toml:"exclude"`
}

// Default returns a configuration with every setting at its default.
func Default() *Config {
	return &Config{
		Plugins: map[string]PluginSettings{
			SymbolsPlugin: {IncludeImportSymbols: true},
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}

		var file Config
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.merge(&file)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads DefaultPath when that file exists, and the defaults
// otherwise.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// PluginSettings returns the settings for the named plugin. The result is
// never nil.
func (c *Config) PluginSettings(name string) PluginSettings {
	if s, ok := c.Plugins[name]; ok && s != nil {
		return s
	}
	return PluginSettings{}
}

// MergePlugins overlays editor-supplied plugin settings, key by key.
func (c *Config) MergePlugins(plugins map[string]map[string]any) {
	if c.Plugins == nil {
		c.Plugins = make(map[string]PluginSettings)
	}
	for name, settings := range plugins {
		dst, ok := c.Plugins[name]
		if !ok || dst == nil {
			dst = make(PluginSettings, len(settings))
			c.Plugins[name] = dst
		}
		for k, v := range settings {
			dst[k] = v
		}
	}
}

// Clone returns a deep copy of the plugin maps and a shallow copy of the rest.
func (c *Config) Clone() *Config {
	out := *c
	out.Plugins = make(map[string]PluginSettings, len(c.Plugins))
	for name, settings := range c.Plugins {
		cp := make(PluginSettings, len(settings))
		for k, v := range settings {
			cp[k] = v
		}
		out.Plugins[name] = cp
	}
	out.Workspace.Exclude = append([]string(nil), c.Workspace.Exclude...)
	return &out
}

func (c *Config) merge(file *Config) {
	plugins := make(map[string]map[string]any, len(file.Plugins))
	for name, settings := range file.Plugins {
		plugins[name] = settings
	}
	c.MergePlugins(plugins)

	if file.Log.Level != "" {
		c.Log.Level = file.Log.Level
	}
	if file.Log.File != "" {
		c.Log.File = file.Log.File
	}
	if len(file.Workspace.Exclude) > 0 {
		c.Workspace.Exclude = file.Workspace.Exclude
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.LevelOrDefault() {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level=%q must be one of trace, debug, info, warn, error", c.Log.Level))
	}

	if v, ok := c.PluginSettings(SymbolsPlugin)[IncludeImportSymbols]; ok {
		if _, isBool := v.(bool); !isBool {
			errs = append(errs, fmt.Errorf("plugins.%s.%s=%v must be a boolean", SymbolsPlugin, IncludeImportSymbols, v))
		}
	}

	for _, pattern := range c.Workspace.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("workspace.exclude=%q is invalid: %v", pattern, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, setter := range []struct {
		env   string
		apply func(string) error
	}{
		{"OUTLINE_LOG_LEVEL", func(v string) error {
			cfg.Log.Level = v
			return nil
		}},
		{"OUTLINE_INCLUDE_IMPORT_SYMBOLS", func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("OUTLINE_INCLUDE_IMPORT_SYMBOLS=%q: %w", v, err)
			}
			cfg.MergePlugins(map[string]map[string]any{
				SymbolsPlugin: {IncludeImportSymbols: b},
			})
			return nil
		}},
	} {
		if v := os.Getenv(setter.env); v != "" {
			if err := setter.apply(v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DataDir returns the path to the outline config directory (~/.config/outline).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "outline"), nil
}

// DefaultPath returns the path of the default config file.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
