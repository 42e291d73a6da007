// Package config loads the daybook configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/daybook/internal/platform"
	"github.com/aretw0/daybook/pkg/autosave"
)

// Config stores daybook configuration loaded from ~/.config/daybook/config.yaml.
type Config struct {
	Dir         string         `yaml:"dir"`
	Adapter     string         `yaml:"adapter"`
	Suffix      string         `yaml:"suffix"`
	Workers     int            `yaml:"workers"`
	ProtectPast bool           `yaml:"protect_past"`
	LogLevel    string         `yaml:"log_level"`
	Autosave    AutosaveConfig `yaml:"autosave"`
}

// AutosaveConfig selects the policy used by editing sessions.
type AutosaveConfig struct {
	Policy   string        `yaml:"policy"`
	Debounce time.Duration `yaml:"debounce"`
}

// JournalDir returns the entries directory, defaulting to $XDG_DATA_HOME/daybook/entries.
func (c *Config) JournalDir() (string, error) {
	if c.Dir != "" {
		return ExpandPath(c.Dir)
	}
	return DataDir()
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch c.Adapter {
	case "", "fs", "sqlite":
	default:
		return fmt.Errorf("invalid adapter %q: want fs or sqlite", c.Adapter)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", c.Workers)
	}
	if c.Autosave.Debounce < 0 {
		return fmt.Errorf("invalid autosave.debounce %s: must not be negative", c.Autosave.Debounce)
	}
	if _, err := autosave.ParseKind(c.Autosave.Policy); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Options translates the file into journal options.
func (c *Config) Options() ([]platform.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	kind, _ := autosave.ParseKind(c.Autosave.Policy)
	opts := []platform.Option{
		platform.WithAutosave(kind, c.Autosave.Debounce),
		platform.WithProtectPast(c.ProtectPast),
	}
	if c.Adapter != "" {
		opts = append(opts, platform.WithAdapter(c.Adapter))
	}
	if c.Suffix != "" {
		opts = append(opts, platform.WithSuffix(c.Suffix))
	}
	if c.Workers > 0 {
		opts = append(opts, platform.WithWorkers(c.Workers))
	}
	return opts, nil
}

// DataDir returns the default entries directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "daybook", "entries"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "daybook", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Load reads the config from its default location. A missing file yields the
// default config.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the default config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to its default location.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
