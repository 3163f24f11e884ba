package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lu-zhengda/whsock/internal/socket"
)

// Config holds all whsock configuration.
type Config struct {
	ProcRoot       string `yaml:"proc_root"`
	PasswdPath     string `yaml:"passwd_path"`
	Tables         Tables `yaml:"tables"`
	Workers        int    `yaml:"workers"`         // 0 = one per CPU
	UnresolvedUser string `yaml:"unresolved_user"` // shown for unknown UIDs
	ColorEnabled   bool   `yaml:"color_enabled"`
	LogLevel       string `yaml:"log_level"`
	HistoryPath    string `yaml:"history_path"`
}

// Tables overrides the socket table locations. Empty fields fall back to
// <proc_root>/net/<proto>.
type Tables struct {
	TCP string `yaml:"tcp"`
	UDP string `yaml:"udp"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		ProcRoot:       "/proc",
		PasswdPath:     "/etc/passwd",
		Workers:        0,
		UnresolvedUser: "(unknown)",
		ColorEnabled:   true,
		LogLevel:       "warn",
		HistoryPath:    defaultFile("history.json"),
	}
}

// Load loads config from the given path. If path is empty, it uses the
// default location (~/.config/whsock/config.yaml). If the file does not
// exist, it returns defaults without creating the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}
	}

	return LoadFrom(path)
}

// LoadFrom loads and parses config from the given path. Missing fields
// keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late or silently.
func (c *Config) Validate() error {
	if c.ProcRoot == "" {
		return fmt.Errorf("proc_root must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.UnresolvedUser == "" {
		return fmt.Errorf("unresolved_user must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// TablePaths returns the socket table path for every protocol.
func (c *Config) TablePaths() map[socket.Protocol]string {
	paths := socket.DefaultPaths(c.ProcRoot)
	if c.Tables.TCP != "" {
		paths[socket.TCP] = c.Tables.TCP
	}
	if c.Tables.UDP != "" {
		paths[socket.UDP] = c.Tables.UDP
	}
	return paths
}

// Save marshals the config to YAML and writes it to the given path,
// creating parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultFile("config.yaml")
}

func defaultFile(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "whsock", name)
}
