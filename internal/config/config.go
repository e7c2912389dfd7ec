package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir      string    `yaml:"data_dir"`
	ReposRoot    string    `yaml:"repos_root"`
	ProjectsRoot string    `yaml:"projects_root"`
	Web          WebConfig `yaml:"web"`
	Log          LogConfig `yaml:"log"`
	Git          GitConfig `yaml:"git"`
}

type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type GitConfig struct {
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	CloneTimeoutSeconds int    `yaml:"clone_timeout_seconds"`
	UserName            string `yaml:"user_name"`
	UserEmail           string `yaml:"user_email"`
}

func DefaultConfig() Config {
	return Config{
		Web: WebConfig{Bind: "127.0.0.1"},
		Log: LogConfig{Level: "info"},
	}
}

func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}

	if cfg.Web.Bind == "" {
		cfg.Web.Bind = "127.0.0.1"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// ResolveDataDir returns the directory for the database, lock, port and
// log files. Defaults to ~/.local/share/repodeck.
func (c *Config) ResolveDataDir() string {
	if c.DataDir != "" {
		return expandHome(c.DataDir)
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "repodeck")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "repodeck")
	}
	return filepath.Join(home, ".local", "share", "repodeck")
}

// ResolveReposRoot returns the directory scanned for local repositories.
// Defaults to ~/repos.
func (c *Config) ResolveReposRoot() string {
	if c.ReposRoot != "" {
		return expandHome(c.ReposRoot)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "repos"
	}
	return filepath.Join(home, "repos")
}

// ResolveProjectsRoot returns the directory holding per-project repo
// checkouts. Defaults to <data_dir>/projects.
func (c *Config) ResolveProjectsRoot() string {
	if c.ProjectsRoot != "" {
		return expandHome(c.ProjectsRoot)
	}
	return filepath.Join(c.ResolveDataDir(), "projects")
}

// GitTimeout returns the per-command budget for ordinary git commands,
// or zero to use the built-in default.
func (c *Config) GitTimeout() time.Duration {
	if c.Git.TimeoutSeconds > 0 {
		return time.Duration(c.Git.TimeoutSeconds) * time.Second
	}
	return 0
}

// CloneTimeout returns the budget for network clones, or zero to use the
// built-in default.
func (c *Config) CloneTimeout() time.Duration {
	if c.Git.CloneTimeoutSeconds > 0 {
		return time.Duration(c.Git.CloneTimeoutSeconds) * time.Second
	}
	return 0
}

func expandHome(path string) string {
	if path == "~" || len(path) > 1 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "repodeck", "config.yaml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "repodeck", "config.yaml")
	}

	return filepath.Join(home, ".config", "repodeck", "config.yaml")
}
