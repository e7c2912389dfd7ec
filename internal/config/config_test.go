package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFullConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	configContent := `
data_dir: /var/lib/repodeck
repos_root: ~/code
projects_root: /srv/projects
web:
  port: 8080
  bind: "0.0.0.0"
log:
  level: debug
  max_size_mb: 20
git:
  timeout_seconds: 60
  clone_timeout_seconds: 600
  user_name: bot
  user_email: bot@example.com
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/repodeck" {
		t.Errorf("DataDir: got %q, want %q", cfg.DataDir, "/var/lib/repodeck")
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port: got %d, want 8080", cfg.Web.Port)
	}
	if cfg.Web.Bind != "0.0.0.0" {
		t.Errorf("Web.Bind: got %q, want %q", cfg.Web.Bind, "0.0.0.0")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.MaxSizeMB != 20 {
		t.Errorf("Log.MaxSizeMB: got %d, want 20", cfg.Log.MaxSizeMB)
	}
	if cfg.Git.UserName != "bot" || cfg.Git.UserEmail != "bot@example.com" {
		t.Errorf("Git identity: got %q/%q", cfg.Git.UserName, cfg.Git.UserEmail)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Web.Bind != "127.0.0.1" {
		t.Errorf("Web.Bind = %q, want %q (default)", cfg.Web.Bind, "127.0.0.1")
	}
	if cfg.Web.Port != 0 {
		t.Errorf("Web.Port = %d, want 0 (default)", cfg.Web.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q (default)", cfg.Log.Level, "info")
	}
}

func TestLoadFrom_EmptyFieldsFallBack(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("web:\n  port: 9000\n") // no bind, no log section
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Web.Bind != "127.0.0.1" {
		t.Errorf("Web.Bind = %q, want %q (default)", cfg.Web.Bind, "127.0.0.1")
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q (default)", cfg.Log.Level, "info")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("web: [not a map\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(configPath); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Run("explicit value wins", func(t *testing.T) {
		cfg := Config{DataDir: "/custom/data"}
		if got := cfg.ResolveDataDir(); got != "/custom/data" {
			t.Errorf("ResolveDataDir() = %q", got)
		}
	})

	t.Run("XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/xdg/data")
		cfg := Config{}
		if got := cfg.ResolveDataDir(); got != filepath.Join("/xdg/data", "repodeck") {
			t.Errorf("ResolveDataDir() = %q", got)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		cfg := Config{}
		want := filepath.Join(home, ".local", "share", "repodeck")
		if got := cfg.ResolveDataDir(); got != want {
			t.Errorf("ResolveDataDir() = %q, want %q", got, want)
		}
	})
}

func TestResolveReposRoot(t *testing.T) {
	cfg := Config{ReposRoot: "/srv/repos"}
	if got := cfg.ResolveReposRoot(); got != "/srv/repos" {
		t.Errorf("ResolveReposRoot() = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg = Config{}
	if got := cfg.ResolveReposRoot(); got != filepath.Join(home, "repos") {
		t.Errorf("default ResolveReposRoot() = %q", got)
	}
}

func TestResolveReposRoot_TildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := Config{ReposRoot: "~/code"}
	if got := cfg.ResolveReposRoot(); got != filepath.Join(home, "code") {
		t.Errorf("ResolveReposRoot() = %q", got)
	}
}

func TestResolveProjectsRoot_DefaultsUnderDataDir(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	if got := cfg.ResolveProjectsRoot(); got != filepath.Join("/data", "projects") {
		t.Errorf("ResolveProjectsRoot() = %q", got)
	}

	cfg = Config{ProjectsRoot: "/elsewhere"}
	if got := cfg.ResolveProjectsRoot(); got != "/elsewhere" {
		t.Errorf("explicit ResolveProjectsRoot() = %q", got)
	}
}

func TestGitTimeouts(t *testing.T) {
	cfg := Config{}
	if got := cfg.GitTimeout(); got != 0 {
		t.Errorf("zero config GitTimeout() = %v, want 0", got)
	}
	if got := cfg.CloneTimeout(); got != 0 {
		t.Errorf("zero config CloneTimeout() = %v, want 0", got)
	}

	cfg.Git.TimeoutSeconds = 45
	cfg.Git.CloneTimeoutSeconds = 300
	if got := cfg.GitTimeout(); got != 45*time.Second {
		t.Errorf("GitTimeout() = %v, want 45s", got)
	}
	if got := cfg.CloneTimeout(); got != 5*time.Minute {
		t.Errorf("CloneTimeout() = %v, want 5m", got)
	}
}
