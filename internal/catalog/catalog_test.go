package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"repodeck/internal/faults"
	"repodeck/internal/gitexec"
	"repodeck/internal/gitrepo"
)

// scriptedRunner answers every git invocation from a fixed response table
// keyed by the joined argument vector.
type scriptedRunner struct {
	responses map[string]gitexec.Result
}

func (s *scriptedRunner) Run(_ context.Context, _ string, args ...string) (gitexec.Result, error) {
	if res, ok := s.responses[strings.Join(args, " ")]; ok {
		return res, nil
	}
	return gitexec.Result{}, nil
}

func (s *scriptedRunner) RunTimeout(ctx context.Context, _ time.Duration, dir string, args ...string) (gitexec.Result, error) {
	return s.Run(ctx, dir, args...)
}

func TestValidateName(t *testing.T) {
	valid := []string{"repo", "my-repo", "my_repo", "repo.git", "a", "Repo2"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".hidden", "-leading", "a/b", "a\\b", "..", "a..b", strings.Repeat("x", 201)}
	for _, name := range invalid {
		err := ValidateName(name)
		if err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
			continue
		}
		if !faults.IsValidation(err) {
			t.Errorf("ValidateName(%q) = %v, want ValidationError", name, err)
		}
	}
}

func TestRepoPath(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "demo"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := New(root, gitrepo.New(&scriptedRunner{}, nil), nil)

	path, err := c.RepoPath("demo")
	if err != nil {
		t.Fatalf("RepoPath() error = %v", err)
	}
	if path != filepath.Join(root, "demo") {
		t.Errorf("path = %q", path)
	}

	if _, err := c.RepoPath("missing"); !faults.IsNotFound(err) {
		t.Errorf("missing directory, err = %v", err)
	}
	if _, err := c.RepoPath("../escape"); !faults.IsValidation(err) {
		t.Errorf("traversal name, err = %v", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	// One git repository, one plain directory, one hidden, one loose file.
	repoDir := filepath.Join(root, "demo")
	if err := os.MkdirAll(filepath.Join(repoDir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "plain"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &scriptedRunner{responses: map[string]gitexec.Result{
		"branch --show-current": {Stdout: "main\n"},
		"branch":                {Stdout: "* main\n"},
		"remote get-url origin": {Stdout: "https://example.com/demo.git\n"},
	}}
	c := New(root, gitrepo.New(runner, nil), nil)

	entries, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries %+v, want 2", len(entries), entries)
	}

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	demo, ok := byName["demo"]
	if !ok {
		t.Fatal("demo repository missing from listing")
	}
	if !demo.IsRepo || demo.CurrentBranch != "main" || demo.RemoteURL != "https://example.com/demo.git" {
		t.Errorf("demo entry = %+v", demo)
	}
	plain := byName["plain"]
	if plain.IsRepo || plain.CurrentBranch != "" {
		t.Errorf("plain directory must not carry git state: %+v", plain)
	}
}

func TestList_MissingRootIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nonexistent"), gitrepo.New(&scriptedRunner{}, nil), nil)
	entries, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want empty", entries)
	}
}

func TestDelete(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "demo")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := New(root, gitrepo.New(&scriptedRunner{}, nil), nil)

	if err := c.Delete("demo"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("repository directory must be removed")
	}

	if err := c.Delete("demo"); !faults.IsNotFound(err) {
		t.Errorf("double delete, err = %v", err)
	}
}
