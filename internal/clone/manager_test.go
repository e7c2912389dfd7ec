package clone

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"repodeck/internal/faults"
	"repodeck/internal/gitexec"
	"repodeck/internal/store"
)

// cloneRunner returns one fixed result for every invocation and records the
// argument vectors it saw.
type cloneRunner struct {
	mu     sync.Mutex
	result gitexec.Result
	err    error
	calls  [][]string
}

func (c *cloneRunner) Run(ctx context.Context, dir string, args ...string) (gitexec.Result, error) {
	return c.RunTimeout(ctx, 0, dir, args...)
}

func (c *cloneRunner) RunTimeout(_ context.Context, _ time.Duration, _ string, args ...string) (gitexec.Result, error) {
	c.mu.Lock()
	c.calls = append(c.calls, args)
	c.mu.Unlock()
	return c.result, c.err
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct{ url, want string }{
		{"https://github.com/org/repo.git", "repo"},
		{"https://github.com/org/repo", "repo"},
		{"https://github.com/org/repo.git/", "repo"},
		{"git@github.com:org/repo.git", "repo"},
		{"git@github.com:repo.git", "repo"},
		{"git@github.com:", ""},
		{"https://example.com/..", ""},
	}
	for _, tt := range tests {
		if got := RepoNameFromURL(tt.url); got != tt.want {
			t.Errorf("RepoNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestStart_RejectsBadURLs(t *testing.T) {
	m := NewManager(openTestDB(t), &cloneRunner{}, t.TempDir(), 0, nil)

	for _, url := range []string{"", "ftp://example.com/repo.git", "file:///etc/passwd"} {
		if _, err := m.Start(context.Background(), url); !faults.IsValidation(err) {
			t.Errorf("Start(%q) = %v, want ValidationError", url, err)
		}
	}
}

func TestStart_ExistingDestinationConflicts(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "repo"), 0o755); err != nil {
		t.Fatal(err)
	}
	m := NewManager(openTestDB(t), &cloneRunner{}, root, 0, nil)

	_, err := m.Start(context.Background(), "https://example.com/repo.git")
	if !faults.IsConflict(err) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestStart_SuccessfulClone(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	runner := &cloneRunner{}
	m := NewManager(db, runner, root, 0, nil)

	task, err := m.Start(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !strings.HasPrefix(task.ID, "clone-") {
		t.Errorf("ID = %q, want clone- prefix", task.ID)
	}
	if task.Status != store.ClonePending {
		t.Errorf("initial status = %q, want pending", task.Status)
	}

	m.Wait()

	done, err := m.Task(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != store.CloneSucceeded {
		t.Errorf("final status = %q, error = %q", done.Status, done.Error)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("calls = %v", runner.calls)
	}
	want := []string{"clone", "https://example.com/repo.git", filepath.Join(root, "repo")}
	for i, a := range runner.calls[0] {
		if a != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, a, want[i])
		}
	}
}

func TestStart_CreatesMissingReposRoot(t *testing.T) {
	db := openTestDB(t)
	root := filepath.Join(t.TempDir(), "data", "repos")
	runner := &cloneRunner{}
	m := NewManager(db, runner, root, 0, nil)

	task, err := m.Start(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("repos root was not created: %v", err)
	}

	m.Wait()
	done, err := m.Task(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != store.CloneSucceeded {
		t.Errorf("final status = %q, error = %q", done.Status, done.Error)
	}
}

func TestStart_FailedCloneRecordsStderrAndCleansUp(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	runner := &cloneRunner{result: gitexec.Result{ExitCode: 128, Stderr: "fatal: Authentication failed\n"}}
	m := NewManager(db, runner, root, 0, nil)

	task, err := m.Start(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatal(err)
	}
	// Simulate the partial checkout git may leave behind.
	if err := os.Mkdir(task.DestPath, 0o755); err != nil {
		t.Fatal(err)
	}

	m.Wait()

	done, err := m.Task(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != store.CloneFailed {
		t.Errorf("final status = %q, want failed", done.Status)
	}
	if done.Error != "fatal: Authentication failed" {
		t.Errorf("error = %q", done.Error)
	}
	if _, err := os.Stat(task.DestPath); !os.IsNotExist(err) {
		t.Error("partial checkout must be removed")
	}
}

func TestStart_TimeoutRecordsFailure(t *testing.T) {
	db := openTestDB(t)
	runner := &cloneRunner{err: &gitexec.TimeoutError{Args: []string{"clone"}, Timeout: time.Second}}
	m := NewManager(db, runner, t.TempDir(), 0, nil)

	task, err := m.Start(context.Background(), "https://example.com/repo.git")
	if err != nil {
		t.Fatal(err)
	}
	m.Wait()

	done, err := m.Task(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != store.CloneFailed || !strings.Contains(done.Error, "timed out") {
		t.Errorf("task = %+v", done)
	}
}

func TestTask_Unknown(t *testing.T) {
	m := NewManager(openTestDB(t), &cloneRunner{}, t.TempDir(), 0, nil)
	if _, err := m.Task("clone-nope"); !faults.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
