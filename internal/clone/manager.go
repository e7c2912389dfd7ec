// pattern: Imperative Shell

package clone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"repodeck/internal/faults"
	"repodeck/internal/gitexec"
	"repodeck/internal/logging"
	"repodeck/internal/store"
)

// Manager runs git clones in the background and records each one as a
// durable task, so callers poll the task instead of watching logs. A
// failed clone leaves no partial checkout behind.
type Manager struct {
	db      *store.DB
	run     gitexec.Runner
	root    string
	timeout time.Duration
	logger  *logging.ScopedLogger
	wg      sync.WaitGroup
}

// NewManager creates a clone manager writing into root. A zero timeout
// falls back to the built-in clone budget.
func NewManager(db *store.DB, run gitexec.Runner, root string, timeout time.Duration, logger *logging.ScopedLogger) *Manager {
	if timeout == 0 {
		timeout = gitexec.CloneTimeout
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{db: db, run: run, root: root, timeout: timeout, logger: logger}
}

// Start validates the request, records a pending task and launches the
// clone in the background. The returned task is immediately pollable.
func (m *Manager) Start(ctx context.Context, gitURL string) (store.CloneTask, error) {
	if err := validateURL(gitURL); err != nil {
		return store.CloneTask{}, err
	}
	name := RepoNameFromURL(gitURL)
	if name == "" {
		return store.CloneTask{}, faults.Invalid("cannot derive repository name from %q", gitURL)
	}
	// On a fresh install the repos root may not exist yet; git would then
	// fail spawning in a missing working directory.
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return store.CloneTask{}, fmt.Errorf("creating repos root: %w", err)
	}

	dest := filepath.Join(m.root, name)
	if _, err := os.Stat(dest); err == nil {
		return store.CloneTask{}, faults.Conflict("destination %q already exists", name)
	}

	task := store.CloneTask{
		ID:       "clone-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		GitURL:   gitURL,
		DestPath: dest,
		Status:   store.ClonePending,
	}
	if err := m.db.CreateCloneTask(task); err != nil {
		return store.CloneTask{}, err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(task)
	}()

	m.logger.Info("clone started", "task", task.ID, "url", gitURL, "dest", dest)
	return task, nil
}

// Task returns the current state of a clone task.
func (m *Manager) Task(id string) (store.CloneTask, error) {
	return m.db.GetCloneTask(id)
}

// Wait blocks until all in-flight clones finish. Called on shutdown so
// task records reach a terminal state.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// execute runs the clone with its own context: the request that started
// the task has long since returned.
func (m *Manager) execute(task store.CloneTask) {
	ctx := context.Background()
	res, err := m.run.RunTimeout(ctx, m.timeout, m.root,
		"clone", task.GitURL, task.DestPath)

	switch {
	case err != nil:
		m.fail(task, err.Error())
	case !res.Ok():
		m.fail(task, strings.TrimSpace(res.Stderr))
	default:
		if err := m.db.FinishCloneTask(task.ID, store.CloneSucceeded, ""); err != nil {
			m.logger.Error("recording clone success failed", "task", task.ID, "error", err)
		}
		m.logger.Info("clone finished", "task", task.ID, "dest", task.DestPath)
	}
}

// fail records the terminal failure and removes any partial checkout.
func (m *Manager) fail(task store.CloneTask, reason string) {
	if err := os.RemoveAll(task.DestPath); err != nil {
		m.logger.Warn("partial clone cleanup failed", "task", task.ID, "error", err)
	}
	if err := m.db.FinishCloneTask(task.ID, store.CloneFailed, reason); err != nil {
		m.logger.Error("recording clone failure failed", "task", task.ID, "error", err)
	}
	m.logger.Warn("clone failed", "task", task.ID, "url", task.GitURL, "reason", reason)
}

// validateURL accepts ssh (git@) and http(s) clone URLs.
func validateURL(gitURL string) error {
	if gitURL == "" {
		return faults.Invalid("clone URL cannot be empty")
	}
	for _, prefix := range []string{"git@", "https://", "http://"} {
		if strings.HasPrefix(gitURL, prefix) {
			return nil
		}
	}
	return faults.Invalid("unsupported clone URL %q: must start with git@, https:// or http://", gitURL)
}

// RepoNameFromURL derives the destination directory name from a clone
// URL: the last path segment with any .git suffix stripped.
func RepoNameFromURL(gitURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(gitURL, "/"), ".git")
	trimmed = strings.TrimRight(trimmed, "/")
	idx := strings.LastIndexAny(trimmed, "/:")
	if idx == len(trimmed)-1 {
		return ""
	}
	name := trimmed
	if idx >= 0 {
		name = trimmed[idx+1:]
	}
	if strings.Contains(name, "..") || name == "" {
		return ""
	}
	return name
}
