// pattern: Imperative Shell

package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"repodeck/internal/logging"
)

// DefaultTimeout bounds ordinary inspection and mutation commands.
// CloneTimeout bounds network clones, which legitimately take minutes.
const (
	DefaultTimeout = 30 * time.Second
	CloneTimeout   = 5 * time.Minute
)

// Result is the outcome of a finished git invocation. A non-zero exit code
// is an ordinary outcome ("nothing to commit" is not an infrastructure
// failure), so it is carried as data rather than as an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Output returns trimmed stdout on success, trimmed stderr on failure.
func (r Result) Output() string {
	if r.Ok() {
		return strings.TrimSpace(r.Stdout)
	}
	return strings.TrimSpace(r.Stderr)
}

// TimeoutError reports a command that exceeded its time budget. It is a
// distinct type so callers can decide to retry with a longer budget instead
// of treating it like a git-level failure.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("git %s timed out after %s", strings.Join(e.Args, " "), e.Timeout)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Runner executes git commands against a working directory.
// Implementations must accept an argument vector, never a shell string,
// so paths and branch names containing metacharacters cannot inject.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
	// RunTimeout is Run with an explicit budget overriding the default.
	RunTimeout(ctx context.Context, timeout time.Duration, dir string, args ...string) (Result, error)
}

// GitRunner runs the installed git binary via os/exec.
type GitRunner struct {
	timeout time.Duration
	logger  *logging.ScopedLogger
}

// NewGitRunner creates a runner with the given default per-command budget.
// A zero timeout falls back to DefaultTimeout.
func NewGitRunner(timeout time.Duration, logger *logging.ScopedLogger) *GitRunner {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &GitRunner{timeout: timeout, logger: logger}
}

// Run executes `git args...` in dir with the default budget.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	return g.RunTimeout(ctx, g.timeout, dir, args...)
}

// RunTimeout executes `git args...` in dir, killing the process when the
// budget elapses. The returned error is non-nil only for timeouts and
// infrastructure failures (spawn failure, vanished directory); a non-zero
// exit is reported through the Result.
func (g *GitRunner) RunTimeout(ctx context.Context, timeout time.Duration, dir string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		g.logger.Warn("git command timed out", "args", strings.Join(args, " "), "dir", dir, "timeout", timeout)
		return Result{}, &TimeoutError{Args: args, Timeout: timeout}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res := Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
			g.logger.Debug("git command failed", "args", strings.Join(args, " "), "dir", dir, "exit_code", res.ExitCode, "elapsed", elapsed)
			return res, nil
		}
		// Spawn failure, missing binary, unreadable directory.
		return Result{}, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}

	g.logger.Debug("git command completed", "args", strings.Join(args, " "), "dir", dir, "elapsed", elapsed)
	return Result{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
