// pattern: Functional Core

package gitrepo

import (
	"errors"
	"fmt"
	"strings"
)

// ToolError reports a git command that exited non-zero for a reason the
// caller did not anticipate (merge conflict, dirty worktree, bad ref).
// Stderr is carried verbatim so an operator can diagnose without server logs.
type ToolError struct {
	Op       string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = "unknown error"
	}
	return fmt.Sprintf("git %s failed: %s", e.Op, detail)
}

// IsToolError reports whether err is (or wraps) a ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}

func toolError(op string, exitCode int, stderr string) *ToolError {
	return &ToolError{Op: op, ExitCode: exitCode, Stderr: strings.TrimSpace(stderr)}
}
