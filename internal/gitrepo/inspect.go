// pattern: Imperative Shell

package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"repodeck/internal/gitexec"
	"repodeck/internal/logging"
)

// DetachedHead is the branch name reported when HEAD does not point at a
// branch. It is an explicit fallback value, never an error.
const DetachedHead = "HEAD"

// Branch describes one branch of a repository. A branch that exists both
// locally and on the remote is reported once with IsRemote=false.
type Branch struct {
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
	IsRemote  bool   `json:"is_remote"`
}

// Info is the live inspection result for one repository path.
type Info struct {
	IsRepo        bool     `json:"is_git"`
	CurrentBranch string   `json:"current_branch,omitempty"`
	Branches      []string `json:"branches,omitempty"`
	RemoteURL     string   `json:"remote_url,omitempty"`
	LastCommit    string   `json:"last_commit,omitempty"`
	Ahead         int      `json:"ahead"`
	Behind        int      `json:"behind"`
}

// Ops performs git inspections and mutations through a Runner.
type Ops struct {
	run    gitexec.Runner
	locks  *pathLocks
	logger *logging.ScopedLogger
}

// New creates an Ops backed by the given runner.
func New(runner gitexec.Runner, logger *logging.ScopedLogger) *Ops {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Ops{run: runner, locks: newPathLocks(), logger: logger}
}

// IsRepo reports whether path carries a .git marker. Every other operation
// in this package assumes the caller checked this first; mutations refuse
// to run without it.
func IsRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Inspect derives the full live view of a repository: current branch,
// de-duplicated branch list, remote URL, last commit, and ahead/behind
// counts. A path without a .git marker yields Info{IsRepo: false} and no
// git invocation at all.
func (o *Ops) Inspect(ctx context.Context, repo string) (Info, error) {
	if !IsRepo(repo) {
		return Info{}, nil
	}

	info := Info{IsRepo: true}
	info.CurrentBranch = o.CurrentBranch(ctx, repo)

	branches, err := o.ListBranches(ctx, repo)
	if err != nil {
		return info, err
	}
	for _, b := range branches {
		info.Branches = append(info.Branches, b.Name)
	}

	info.RemoteURL = o.RemoteURL(ctx, repo)

	if res, err := o.run.Run(ctx, repo, "log", "-1", "--format=%H %s"); err == nil && res.Ok() {
		info.LastCommit = res.Output()
	}

	// Ahead/behind is best-effort telemetry: a missing remote branch or any
	// other failure collapses to zero rather than failing the inspection.
	if info.RemoteURL != "" && info.CurrentBranch != DetachedHead {
		info.Ahead, info.Behind = o.aheadBehind(ctx, repo, info.CurrentBranch)
	}

	return info, nil
}

// CurrentBranch returns the checked-out branch name, or DetachedHead when
// HEAD is detached, or "main" when the query itself fails.
func (o *Ops) CurrentBranch(ctx context.Context, repo string) string {
	res, err := o.run.Run(ctx, repo, "branch", "--show-current")
	if err != nil || !res.Ok() {
		return "main"
	}
	name := res.Output()
	if name == "" {
		return DetachedHead
	}
	return name
}

// RemoteURL returns the origin URL, or "" when no remote is configured.
func (o *Ops) RemoteURL(ctx context.Context, repo string) string {
	res, err := o.run.Run(ctx, repo, "remote", "get-url", "origin")
	if err != nil || !res.Ok() {
		return ""
	}
	return res.Output()
}

// ListBranches returns the union of local and remote branches. Remote names
// lose their "origin/" prefix, the synthetic origin/HEAD pointer is dropped,
// and a branch present on both sides is reported once as local.
func (o *Ops) ListBranches(ctx context.Context, repo string) ([]Branch, error) {
	var branches []Branch
	seen := make(map[string]bool)

	res, err := o.run.Run(ctx, repo, "branch")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, toolError("branch", res.ExitCode, res.Stderr)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		isCurrent := strings.HasPrefix(line, "* ")
		name := strings.TrimPrefix(line, "* ")
		if strings.HasPrefix(name, "(") {
			// "(HEAD detached at abc123)" pseudo entry
			continue
		}
		if !seen[name] {
			seen[name] = true
			branches = append(branches, Branch{Name: name, IsCurrent: isCurrent})
		}
	}

	res, err = o.run.Run(ctx, repo, "branch", "-r")
	if err != nil {
		return nil, err
	}
	if res.Ok() {
		for _, line := range strings.Split(res.Stdout, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "origin/HEAD") {
				continue
			}
			name := strings.TrimPrefix(line, "origin/")
			if !seen[name] {
				seen[name] = true
				branches = append(branches, Branch{Name: name, IsRemote: true})
			}
		}
	}

	return branches, nil
}

// Status runs a fresh porcelain status query.
func (o *Ops) Status(ctx context.Context, repo string) (Status, error) {
	res, err := o.run.Run(ctx, repo, "status", "--porcelain")
	if err != nil {
		return Status{}, err
	}
	if !res.Ok() {
		return Status{}, toolError("status", res.ExitCode, res.Stderr)
	}
	return ParseStatus(res.Stdout), nil
}

// Diff returns the unified diff for one file: index vs HEAD when staged,
// working tree vs index otherwise. A failure yields an empty diff.
func (o *Ops) Diff(ctx context.Context, repo, file string, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", file)

	res, err := o.run.Run(ctx, repo, args...)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("diff", res.ExitCode, res.Stderr)
	}
	return res.Stdout, nil
}

// IsTracked probes whether file is known to the index.
func (o *Ops) IsTracked(ctx context.Context, repo, file string) bool {
	res, err := o.run.Run(ctx, repo, "ls-files", "--error-unmatch", "--", file)
	return err == nil && res.Ok()
}

func (o *Ops) aheadBehind(ctx context.Context, repo, branch string) (ahead, behind int) {
	upstream := "origin/" + branch
	if res, err := o.run.Run(ctx, repo, "rev-list", "--count", upstream+"..HEAD"); err == nil && res.Ok() {
		ahead = parseCount(res.Output())
	}
	if res, err := o.run.Run(ctx, repo, "rev-list", "--count", "HEAD.."+upstream); err == nil && res.Ok() {
		behind = parseCount(res.Output())
	}
	return ahead, behind
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
