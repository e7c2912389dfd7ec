// pattern: Imperative Shell

package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PushResult is the outcome of a successful push.
type PushResult struct {
	Remote string `json:"remote"`
	Branch string `json:"branch"`
	Output string `json:"output"`
	Forced bool   `json:"forced"`
}

// Stage adds a single path to the index.
func (o *Ops) Stage(ctx context.Context, repo, file string) error {
	res, err := o.run.Run(ctx, repo, "add", "--", file)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("add", res.ExitCode, res.Stderr)
	}
	return nil
}

// Unstage resets a single path out of the index.
func (o *Ops) Unstage(ctx context.Context, repo, file string) error {
	res, err := o.run.Run(ctx, repo, "reset", "HEAD", "--", file)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("reset", res.ExitCode, res.Stderr)
	}
	return nil
}

// StageAll stages the entire working tree. A clean tree is a no-op success.
func (o *Ops) StageAll(ctx context.Context, repo string) error {
	res, err := o.run.Run(ctx, repo, "add", "-A")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("add -A", res.ExitCode, res.Stderr)
	}
	return nil
}

// UnstageAll resets the whole index. A clean index is a no-op success.
func (o *Ops) UnstageAll(ctx context.Context, repo string) error {
	res, err := o.run.Run(ctx, repo, "reset", "HEAD")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("reset", res.ExitCode, res.Stderr)
	}
	return nil
}

// Discard throws away working-tree changes for one file. Tracked files are
// restored from HEAD; untracked files are removed from disk, because
// checkout on an untracked path fails. The probe and the restore run under
// the path lock so a concurrent stage cannot flip the tracked-ness between
// the two steps.
func (o *Ops) Discard(ctx context.Context, repo, file string) error {
	release := o.locks.acquire(repo)
	defer release()

	if o.IsTracked(ctx, repo, file) {
		res, err := o.run.Run(ctx, repo, "checkout", "HEAD", "--", file)
		if err != nil {
			return err
		}
		if !res.Ok() {
			return toolError("checkout", res.ExitCode, res.Stderr)
		}
		return nil
	}

	full := filepath.Join(repo, file)
	rel, err := filepath.Rel(repo, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %q escapes repository", file)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing untracked file: %w", err)
	}
	return nil
}

// CommitStaged commits whatever is currently staged and returns the new
// commit hash. Nothing staged is a failure carrying git's own message.
func (o *Ops) CommitStaged(ctx context.Context, repo, message string) (string, error) {
	release := o.locks.acquire(repo)
	defer release()
	return o.commitStagedLocked(ctx, repo, message)
}

// CommitAll stages everything, then commits. The two commands run under one
// path lock so no concurrent stage call can widen the commit.
func (o *Ops) CommitAll(ctx context.Context, repo, message string) (string, error) {
	release := o.locks.acquire(repo)
	defer release()

	res, err := o.run.Run(ctx, repo, "add", "-A")
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("add -A", res.ExitCode, res.Stderr)
	}
	return o.commitStagedLocked(ctx, repo, message)
}

// CommitFiles stages the named paths and commits them. The whole sequence
// holds the path lock, so a concurrent discard or unstage cannot widen or
// narrow the commit between the stage step and the commit itself.
func (o *Ops) CommitFiles(ctx context.Context, repo string, files []string, message string) (string, error) {
	release := o.locks.acquire(repo)
	defer release()

	for _, file := range files {
		res, err := o.run.Run(ctx, repo, "add", "--", file)
		if err != nil {
			return "", err
		}
		if !res.Ok() {
			return "", toolError("add", res.ExitCode, res.Stderr)
		}
	}
	return o.commitStagedLocked(ctx, repo, message)
}

func (o *Ops) commitStagedLocked(ctx context.Context, repo, message string) (string, error) {
	res, err := o.run.Run(ctx, repo, "commit", "-m", message)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		// git reports "nothing to commit" on stdout with exit 1
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", toolError("commit", res.ExitCode, msg)
	}
	return o.HeadSHA(ctx, repo)
}

// HeadSHA resolves HEAD to a full commit hash.
func (o *Ops) HeadSHA(ctx context.Context, repo string) (string, error) {
	res, err := o.run.Run(ctx, repo, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("rev-parse", res.ExitCode, res.Stderr)
	}
	return res.Output(), nil
}

// Push pushes branch to remote with upstream tracking. When the first
// attempt fails AND the branch has never had an upstream, it retries once
// with --force: the only sanctioned case is the first link to an empty
// remote whose histories diverge (a README created on the hosting side).
// A branch that already tracks an upstream never gets the force retry, so
// an ordinary rejected push surfaces as the failure it is.
func (o *Ops) Push(ctx context.Context, repo, remote, branch string) (PushResult, error) {
	release := o.locks.acquire(repo)
	defer release()

	res, err := o.run.Run(ctx, repo, "push", "-u", remote, branch)
	if err != nil {
		return PushResult{}, err
	}
	if res.Ok() {
		return PushResult{Remote: remote, Branch: branch, Output: res.Output()}, nil
	}

	if o.hasUpstream(ctx, repo, branch) {
		return PushResult{}, toolError("push", res.ExitCode, res.Stderr)
	}

	forced, err := o.run.Run(ctx, repo, "push", "-u", "--force", remote, branch)
	if err != nil {
		return PushResult{}, err
	}
	if !forced.Ok() {
		return PushResult{}, toolError("push --force", forced.ExitCode, forced.Stderr)
	}
	return PushResult{Remote: remote, Branch: branch, Output: forced.Output(), Forced: true}, nil
}

func (o *Ops) hasUpstream(ctx context.Context, repo, branch string) bool {
	res, err := o.run.Run(ctx, repo, "rev-parse", "--abbrev-ref", "--symbolic-full-name", branch+"@{u}")
	return err == nil && res.Ok()
}

// Checkout switches to branch. When no local ref exists, it creates a
// tracking branch from origin/<branch>. The existence probe and the
// checkout run under the path lock.
func (o *Ops) Checkout(ctx context.Context, repo, branch string) (string, error) {
	release := o.locks.acquire(repo)
	defer release()

	probe, err := o.run.Run(ctx, repo, "show-ref", "--verify", "refs/heads/"+branch)
	if err != nil {
		return "", err
	}

	var res = probe
	if probe.Ok() {
		res, err = o.run.Run(ctx, repo, "checkout", branch)
	} else {
		res, err = o.run.Run(ctx, repo, "checkout", "-b", branch, "origin/"+branch)
	}
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("checkout", res.ExitCode, res.Stderr)
	}
	return res.Output(), nil
}

// HardReset moves HEAD and the working tree to sha, discarding all local
// changes. Irreversible; confirming intent is the caller's job.
func (o *Ops) HardReset(ctx context.Context, repo, sha string) error {
	res, err := o.run.Run(ctx, repo, "reset", "--hard", sha)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("reset --hard", res.ExitCode, res.Stderr)
	}
	return nil
}

// Fetch updates remote-tracking refs from remote.
func (o *Ops) Fetch(ctx context.Context, repo, remote string) (string, error) {
	res, err := o.run.Run(ctx, repo, "fetch", remote)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("fetch", res.ExitCode, res.Stderr)
	}
	return res.Output(), nil
}

var urlCredentialsRe = regexp.MustCompile(`^(https?://)[^@/]+@`)

// normalizeRemoteURL strips embedded credentials so two URLs for the same
// repository compare equal regardless of tokens.
func normalizeRemoteURL(url string) string {
	return urlCredentialsRe.ReplaceAllString(url, "$1")
}

// AddRemote configures remote name → url idempotently. Same repository with
// different credentials updates the URL in place; a different repository
// replaces the remote and clears stale upstream tracking, which would
// otherwise break the next push. The whole sequence holds the path lock.
func (o *Ops) AddRemote(ctx context.Context, repo, name, url string) error {
	release := o.locks.acquire(repo)
	defer release()

	existing, err := o.run.Run(ctx, repo, "remote", "get-url", name)
	if err != nil {
		return err
	}

	if !existing.Ok() {
		res, err := o.run.Run(ctx, repo, "remote", "add", name, url)
		if err != nil {
			return err
		}
		if !res.Ok() {
			return toolError("remote add", res.ExitCode, res.Stderr)
		}
		return nil
	}

	if normalizeRemoteURL(existing.Output()) == normalizeRemoteURL(url) {
		res, err := o.run.Run(ctx, repo, "remote", "set-url", name, url)
		if err != nil {
			return err
		}
		if !res.Ok() {
			return toolError("remote set-url", res.ExitCode, res.Stderr)
		}
		return nil
	}

	if res, err := o.run.Run(ctx, repo, "remote", "remove", name); err != nil {
		return err
	} else if !res.Ok() {
		return toolError("remote remove", res.ExitCode, res.Stderr)
	}
	if res, err := o.run.Run(ctx, repo, "remote", "add", name, url); err != nil {
		return err
	} else if !res.Ok() {
		return toolError("remote add", res.ExitCode, res.Stderr)
	}
	// Upstream may still point at the removed remote; unset is best-effort
	// because a branch without upstream reports failure here.
	_, _ = o.run.Run(ctx, repo, "branch", "--unset-upstream")
	return nil
}

// Init creates an empty repository at path.
func (o *Ops) Init(ctx context.Context, path string) error {
	res, err := o.run.Run(ctx, path, "init")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return toolError("init", res.ExitCode, res.Stderr)
	}
	return nil
}

// EnsureIdentity sets the repository-local committer identity.
func (o *Ops) EnsureIdentity(ctx context.Context, repo, name, email string) error {
	if res, err := o.run.Run(ctx, repo, "config", "--local", "user.name", name); err != nil {
		return err
	} else if !res.Ok() {
		return toolError("config user.name", res.ExitCode, res.Stderr)
	}
	if res, err := o.run.Run(ctx, repo, "config", "--local", "user.email", email); err != nil {
		return err
	} else if !res.Ok() {
		return toolError("config user.email", res.ExitCode, res.Stderr)
	}
	return nil
}

// InitDefaultBranch makes sure a repository has at least one commit and sits
// on "main". A repo with zero commits gets an initial commit (empty if the
// tree is empty); any other branch name is renamed. Failures past the first
// commit are tolerated: an already-correct repo must come through unchanged.
func (o *Ops) InitDefaultBranch(ctx context.Context, repo string) error {
	release := o.locks.acquire(repo)
	defer release()

	head, err := o.run.Run(ctx, repo, "rev-parse", "HEAD")
	if err != nil {
		return err
	}
	if !head.Ok() {
		if res, err := o.run.Run(ctx, repo, "add", "."); err != nil {
			return err
		} else if !res.Ok() {
			return toolError("add", res.ExitCode, res.Stderr)
		}
		commit, err := o.run.Run(ctx, repo, "commit", "-m", "Initial commit")
		if err != nil {
			return err
		}
		if !commit.Ok() {
			empty, err := o.run.Run(ctx, repo, "commit", "--allow-empty", "-m", "Initial commit")
			if err != nil {
				return err
			}
			if !empty.Ok() {
				return toolError("commit", empty.ExitCode, empty.Stderr)
			}
		}
	}

	if current := o.CurrentBranch(ctx, repo); current != "main" {
		if res, err := o.run.Run(ctx, repo, "branch", "-M", "main"); err != nil {
			return err
		} else if !res.Ok() {
			res, err = o.run.Run(ctx, repo, "checkout", "-b", "main")
			if err != nil {
				return err
			}
			_ = res // already on main or detached; not fatal
		}
	}
	return nil
}
