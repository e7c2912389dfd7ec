// pattern: Imperative Shell

package project

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"repodeck/internal/catalog"
	"repodeck/internal/faults"
	"repodeck/internal/gitrepo"
	"repodeck/internal/logging"
	"repodeck/internal/store"
)

// Workspaces links local repositories to project records and keeps the
// persisted branch snapshot reconciled with the live repository. Branch
// decisions are always made against a fresh inspection; the persisted
// cache is a display hint only.
type Workspaces struct {
	db     *store.DB
	repos  *catalog.Catalog
	git    *gitrepo.Ops
	logger *logging.ScopedLogger
}

// NewWorkspaces creates the workspace reconciler.
func NewWorkspaces(db *store.DB, repos *catalog.Catalog, git *gitrepo.Ops, logger *logging.ScopedLogger) *Workspaces {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Workspaces{db: db, repos: repos, git: git, logger: logger}
}

// Link binds a repository branch to a new workspace record. The branch
// must exist in a fresh inspection of the repository, and a
// (repository, branch) pair may back at most one workspace.
func (w *Workspaces) Link(ctx context.Context, repoName, branch, name string) (store.Project, error) {
	path, err := w.repos.RepoPath(repoName)
	if err != nil {
		return store.Project{}, err
	}
	info, err := w.git.Inspect(ctx, path)
	if err != nil {
		return store.Project{}, err
	}
	if !info.IsRepo {
		return store.Project{}, faults.Invalid("%q is not a git repository", repoName)
	}
	names := info.Branches
	if !contains(names, branch) {
		return store.Project{}, faults.Invalid("branch %q not found in %q; available: %s",
			branch, repoName, strings.Join(names, ", "))
	}

	if existing, err := w.db.FindWorkspace(repoName, branch); err == nil {
		return store.Project{}, faults.Conflict(
			"branch %q of %q is already linked to workspace %s", branch, repoName, existing.ID)
	} else if !faults.IsNotFound(err) {
		return store.Project{}, err
	}

	if name == "" {
		name = repoName + "-" + branch
	}
	now := time.Now().UTC()
	p := store.Project{
		ID:            newWorkspaceID(),
		Name:          name,
		RepoPath:      path,
		RepoName:      repoName,
		CurrentBranch: branch,
		Branches:      store.BranchCache{All: names, Current: info.CurrentBranch},
		GitURL:        info.RemoteURL,
		CreatedAt:     now,
		LastActiveAt:  &now,
	}
	if err := w.db.CreateProject(p); err != nil {
		return store.Project{}, err
	}
	w.logger.Info("workspace linked", "workspace", p.ID, "repo", repoName, "branch", branch)
	return p, nil
}

// SwitchBranch checks out branch in the workspace's repository and
// persists the new state. The target branch is validated against a fresh
// inspection, never the cached snapshot.
func (w *Workspaces) SwitchBranch(ctx context.Context, workspaceID, branch string) (store.Project, error) {
	p, err := w.db.GetProject(workspaceID)
	if err != nil {
		return store.Project{}, err
	}
	if p.RepoName == "" {
		return store.Project{}, faults.NotFound("workspace", workspaceID)
	}
	path, err := w.repoPath(p)
	if err != nil {
		return store.Project{}, err
	}
	info, err := w.git.Inspect(ctx, path)
	if err != nil {
		return store.Project{}, err
	}
	names := info.Branches
	if !contains(names, branch) {
		return store.Project{}, faults.Invalid("branch %q not found in %q; available: %s",
			branch, p.RepoName, strings.Join(names, ", "))
	}

	if _, err := w.git.Checkout(ctx, path, branch); err != nil {
		return store.Project{}, err
	}

	now := time.Now().UTC()
	p.CurrentBranch = branch
	p.Branches = store.BranchCache{All: names, Current: branch}
	p.LastActiveAt = &now
	if err := w.db.UpdateProject(p); err != nil {
		return store.Project{}, err
	}
	w.logger.Info("workspace branch switched", "workspace", p.ID, "branch", branch)
	return p, nil
}

// ListLinked returns all workspace records with their branch snapshots
// refreshed from the live repositories. A repository that fails
// inspection keeps its stale snapshot.
func (w *Workspaces) ListLinked(ctx context.Context) ([]store.Project, error) {
	records, err := w.db.ListWorkspaces()
	if err != nil {
		return nil, err
	}
	for i := range records {
		path, err := w.repoPath(records[i])
		if err != nil {
			w.logger.Warn("workspace repository missing", "workspace", records[i].ID, "error", err)
			continue
		}
		info, err := w.git.Inspect(ctx, path)
		if err != nil || !info.IsRepo {
			w.logger.Warn("workspace inspection failed", "workspace", records[i].ID, "error", err)
			continue
		}
		records[i].Branches = store.BranchCache{
			All:     info.Branches,
			Current: info.CurrentBranch,
		}
	}
	return records, nil
}

// Unlink removes a workspace record. The repository itself is untouched.
func (w *Workspaces) Unlink(workspaceID string) error {
	p, err := w.db.GetProject(workspaceID)
	if err != nil {
		return err
	}
	if p.RepoName == "" {
		return faults.NotFound("workspace", workspaceID)
	}
	if err := w.db.DeleteProject(workspaceID); err != nil {
		return err
	}
	w.logger.Info("workspace unlinked", "workspace", workspaceID, "repo", p.RepoName)
	return nil
}

// repoPath resolves a workspace record to its repository directory,
// preferring the persisted path over the catalog lookup.
func (w *Workspaces) repoPath(p store.Project) (string, error) {
	if p.RepoPath != "" && dirExists(p.RepoPath) {
		return p.RepoPath, nil
	}
	return w.repos.RepoPath(p.RepoName)
}

func newWorkspaceID() string {
	return "workspace-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
