// pattern: Imperative Shell

package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"repodeck/internal/faults"
	"repodeck/internal/gitrepo"
	"repodeck/internal/logging"
	"repodeck/internal/store"
)

// Identity is the committer identity written into provisioned repositories.
type Identity struct {
	Name  string
	Email string
}

// Registry owns the project records and provisions a working repository
// for each new project under <projects_root>/<id>/repo.
type Registry struct {
	db           *store.DB
	git          *gitrepo.Ops
	projectsRoot string
	identity     Identity
	logs         logging.LoggerProvider
	logger       *logging.ScopedLogger
}

// NewRegistry creates the project registry. A zero identity falls back to
// a service-local committer. Each project logs under its own
// "project.<id>" scope, released again when the project is deleted.
func NewRegistry(db *store.DB, git *gitrepo.Ops, projectsRoot string, identity Identity, logs logging.LoggerProvider) *Registry {
	if identity.Name == "" {
		identity.Name = "repodeck"
	}
	if identity.Email == "" {
		identity.Email = "repodeck@localhost"
	}
	if logs == nil {
		logs = logging.NopProvider()
	}
	return &Registry{
		db:           db,
		git:          git,
		projectsRoot: projectsRoot,
		identity:     identity,
		logs:         logs,
		logger:       logs.For("project"),
	}
}

// Create provisions a new project: a fresh repository with an initial
// commit on main, the service identity configured, and origin pointed at
// gitURL when one is given. A provisioning failure leaves no directory
// behind.
func (r *Registry) Create(ctx context.Context, name, gitURL string) (store.Project, error) {
	if strings.TrimSpace(name) == "" {
		return store.Project{}, faults.Invalid("project name cannot be empty")
	}

	id := "project-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	projectDir := filepath.Join(r.projectsRoot, id)
	repoPath := filepath.Join(projectDir, "repo")
	if err := os.MkdirAll(repoPath, 0o755); err != nil {
		return store.Project{}, err
	}

	if err := r.provision(ctx, repoPath, gitURL); err != nil {
		_ = os.RemoveAll(projectDir)
		return store.Project{}, err
	}

	now := time.Now().UTC()
	p := store.Project{
		ID:            id,
		Name:          name,
		RepoPath:      repoPath,
		CurrentBranch: "main",
		Branches:      store.BranchCache{All: []string{"main"}, Current: "main"},
		GitURL:        gitURL,
		CreatedAt:     now,
		LastActiveAt:  &now,
	}
	if err := r.db.CreateProject(p); err != nil {
		_ = os.RemoveAll(projectDir)
		return store.Project{}, err
	}
	r.logs.For("project."+id).Info("project created", "name", name)
	return p, nil
}

func (r *Registry) provision(ctx context.Context, repoPath, gitURL string) error {
	if err := r.git.Init(ctx, repoPath); err != nil {
		return err
	}
	if err := r.git.EnsureIdentity(ctx, repoPath, r.identity.Name, r.identity.Email); err != nil {
		return err
	}
	if err := r.git.InitDefaultBranch(ctx, repoPath); err != nil {
		return err
	}
	if gitURL != "" {
		if err := r.git.AddRemote(ctx, repoPath, "origin", gitURL); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one project record.
func (r *Registry) Get(id string) (store.Project, error) {
	return r.db.GetProject(id)
}

// List returns all project records, newest first.
func (r *Registry) List() ([]store.Project, error) {
	return r.db.ListProjects()
}

// Delete removes the record and, for repositories provisioned under the
// projects root, the checkout as well. Repositories living elsewhere are
// left alone.
func (r *Registry) Delete(id string) error {
	p, err := r.db.GetProject(id)
	if err != nil {
		return err
	}
	if err := r.db.DeleteProject(id); err != nil {
		return err
	}
	projectDir := filepath.Join(r.projectsRoot, id)
	if p.RepoPath == "" || strings.HasPrefix(p.RepoPath, projectDir+string(filepath.Separator)) {
		if err := os.RemoveAll(projectDir); err != nil {
			r.logger.Warn("project directory removal failed", "project", id, "error", err)
		}
	}
	// Release the project's scoped loggers along with the project itself.
	r.logs.Cleanup("project." + id)
	r.logger.Info("project deleted", "project", id)
	return nil
}
