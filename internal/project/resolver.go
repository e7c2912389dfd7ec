// pattern: Imperative Shell

package project

import (
	"os"
	"path/filepath"

	"repodeck/internal/faults"
	"repodeck/internal/store"
)

// Resolver maps project ids to repository paths on disk.
//
// The persisted repo_path column is authoritative. Records created before
// the column existed rely on the conventional <projects_root>/<id>/repo
// layout instead, so a missing or stale path falls back to that location
// before giving up.
type Resolver struct {
	db           *store.DB
	projectsRoot string
}

// NewResolver creates a resolver over db with the configured projects root.
func NewResolver(db *store.DB, projectsRoot string) *Resolver {
	return &Resolver{db: db, projectsRoot: projectsRoot}
}

// Resolve returns the repository directory for a project id.
// Unknown ids return a NotFoundError for "project"; known projects whose
// repository is absent on disk return a NotFoundError for "repository".
func (r *Resolver) Resolve(projectID string) (string, error) {
	p, err := r.db.GetProject(projectID)
	if err != nil {
		return "", err
	}
	if p.RepoPath != "" && dirExists(p.RepoPath) {
		return p.RepoPath, nil
	}
	fallback := filepath.Join(r.projectsRoot, projectID, "repo")
	if dirExists(fallback) {
		return fallback, nil
	}
	return "", faults.NotFound("repository", projectID)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
