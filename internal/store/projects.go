// pattern: Imperative Shell

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"repodeck/internal/faults"
)

// BranchCache is the persisted branch snapshot of a project. It is a
// point-in-time display hint, refreshed on inspection and branch switches;
// mutation decisions always re-resolve the live repository instead.
type BranchCache struct {
	All     []string `json:"all"`
	Current string   `json:"current"`
}

// Project is one persisted project record. RepoPath may be empty for legacy
// records that rely on the conventional fallback layout; RepoName is set
// only for workspace records linked to a local repository.
type Project struct {
	ID            string
	Name          string
	RepoPath      string
	RepoName      string
	CurrentBranch string
	Branches      BranchCache
	GitURL        string
	CreatedAt     time.Time
	LastActiveAt  *time.Time
}

// CreateProject inserts a new project record.
func (d *DB) CreateProject(p Project) error {
	branches, err := json.Marshal(p.Branches)
	if err != nil {
		return fmt.Errorf("encoding branch cache: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err = d.conn.Exec(
		`INSERT INTO projects (id, name, repo_path, repo_name, current_branch, branches, git_url, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullIfEmpty(p.RepoPath), nullIfEmpty(p.RepoName),
		p.CurrentBranch, string(branches), nullIfEmpty(p.GitURL),
		p.CreatedAt.Unix(), unixOrNil(p.LastActiveAt),
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProject fetches one project by id.
func (d *DB) GetProject(id string) (Project, error) {
	row := d.conn.QueryRow(
		`SELECT id, name, repo_path, repo_name, current_branch, branches, git_url, created_at, last_active_at
		 FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return Project{}, faults.NotFound("project", id)
	}
	if err != nil {
		return Project{}, fmt.Errorf("fetching project: %w", err)
	}
	return p, nil
}

// UpdateProject persists branch/remote state for an existing record.
func (d *DB) UpdateProject(p Project) error {
	branches, err := json.Marshal(p.Branches)
	if err != nil {
		return fmt.Errorf("encoding branch cache: %w", err)
	}
	res, err := d.conn.Exec(
		`UPDATE projects SET name = ?, repo_path = ?, repo_name = ?, current_branch = ?, branches = ?, git_url = ?, last_active_at = ?
		 WHERE id = ?`,
		p.Name, nullIfEmpty(p.RepoPath), nullIfEmpty(p.RepoName),
		p.CurrentBranch, string(branches), nullIfEmpty(p.GitURL),
		unixOrNil(p.LastActiveAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return faults.NotFound("project", p.ID)
	}
	return nil
}

// DeleteProject removes a record. Missing ids are a NotFoundError.
func (d *DB) DeleteProject(id string) error {
	res, err := d.conn.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return faults.NotFound("project", id)
	}
	return nil
}

// ListProjects returns all records, newest first.
func (d *DB) ListProjects() ([]Project, error) {
	return d.queryProjects(
		`SELECT id, name, repo_path, repo_name, current_branch, branches, git_url, created_at, last_active_at
		 FROM projects ORDER BY created_at DESC`)
}

// ListWorkspaces returns records linked to a local repository.
func (d *DB) ListWorkspaces() ([]Project, error) {
	return d.queryProjects(
		`SELECT id, name, repo_path, repo_name, current_branch, branches, git_url, created_at, last_active_at
		 FROM projects WHERE repo_name IS NOT NULL ORDER BY created_at DESC`)
}

// FindWorkspace looks up the workspace backed by a (repoName, branch) pair.
// At most one record may exist per pair; callers use this for duplicate-link
// prevention.
func (d *DB) FindWorkspace(repoName, branch string) (Project, error) {
	row := d.conn.QueryRow(
		`SELECT id, name, repo_path, repo_name, current_branch, branches, git_url, created_at, last_active_at
		 FROM projects WHERE repo_name = ? AND current_branch = ?`, repoName, branch)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return Project{}, faults.NotFound("workspace", repoName+":"+branch)
	}
	if err != nil {
		return Project{}, fmt.Errorf("finding workspace: %w", err)
	}
	return p, nil
}

func (d *DB) queryProjects(query string, args ...any) ([]Project, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p            Project
		repoPath     sql.NullString
		repoName     sql.NullString
		gitURL       sql.NullString
		branches     string
		createdAt    int64
		lastActiveAt sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Name, &repoPath, &repoName, &p.CurrentBranch,
		&branches, &gitURL, &createdAt, &lastActiveAt)
	if err != nil {
		return Project{}, err
	}
	p.RepoPath = repoPath.String
	p.RepoName = repoName.String
	p.GitURL = gitURL.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastActiveAt.Valid {
		t := time.Unix(lastActiveAt.Int64, 0).UTC()
		p.LastActiveAt = &t
	}
	// A corrupt cache column degrades to an empty hint, never an error.
	_ = json.Unmarshal([]byte(branches), &p.Branches)
	return p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
