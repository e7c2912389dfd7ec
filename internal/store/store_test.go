package store

import (
	"path/filepath"
	"testing"
	"time"

	"repodeck/internal/faults"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
}

func TestProject_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	p := Project{
		ID:            "project-abc123def456",
		Name:          "demo",
		RepoPath:      "/data/projects/project-abc123def456/repo",
		CurrentBranch: "main",
		Branches:      BranchCache{All: []string{"main", "feature"}, Current: "main"},
		GitURL:        "https://example.com/demo.git",
		CreatedAt:     now,
	}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	got, err := db.GetProject(p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != p.Name || got.RepoPath != p.RepoPath || got.GitURL != p.GitURL {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if got.CurrentBranch != "main" || got.Branches.Current != "main" || len(got.Branches.All) != 2 {
		t.Errorf("branch cache did not survive: %+v", got.Branches)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.LastActiveAt != nil {
		t.Errorf("LastActiveAt = %v, want nil", got.LastActiveAt)
	}
}

func TestGetProject_Missing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetProject("project-nope")
	if !faults.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	db := openTestDB(t)
	p := Project{ID: "project-1", Name: "demo", CurrentBranch: "main"}
	if err := db.CreateProject(p); err != nil {
		t.Fatal(err)
	}

	active := time.Now().UTC().Truncate(time.Second)
	p.CurrentBranch = "feature"
	p.Branches = BranchCache{All: []string{"main", "feature"}, Current: "feature"}
	p.LastActiveAt = &active
	if err := db.UpdateProject(p); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	got, err := db.GetProject("project-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBranch != "feature" {
		t.Errorf("CurrentBranch = %q", got.CurrentBranch)
	}
	if got.LastActiveAt == nil || !got.LastActiveAt.Equal(active) {
		t.Errorf("LastActiveAt = %v, want %v", got.LastActiveAt, active)
	}
}

func TestUpdateProject_Missing(t *testing.T) {
	db := openTestDB(t)
	err := db.UpdateProject(Project{ID: "project-nope", CurrentBranch: "main"})
	if !faults.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteProject(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateProject(Project{ID: "project-1", Name: "demo", CurrentBranch: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteProject("project-1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if _, err := db.GetProject("project-1"); !faults.IsNotFound(err) {
		t.Errorf("deleted project still readable, err = %v", err)
	}
	if err := db.DeleteProject("project-1"); !faults.IsNotFound(err) {
		t.Errorf("double delete, err = %v", err)
	}
}

func TestListProjects_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	if err := db.CreateProject(Project{ID: "project-old", Name: "old", CurrentBranch: "main", CreatedAt: older}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateProject(Project{ID: "project-new", Name: "new", CurrentBranch: "main", CreatedAt: newer}); err != nil {
		t.Fatal(err)
	}

	projects, err := db.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0].ID != "project-new" {
		t.Errorf("unexpected order: %+v", projects)
	}
}

func TestListWorkspaces_FiltersOnRepoName(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateProject(Project{ID: "project-1", Name: "plain", CurrentBranch: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateProject(Project{ID: "workspace-1", Name: "linked", RepoName: "demo", CurrentBranch: "main"}); err != nil {
		t.Fatal(err)
	}

	workspaces, err := db.ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces() error = %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].ID != "workspace-1" {
		t.Errorf("workspaces = %+v", workspaces)
	}
}

func TestFindWorkspace(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateProject(Project{ID: "workspace-1", Name: "demo@main", RepoName: "demo", CurrentBranch: "main"}); err != nil {
		t.Fatal(err)
	}

	got, err := db.FindWorkspace("demo", "main")
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if got.ID != "workspace-1" {
		t.Errorf("ID = %q", got.ID)
	}

	if _, err := db.FindWorkspace("demo", "feature"); !faults.IsNotFound(err) {
		t.Errorf("expected NotFoundError for unlinked branch, got %v", err)
	}
}

func TestCloneTask_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	task := CloneTask{
		ID:       "clone-abc123def456",
		GitURL:   "https://example.com/demo.git",
		DestPath: "/data/repos/demo",
	}
	if err := db.CreateCloneTask(task); err != nil {
		t.Fatalf("CreateCloneTask() error = %v", err)
	}

	got, err := db.GetCloneTask(task.ID)
	if err != nil {
		t.Fatalf("GetCloneTask() error = %v", err)
	}
	if got.Status != ClonePending {
		t.Errorf("fresh task status = %q, want pending", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("fresh task must have no finished timestamp")
	}

	if err := db.FinishCloneTask(task.ID, CloneFailed, "authentication failed"); err != nil {
		t.Fatalf("FinishCloneTask() error = %v", err)
	}
	got, err = db.GetCloneTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != CloneFailed || got.Error != "authentication failed" {
		t.Errorf("finished task = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("finished task must carry a timestamp")
	}
}

func TestFinishCloneTask_Missing(t *testing.T) {
	db := openTestDB(t)
	if err := db.FinishCloneTask("clone-nope", CloneSucceeded, ""); !faults.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
