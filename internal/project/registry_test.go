package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"repodeck/internal/faults"
	"repodeck/internal/gitexec"
	"repodeck/internal/gitrepo"
	"repodeck/internal/logging"
	"repodeck/internal/store"
)

func storeProject(id, repoPath string) store.Project {
	return store.Project{ID: id, Name: id, RepoPath: repoPath, CurrentBranch: "main"}
}

func newTestRegistry(t *testing.T, runner *scriptedRunner, identity Identity) (*Registry, string) {
	t.Helper()
	projectsRoot := t.TempDir()
	r := NewRegistry(openTestDB(t), gitrepo.New(runner, nil), projectsRoot, identity, nil)
	return r, projectsRoot
}

// provisionScript makes the provisioning sequence succeed against a fresh
// repository: HEAD resolves after the initial commit, branch reads main.
func provisionScript() map[string]gitexec.Result {
	return map[string]gitexec.Result{
		"rev-parse HEAD":        {ExitCode: 128, Stderr: "fatal: ambiguous argument 'HEAD'"},
		"branch --show-current": {Stdout: "main\n"},
		"remote get-url origin": {ExitCode: 128, Stderr: "error: No such remote"},
	}
}

func TestRegistryCreate(t *testing.T) {
	runner := &scriptedRunner{responses: provisionScript()}
	r, projectsRoot := newTestRegistry(t, runner, Identity{Name: "alice", Email: "alice@example.com"})

	p, err := r.Create(context.Background(), "demo", "https://example.com/demo.git")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(p.ID, "project-") {
		t.Errorf("ID = %q, want project- prefix", p.ID)
	}
	wantPath := filepath.Join(projectsRoot, p.ID, "repo")
	if p.RepoPath != wantPath {
		t.Errorf("RepoPath = %q, want %q", p.RepoPath, wantPath)
	}
	if p.CurrentBranch != "main" {
		t.Errorf("CurrentBranch = %q", p.CurrentBranch)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Error("repository directory must exist on disk")
	}

	for _, want := range []string{
		"init",
		"config --local user.name alice",
		"config --local user.email alice@example.com",
		"remote add origin https://example.com/demo.git",
	} {
		found := false
		for _, c := range runner.calls {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("provisioning missing %q, calls = %v", want, runner.calls)
		}
	}
}

func TestRegistryCreate_EmptyName(t *testing.T) {
	r, _ := newTestRegistry(t, &scriptedRunner{}, Identity{})
	if _, err := r.Create(context.Background(), "  ", ""); !faults.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestRegistryCreate_NoRemoteWhenURLEmpty(t *testing.T) {
	runner := &scriptedRunner{responses: provisionScript()}
	r, _ := newTestRegistry(t, runner, Identity{})

	if _, err := r.Create(context.Background(), "demo", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, c := range runner.calls {
		if strings.HasPrefix(c, "remote add") {
			t.Errorf("no URL given, remote must not be configured: %v", runner.calls)
		}
	}
}

func TestRegistryCreate_ProvisionFailureCleansUp(t *testing.T) {
	responses := provisionScript()
	responses["init"] = gitexec.Result{ExitCode: 1, Stderr: "fatal: cannot init"}
	r, projectsRoot := newTestRegistry(t, &scriptedRunner{responses: responses}, Identity{})

	_, err := r.Create(context.Background(), "demo", "")
	if err == nil {
		t.Fatal("expected provisioning failure")
	}

	entries, readErr := os.ReadDir(projectsRoot)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("failed provisioning must leave no directory behind, found %v", entries)
	}
}

func TestRegistryCreate_DefaultIdentity(t *testing.T) {
	runner := &scriptedRunner{responses: provisionScript()}
	r, _ := newTestRegistry(t, runner, Identity{})

	if _, err := r.Create(context.Background(), "demo", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	found := false
	for _, c := range runner.calls {
		if c == "config --local user.name repodeck" {
			found = true
		}
	}
	if !found {
		t.Errorf("zero identity must fall back to the service identity, calls = %v", runner.calls)
	}
}

func TestRegistryDelete_RemovesProvisionedCheckout(t *testing.T) {
	runner := &scriptedRunner{responses: provisionScript()}
	r, projectsRoot := newTestRegistry(t, runner, Identity{})

	p, err := r.Create(context.Background(), "demo", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(p.ID); !faults.IsNotFound(err) {
		t.Errorf("record still present, err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectsRoot, p.ID)); !os.IsNotExist(err) {
		t.Error("provisioned checkout must be removed")
	}
}

func TestRegistryDelete_ReleasesProjectLoggers(t *testing.T) {
	lm := logging.NewTestLogManager(64)
	defer func() { _ = lm.Close() }()

	runner := &scriptedRunner{responses: provisionScript()}
	projectsRoot := t.TempDir()
	r := NewRegistry(openTestDB(t), gitrepo.New(runner, nil), projectsRoot, Identity{}, lm)

	p, err := r.Create(context.Background(), "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	scoped := lm.For("project." + p.ID)

	if err := r.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if lm.For("project."+p.ID) == scoped {
		t.Error("project logger must be evicted when the project is deleted")
	}
}

func TestRegistryDelete_LeavesExternalRepositoryAlone(t *testing.T) {
	db := openTestDB(t)
	projectsRoot := t.TempDir()
	external := t.TempDir()
	r := NewRegistry(db, gitrepo.New(&scriptedRunner{}, nil), projectsRoot, Identity{}, nil)

	if err := db.CreateProject(storeProject("project-ext", external)); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete("project-ext"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(external); err != nil {
		t.Error("repository outside the projects root must survive deletion")
	}
}

func TestRegistryList(t *testing.T) {
	runner := &scriptedRunner{responses: provisionScript()}
	r, _ := newTestRegistry(t, runner, Identity{})

	if _, err := r.Create(context.Background(), "one", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create(context.Background(), "two", ""); err != nil {
		t.Fatal(err)
	}

	projects, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("got %d projects", len(projects))
	}
}
