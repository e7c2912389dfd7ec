// pattern: Imperative Shell

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"repodeck/internal/faults"
	"repodeck/internal/gitrepo"
	"repodeck/internal/logging"
)

// validNameRe matches valid repository names: alphanumeric start, then
// alphanumeric, dots, underscores, hyphens.
var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateName checks if a repository name is safe to join onto the
// repos root. Names must start with an alphanumeric character and may
// not contain path separators or "..".
func ValidateName(name string) error {
	if name == "" {
		return faults.Invalid("repository name cannot be empty")
	}
	if len(name) > 200 {
		return faults.Invalid("repository name too long (max 200 characters)")
	}
	if !validNameRe.MatchString(name) {
		return faults.Invalid("invalid repository name %q: must start with alphanumeric, may contain a-z A-Z 0-9 . _ -", name)
	}
	if strings.Contains(name, "..") {
		return faults.Invalid("repository name cannot contain '..'")
	}
	return nil
}

// Entry is one repository found under the repos root.
type Entry struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	IsRepo        bool     `json:"is_git"`
	CurrentBranch string   `json:"current_branch,omitempty"`
	RemoteURL     string   `json:"remote_url,omitempty"`
	Branches      []string `json:"branches,omitempty"`
	ModifiedAt    int64    `json:"modified_at"`
}

// Catalog lists repositories under a single root directory.
type Catalog struct {
	root   string
	git    *gitrepo.Ops
	logger *logging.ScopedLogger
}

// New creates a catalog over root, inspecting entries with git.
func New(root string, git *gitrepo.Ops, logger *logging.ScopedLogger) *Catalog {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Catalog{root: root, git: git, logger: logger}
}

// Root returns the repos root directory.
func (c *Catalog) Root() string {
	return c.root
}

// RepoPath resolves name to a directory under the repos root. It
// validates the name and requires the directory to exist.
func (c *Catalog) RepoPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(c.root, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", faults.NotFound("repository", name)
	}
	return path, nil
}

// List scans the repos root one level deep and returns every
// directory, newest modification first. Hidden directories are
// skipped. Inaccessible entries are logged and omitted.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(c.root, de.Name())
		entry := Entry{Name: de.Name(), Path: path}

		if info, err := de.Info(); err == nil {
			entry.ModifiedAt = info.ModTime().Unix()
		}

		if gitrepo.IsRepo(path) {
			entry.IsRepo = true
			repoInfo, err := c.git.Inspect(ctx, path)
			if err != nil {
				c.logger.Warn("repository inspection failed", "repo", de.Name(), "error", err)
			} else {
				entry.CurrentBranch = repoInfo.CurrentBranch
				entry.RemoteURL = repoInfo.RemoteURL
				entry.Branches = repoInfo.Branches
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModifiedAt != entries[j].ModifiedAt {
			return entries[i].ModifiedAt > entries[j].ModifiedAt
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Delete removes a repository directory from the repos root.
func (c *Catalog) Delete(name string) error {
	path, err := c.RepoPath(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}
