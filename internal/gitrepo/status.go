// pattern: Functional Core

package gitrepo

import "strings"

// FileStatus is one entry of a porcelain status listing. Index and Worktree
// are the two porcelain state columns. Untracked entries carry the synthetic
// code "U" so clients can tell them apart from modified/added/deleted.
type FileStatus struct {
	Path     string `json:"path"`
	Code     string `json:"status"`
	Index    string `json:"index"`
	Worktree string `json:"worktree"`
	Staged   bool   `json:"staged"`
}

// Status aggregates a working tree's file states. It is derived fresh on
// every call: the tree can change under us from processes outside this
// service, so nothing here is ever cached across requests.
type Status struct {
	Modified  []FileStatus `json:"modified"`
	Staged    []FileStatus `json:"staged"`
	Untracked []FileStatus `json:"untracked"`
}

// HasChanges reports whether any set is non-empty.
func (s Status) HasChanges() bool {
	return len(s.Modified) > 0 || len(s.Staged) > 0 || len(s.Untracked) > 0
}

const untrackedCode = "U"

// ParseStatus turns `git status --porcelain` output into a Status.
//
// The first two characters of each line are the index and worktree columns;
// everything from column four is the path. A rename keeps only the
// destination of the `old -> new` arrow. Classification:
//
//   - '?' in the worktree column means untracked, regardless of the index.
//   - A/M/D/R/C in the index column means the file has staged changes.
//   - M/D in the worktree column means unstaged modifications.
//
// A file may legitimately appear in both the staged and modified sets
// (partially staged). Blank or malformed lines are skipped without error:
// porcelain is stable, but forward compatibility beats strictness here.
//
// All three sets start empty rather than nil, so a clean tree serializes
// as [] and clients never see null.
func ParseStatus(porcelain string) Status {
	st := Status{
		Modified:  []FileStatus{},
		Staged:    []FileStatus{},
		Untracked: []FileStatus{},
	}

	for _, line := range strings.Split(porcelain, "\n") {
		if len(line) < 4 || strings.TrimSpace(line) == "" {
			continue
		}

		index := line[0]
		worktree := line[1]
		path := line[3:]

		// Renames report "old -> new"; only the destination survives.
		if _, after, found := strings.Cut(path, " -> "); found {
			path = after
		}

		if worktree == '?' {
			st.Untracked = append(st.Untracked, FileStatus{
				Path:     path,
				Code:     untrackedCode,
				Index:    string(index),
				Worktree: string(worktree),
				Staged:   false,
			})
			continue
		}

		if isStagedCode(index) {
			st.Staged = append(st.Staged, FileStatus{
				Path:     path,
				Code:     string(index),
				Index:    string(index),
				Worktree: string(worktree),
				Staged:   true,
			})
		}

		if worktree == 'M' || worktree == 'D' {
			st.Modified = append(st.Modified, FileStatus{
				Path:     path,
				Code:     string(worktree),
				Index:    string(index),
				Worktree: string(worktree),
				Staged:   false,
			})
		}
	}

	return st
}

func isStagedCode(c byte) bool {
	switch c {
	case 'A', 'M', 'D', 'R', 'C':
		return true
	}
	return false
}
