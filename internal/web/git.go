// pattern: Imperative Shell

package web

import (
	"context"
	"net/http"
	"strconv"

	"repodeck/internal/faults"
	"repodeck/internal/gitrepo"
)

// resolveRepo maps the {id} path value to a repository directory.
func (s *Server) resolveRepo(w http.ResponseWriter, r *http.Request) (string, bool) {
	repo, err := s.resolver.Resolve(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return "", false
	}
	return repo, true
}

// statusResponse is the full status payload: the porcelain file sets plus
// the live branch and remote view, so one call answers both "what changed"
// and "where am I relative to the remote".
type statusResponse struct {
	gitrepo.Status
	CurrentBranch string `json:"current_branch"`
	RemoteURL     string `json:"remote_url"`
	Ahead         int    `json:"ahead"`
	Behind        int    `json:"behind"`
	HasChanges    bool   `json:"has_changes"`
	LastCommit    string `json:"last_commit,omitempty"`
}

// handleGitStatus handles GET /api/projects/{id}/git/status.
// Returns the porcelain-derived file sets, never a cached view.
func (s *Server) handleGitStatus(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	status, err := s.git.Status(r.Context(), repo)
	if err != nil {
		respondError(w, err)
		return
	}
	info, err := s.git.Inspect(r.Context(), repo)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        status,
		CurrentBranch: info.CurrentBranch,
		RemoteURL:     info.RemoteURL,
		Ahead:         info.Ahead,
		Behind:        info.Behind,
		HasChanges:    status.HasChanges(),
		LastCommit:    info.LastCommit,
	})
}

// handleGitDiff handles GET /api/projects/{id}/git/diff?file=&staged=.
func (s *Server) handleGitDiff(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	file := r.URL.Query().Get("file")
	if file == "" {
		respondError(w, faults.Invalid("file query parameter is required"))
		return
	}
	staged := r.URL.Query().Get("staged") == "true"
	diff, err := s.git.Diff(r.Context(), repo, file, staged)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": file, "diff": diff})
}

// handleGitHistory handles GET /api/projects/{id}/git/history?limit=.
func (s *Server) handleGitHistory(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, faults.Invalid("invalid limit %q", raw))
			return
		}
		limit = n
	}
	commits, err := s.git.History(r.Context(), repo, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

// fileListRequest is the body of stage/unstage/discard requests.
type fileListRequest struct {
	Files []string `json:"files"`
}

// handleGitStage handles POST /api/projects/{id}/git/stage.
func (s *Server) handleGitStage(w http.ResponseWriter, r *http.Request) {
	s.forEachFile(w, r, s.git.Stage)
}

// handleGitUnstage handles POST /api/projects/{id}/git/unstage.
func (s *Server) handleGitUnstage(w http.ResponseWriter, r *http.Request) {
	s.forEachFile(w, r, s.git.Unstage)
}

// handleGitDiscard handles POST /api/projects/{id}/git/discard.
// Tracked files are restored from HEAD; untracked files are removed.
func (s *Server) handleGitDiscard(w http.ResponseWriter, r *http.Request) {
	s.forEachFile(w, r, s.git.Discard)
}

// forEachFile applies op to every file in the request body, stopping at
// the first failure. Prior files stay applied: git has no multi-file
// transaction to roll back to.
func (s *Server) forEachFile(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, repo, file string) error) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	var req fileListRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.Files) == 0 {
		respondError(w, faults.Invalid("files cannot be empty"))
		return
	}
	for _, file := range req.Files {
		if err := op(r.Context(), repo, file); err != nil {
			respondError(w, err)
			return
		}
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleGitStageAll handles POST /api/projects/{id}/git/stage-all.
func (s *Server) handleGitStageAll(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	if err := s.git.StageAll(r.Context(), repo); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleGitUnstageAll handles POST /api/projects/{id}/git/unstage-all.
func (s *Server) handleGitUnstageAll(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	if err := s.git.UnstageAll(r.Context(), repo); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// commitRequest is the body of a commit request. With Files set, only
// those paths are staged and committed; without, everything is.
type commitRequest struct {
	Message string   `json:"message"`
	Files   []string `json:"files,omitempty"`
}

// handleGitCommit handles POST /api/projects/{id}/git/commit.
func (s *Server) handleGitCommit(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	var req commitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Message == "" {
		respondError(w, faults.Invalid("commit message cannot be empty"))
		return
	}

	var (
		sha string
		err error
	)
	if len(req.Files) > 0 {
		sha, err = s.git.CommitFiles(r.Context(), repo, req.Files, req.Message)
	} else {
		sha, err = s.git.CommitAll(r.Context(), repo, req.Message)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]string{
		"commit_hash": sha,
		"message":     req.Message,
	})
}

// pushRequest is the body of a push request. Both fields are optional:
// remote defaults to origin, branch to the currently checked out one.
type pushRequest struct {
	Remote string `json:"remote,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// handleGitPush handles POST /api/projects/{id}/git/push.
func (s *Server) handleGitPush(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	var req pushRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}
	if req.Remote == "" {
		req.Remote = "origin"
	}
	if req.Branch == "" {
		req.Branch = s.git.CurrentBranch(r.Context(), repo)
	}

	result, err := s.git.Push(r.Context(), repo, req.Remote, req.Branch)
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, result)
}

// handleGitCommitDiff handles GET /api/projects/{id}/git/commits/{sha}/diff.
func (s *Server) handleGitCommitDiff(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	sha := r.PathValue("sha")
	diff, err := s.git.CommitDiff(r.Context(), repo, sha)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"commit_sha": sha, "diff": diff})
}

// handleGitRevert handles POST /api/projects/{id}/git/commits/{sha}/revert.
// Hard-resets the working tree to the given commit.
func (s *Server) handleGitRevert(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.resolveRepo(w, r)
	if !ok {
		return
	}
	if err := s.git.HardReset(r.Context(), repo, r.PathValue("sha")); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
