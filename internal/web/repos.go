// pattern: Imperative Shell

package web

import (
	"net/http"
	"time"

	"repodeck/internal/faults"
	"repodeck/internal/store"
)

// handleListRepos handles GET /api/repos.
// Returns the repository catalog, newest modification first.
func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	entries, err := s.repos.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRepoBranches handles GET /api/repos/{name}/branches.
func (s *Server) handleRepoBranches(w http.ResponseWriter, r *http.Request) {
	path, err := s.repos.RepoPath(r.PathValue("name"))
	if err != nil {
		respondError(w, err)
		return
	}
	branches, err := s.git.ListBranches(r.Context(), path)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"branches": branches,
		"current":  s.git.CurrentBranch(r.Context(), path),
	})
}

// handleRepoFetch handles POST /api/repos/{name}/fetch.
func (s *Server) handleRepoFetch(w http.ResponseWriter, r *http.Request) {
	path, err := s.repos.RepoPath(r.PathValue("name"))
	if err != nil {
		respondError(w, err)
		return
	}
	output, err := s.git.Fetch(r.Context(), path, "origin")
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]string{"output": output})
}

// checkoutRequest is the body of a repo checkout request.
type checkoutRequest struct {
	Branch string `json:"branch"`
}

// handleRepoCheckout handles POST /api/repos/{name}/checkout.
// Creates a tracking branch from origin when the branch is not local yet.
func (s *Server) handleRepoCheckout(w http.ResponseWriter, r *http.Request) {
	path, err := s.repos.RepoPath(r.PathValue("name"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Branch == "" {
		respondError(w, faults.Invalid("branch cannot be empty"))
		return
	}
	output, err := s.git.Checkout(r.Context(), path, req.Branch)
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]string{"branch": req.Branch, "output": output})
}

// handleDeleteRepo handles DELETE /api/repos/{name}.
func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Delete(r.PathValue("name")); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// cloneRequest is the body of a clone request.
type cloneRequest struct {
	GitURL string `json:"git_url"`
}

// cloneTaskResponse is the JSON representation of a clone task record.
type cloneTaskResponse struct {
	TaskID     string     `json:"task_id"`
	GitURL     string     `json:"git_url"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func buildCloneTaskResponse(t store.CloneTask) cloneTaskResponse {
	return cloneTaskResponse{
		TaskID:     t.ID,
		GitURL:     t.GitURL,
		Status:     string(t.Status),
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
		FinishedAt: t.FinishedAt,
	}
}

// handleCloneStart handles POST /api/repos/clone.
// The clone runs in the background; the response carries the task id to
// poll via GET /api/clone-tasks/{taskID}.
func (s *Server) handleCloneStart(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	task, err := s.clones.Start(r.Context(), req.GitURL)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, buildCloneTaskResponse(task))
}

// handleCloneTask handles GET /api/clone-tasks/{taskID}.
func (s *Server) handleCloneTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.clones.Task(r.PathValue("taskID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildCloneTaskResponse(task))
}
