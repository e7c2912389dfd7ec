// pattern: Imperative Shell

package web

import (
	"net/http"
	"time"

	"repodeck/internal/faults"
	"repodeck/internal/store"
)

// workspaceResponse is the JSON representation of a workspace record.
type workspaceResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	RepoName      string            `json:"repo_name"`
	RepoPath      string            `json:"repo_path"`
	CurrentBranch string            `json:"current_branch"`
	Branches      store.BranchCache `json:"branches"`
	GitURL        string            `json:"git_url,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActiveAt  *time.Time        `json:"last_active_at,omitempty"`
}

func buildWorkspaceResponse(p store.Project) workspaceResponse {
	return workspaceResponse{
		ID:            p.ID,
		Name:          p.Name,
		RepoName:      p.RepoName,
		RepoPath:      p.RepoPath,
		CurrentBranch: p.CurrentBranch,
		Branches:      p.Branches,
		GitURL:        p.GitURL,
		CreatedAt:     p.CreatedAt,
		LastActiveAt:  p.LastActiveAt,
	}
}

// handleListWorkspaces handles GET /api/workspaces.
// Branch snapshots are refreshed from the live repositories.
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	records, err := s.workspaces.ListLinked(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	result := make([]workspaceResponse, 0, len(records))
	for _, p := range records {
		result = append(result, buildWorkspaceResponse(p))
	}
	writeJSON(w, http.StatusOK, result)
}

// linkRequest is the body of a workspace creation request.
type linkRequest struct {
	RepoName string `json:"repo_name"`
	Branch   string `json:"branch"`
	Name     string `json:"name,omitempty"`
}

// handleCreateWorkspace handles POST /api/workspaces.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.RepoName == "" || req.Branch == "" {
		respondError(w, faults.Invalid("repo_name and branch are required"))
		return
	}
	p, err := s.workspaces.Link(r.Context(), req.RepoName, req.Branch, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusCreated, buildWorkspaceResponse(p))
}

// switchBranchRequest is the body of a branch switch request.
type switchBranchRequest struct {
	Branch string `json:"branch"`
}

// handleSwitchBranch handles POST /api/workspaces/{id}/switch-branch.
func (s *Server) handleSwitchBranch(w http.ResponseWriter, r *http.Request) {
	var req switchBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Branch == "" {
		respondError(w, faults.Invalid("branch cannot be empty"))
		return
	}
	p, err := s.workspaces.SwitchBranch(r.Context(), r.PathValue("id"), req.Branch)
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, buildWorkspaceResponse(p))
}

// handleDeleteWorkspace handles DELETE /api/workspaces/{id}.
// Only the record is removed; the repository stays.
func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Unlink(r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
