// pattern: Imperative Shell

package web

import (
	"net/http"
	"time"

	"repodeck/internal/store"
)

// projectResponse is the JSON representation of a project record.
type projectResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	RepoPath      string            `json:"repo_path,omitempty"`
	CurrentBranch string            `json:"current_branch"`
	Branches      store.BranchCache `json:"branches"`
	GitURL        string            `json:"git_url,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActiveAt  *time.Time        `json:"last_active_at,omitempty"`
}

func buildProjectResponse(p store.Project) projectResponse {
	return projectResponse{
		ID:            p.ID,
		Name:          p.Name,
		RepoPath:      p.RepoPath,
		CurrentBranch: p.CurrentBranch,
		Branches:      p.Branches,
		GitURL:        p.GitURL,
		CreatedAt:     p.CreatedAt,
		LastActiveAt:  p.LastActiveAt,
	}
}

// handleListProjects handles GET /api/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.List()
	if err != nil {
		respondError(w, err)
		return
	}
	result := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		result = append(result, buildProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, result)
}

// createProjectRequest is the body of a project creation request.
type createProjectRequest struct {
	Name   string `json:"name"`
	GitURL string `json:"git_url,omitempty"`
}

// handleCreateProject handles POST /api/projects.
// Provisions a fresh repository with an initial commit on main.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	p, err := s.registry.Create(r.Context(), req.Name, req.GitURL)
	if err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusCreated, buildProjectResponse(p))
}

// handleGetProject handles GET /api/projects/{id}.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildProjectResponse(p))
}

// handleDeleteProject handles DELETE /api/projects/{id}.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	s.events.Notify()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
