// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"repodeck/internal/catalog"
	"repodeck/internal/clone"
	"repodeck/internal/gitrepo"
	"repodeck/internal/logging"
	"repodeck/internal/project"
	"repodeck/internal/store"
)

// Server is the web server that serves the JSON API.
type Server struct {
	httpServer *http.Server
	logger     *logging.ScopedLogger
	addr       string
	listener   net.Listener
	events     *eventBroker
	logs       *logBroker

	db         *store.DB
	git        *gitrepo.Ops
	resolver   *project.Resolver
	registry   *project.Registry
	workspaces *project.Workspaces
	repos      *catalog.Catalog
	clones     *clone.Manager
}

// Config holds web server configuration.
type Config struct {
	Bind string
	Port int
}

// Deps carries the collaborators the server needs. All fields are
// required except LogEntries.
type Deps struct {
	Store      *store.DB
	Git        *gitrepo.Ops
	Resolver   *project.Resolver
	Registry   *project.Registry
	Workspaces *project.Workspaces
	Repos      *catalog.Catalog
	Clones     *clone.Manager
	// LogEntries, when set, feeds the /api/logs/stream endpoint.
	LogEntries <-chan logging.LogEntry
}

// New creates a web server.
// logProvider must implement logging.LoggerProvider (both *logging.Manager
// and *logging.TestLogManager satisfy this interface).
func New(cfg Config, deps Deps, logProvider logging.LoggerProvider) *Server {
	logger := logProvider.For("web")
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		addr:       addr,
		events:     newEventBroker(),
		logs:       newLogBroker(),
		db:         deps.Store,
		git:        deps.Git,
		resolver:   deps.Resolver,
		registry:   deps.Registry,
		workspaces: deps.Workspaces,
		repos:      deps.Repos,
		clones:     deps.Clones,
	}

	if deps.LogEntries != nil {
		go s.logs.Pump(deps.LogEntries)
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/logs/stream", s.handleLogStream)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	mux.HandleFunc("GET /api/projects/{id}/git/status", s.handleGitStatus)
	mux.HandleFunc("GET /api/projects/{id}/git/diff", s.handleGitDiff)
	mux.HandleFunc("GET /api/projects/{id}/git/history", s.handleGitHistory)
	mux.HandleFunc("POST /api/projects/{id}/git/stage", s.handleGitStage)
	mux.HandleFunc("POST /api/projects/{id}/git/unstage", s.handleGitUnstage)
	mux.HandleFunc("POST /api/projects/{id}/git/discard", s.handleGitDiscard)
	mux.HandleFunc("POST /api/projects/{id}/git/stage-all", s.handleGitStageAll)
	mux.HandleFunc("POST /api/projects/{id}/git/unstage-all", s.handleGitUnstageAll)
	mux.HandleFunc("POST /api/projects/{id}/git/commit", s.handleGitCommit)
	mux.HandleFunc("POST /api/projects/{id}/git/push", s.handleGitPush)
	mux.HandleFunc("GET /api/projects/{id}/git/commits/{sha}/diff", s.handleGitCommitDiff)
	mux.HandleFunc("POST /api/projects/{id}/git/commits/{sha}/revert", s.handleGitRevert)
	mux.HandleFunc("GET /api/projects/{id}/git/watch", s.handleGitWatch)

	mux.HandleFunc("GET /api/repos", s.handleListRepos)
	mux.HandleFunc("GET /api/repos/{name}/branches", s.handleRepoBranches)
	mux.HandleFunc("POST /api/repos/{name}/fetch", s.handleRepoFetch)
	mux.HandleFunc("POST /api/repos/{name}/checkout", s.handleRepoCheckout)
	mux.HandleFunc("DELETE /api/repos/{name}", s.handleDeleteRepo)
	mux.HandleFunc("POST /api/repos/clone", s.handleCloneStart)
	// Clone tasks live outside /api/repos/{name}: a wildcard sibling of
	// the literal "clone" segment would make the patterns ambiguous and
	// ServeMux rejects ambiguous registrations.
	mux.HandleFunc("GET /api/clone-tasks/{taskID}", s.handleCloneTask)

	mux.HandleFunc("GET /api/workspaces", s.handleListWorkspaces)
	mux.HandleFunc("POST /api/workspaces", s.handleCreateWorkspace)
	mux.HandleFunc("POST /api/workspaces/{id}/switch-branch", s.handleSwitchBranch)
	mux.HandleFunc("DELETE /api/workspaces/{id}", s.handleDeleteWorkspace)

	return s
}

// Notify signals SSE subscribers that repository state changed.
// External watchers (fsnotify) call this alongside the mutation handlers.
func (s *Server) Notify() {
	s.events.Notify()
}

// Listen binds the server to its configured address and returns the listener.
// Call Serve() after Listen() to start accepting connections.
// This two-step approach allows callers to obtain the actual bound address
// (useful for ephemeral port 0 in tests) before the server blocks on Serve().
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on the listener. Blocks until the server stops.
// Must call Listen() first.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web server started", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Start is a convenience that calls Listen() then Serve(). Blocks until the server stops.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the address the server is listening on.
// Only valid after Listen() or Start() has been called.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("web server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
