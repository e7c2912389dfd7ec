// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"repodeck/internal/catalog"
	"repodeck/internal/cli"
	"repodeck/internal/clone"
	"repodeck/internal/config"
	"repodeck/internal/gitexec"
	"repodeck/internal/gitrepo"
	"repodeck/internal/instance"
	"repodeck/internal/logging"
	"repodeck/internal/project"
	"repodeck/internal/store"
	"repodeck/internal/web"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configPath := flag.StringP("config", "c", "", "config file (default: ~/.config/repodeck/config.yaml)")
	dataDir := flag.StringP("data-dir", "d", "", "data directory (default: ~/.local/share/repodeck)")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, *dataDir)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	app := cli.BuildApp(version, *dataDir)
	if app.Execute(flag.Args()) {
		runServer(*configPath, *dataDir)
	}
}

// loadConfig loads the configuration from the specified path or default location.
func loadConfig(configPath string) (config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// runServer starts the HTTP service and blocks until interrupted.
func runServer(configPath, dataDirFlag string) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}

	dataDir := cfg.ResolveDataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Acquire single-instance lock
	fl, err := instance.Lock(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer instance.Cleanup(dataDir, fl)

	logManager, err := logging.NewManager(logging.Config{
		FilePath:   filepath.Join(dataDir, "repodeck.log"),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Level:      cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("application starting", "version", version)

	db, err := store.Open(filepath.Join(dataDir, "repodeck.db"), logManager.For("store"))
	if err != nil {
		appLogger.Error("database open failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := gitexec.NewGitRunner(cfg.GitTimeout(), logManager.For("git"))
	git := gitrepo.New(runner, logManager.For("git"))

	reposRoot := cfg.ResolveReposRoot()
	projectsRoot := cfg.ResolveProjectsRoot()
	repos := catalog.New(reposRoot, git, logManager.For("catalog"))
	resolver := project.NewResolver(db, projectsRoot)
	registry := project.NewRegistry(db, git, projectsRoot,
		project.Identity{Name: cfg.Git.UserName, Email: cfg.Git.UserEmail},
		logManager)
	workspaces := project.NewWorkspaces(db, repos, git, logManager.For("workspace"))
	clones := clone.NewManager(db, runner, reposRoot, cfg.CloneTimeout(), logManager.For("clone"))

	webServer := web.New(
		web.Config{Bind: cfg.Web.Bind, Port: cfg.Web.Port},
		web.Deps{
			Store:      db,
			Git:        git,
			Resolver:   resolver,
			Registry:   registry,
			Workspaces: workspaces,
			Repos:      repos,
			Clones:     clones,
			LogEntries: logManager.Entries(),
		},
		logManager,
	)
	ln, err := webServer.Listen()
	if err != nil {
		appLogger.Error("web server listen error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Write port file for CLI discovery
	if err := instance.WritePort(dataDir, webServer.Addr()); err != nil {
		appLogger.Error("failed to write port file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watch the repos root so connected clients see external changes.
	watcher, err := catalog.NewWatcher(reposRoot, webServer.Notify, logManager.For("watcher"))
	if err != nil {
		appLogger.Warn("repos watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
				appLogger.Warn("repos watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := webServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			appLogger.Error("web server error", "error", err)
		}
	}()

	fmt.Printf("repodeck listening on http://%s\n", webServer.Addr())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("web server shutdown error", "error", err)
	}

	// Let in-flight clones reach a terminal task state.
	clones.Wait()

	appLogger.Info("application stopped")
}
