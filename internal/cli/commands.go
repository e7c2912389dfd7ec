// pattern: Imperative Shell
package cli

import (
	"fmt"
	"os"

	"repodeck/internal/config"
	"repodeck/internal/instance"
)

// ResolveDataDir returns the data directory for lock/port files.
// An explicit override wins; otherwise the configured data dir is used.
func ResolveDataDir(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}
	cfg, _ := config.Load()
	return cfg.ResolveDataDir()
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, dataDir string) *App {
	app := NewApp(version)

	app.AddCommand(&Command{
		Name:    "status",
		Summary: "Output the porcelain status of a project's repository",
		Usage:   "Usage: repodeck status <project-id>",
		Run: func(args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(os.Stderr, "Usage: repodeck status <project-id>")
				os.Exit(1)
			}
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				data, err := c.Status(args[0])
				if err != nil {
					return err
				}
				return PrintJSON(data)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove stale lock/port files from a crashed instance",
		Usage:   "Usage: repodeck cleanup",
		Run: func(args []string) error {
			return runCleanupCommand(dataDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: repodeck version",
		Run: func(args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	repoGroup := app.AddGroup("repo", "Manage local repositories")
	registerRepoCommands(repoGroup, dataDir)

	workspaceGroup := app.AddGroup("workspace", "Manage workspace links")
	registerWorkspaceCommands(workspaceGroup, dataDir)

	return app
}

// registerRepoCommands wires the repo group: catalog listing, cloning and
// clone polling. All commands delegate to the running instance via HTTP.
func registerRepoCommands(group *Group, dataDir string) {
	group.AddCommand(&Command{
		Name:             "list",
		Summary:          "Output JSON data about repositories under the repos root",
		Usage:            "Usage: repodeck repo list",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				data, err := c.ListRepos()
				if err != nil {
					return err
				}
				return PrintJSON(data)
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "clone",
		Summary:          "Start a background clone into the repos root",
		Usage:            "Usage: repodeck repo clone <git-url>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(os.Stderr, "Usage: repodeck repo clone <git-url>")
				os.Exit(1)
			}
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				data, err := c.Clone(args[0])
				if err != nil {
					return err
				}
				return PrintJSON(data)
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "clone-status",
		Summary:          "Poll a background clone task",
		Usage:            "Usage: repodeck repo clone-status <task-id>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(os.Stderr, "Usage: repodeck repo clone-status <task-id>")
				os.Exit(1)
			}
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				data, err := c.CloneTask(args[0])
				if err != nil {
					return err
				}
				return PrintJSON(data)
			})
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:             "delete",
		Summary:          "Remove a repository from the repos root",
		Usage:            "Usage: repodeck repo delete <name>",
		RequiresInstance: true,
		Run: func(args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(os.Stderr, "Usage: repodeck repo delete <name>")
				os.Exit(1)
			}
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				_, err := c.DeleteRepo(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %s.\n", args[0])
				return nil
			})
			return nil
		},
	})
}

// registerWorkspaceCommands wires the workspace group.
func registerWorkspaceCommands(group *Group, dataDir string) {
	group.AddCommand(&Command{
		Name:             "list",
		Summary:          "Output JSON data about workspace links",
		Usage:            "Usage: repodeck workspace list",
		RequiresInstance: true,
		Run: func(args []string) error {
			d := &Delegate{DataDir: dataDir}
			d.Run(func(c *instance.Client) error {
				data, err := c.ListWorkspaces()
				if err != nil {
					return err
				}
				return PrintJSON(data)
			})
			return nil
		},
	})
}

// runCleanupCommand removes stale lock and port files from a crashed instance.
func runCleanupCommand(dataDir string) error {
	dir := ResolveDataDir(dataDir)

	// Try to acquire the lock to verify no instance is actually running
	fl, err := instance.Lock(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: a repodeck instance appears to be running. Stop it first.\n")
		os.Exit(1)
	}
	// We got the lock, so no instance is running. Clean up and release.
	instance.Cleanup(dir, fl)
	fmt.Println("Cleaned up stale lock and port files.")
	return nil
}
