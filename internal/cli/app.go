// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// Command is one CLI verb: metadata for help output plus the handler.
// Handlers print their own errors and call os.Exit with the right code,
// so Execute never inspects the returned error.
type Command struct {
	Name             string
	Summary          string
	Usage            string
	RequiresInstance bool
	Run              func(args []string) error
}

// Group bundles related commands under one noun, like "repo" or
// "workspace".
type Group struct {
	Name     string
	Summary  string
	Commands map[string]*Command
}

// App is the command tree. Groups and top-level commands are listed in
// help output in registration order.
type App struct {
	groups     map[string]*Group
	groupOrder []string
	commands   map[string]*Command
	cmdOrder   []string
	version    string
}

// NewApp creates an empty command tree.
func NewApp(version string) *App {
	return &App{
		groups:   make(map[string]*Group),
		commands: make(map[string]*Command),
		version:  version,
	}
}

// AddGroup registers a command group and returns it for population.
func (a *App) AddGroup(name, summary string) *Group {
	g := &Group{
		Name:     name,
		Summary:  summary,
		Commands: make(map[string]*Command),
	}
	a.groups[name] = g
	a.groupOrder = append(a.groupOrder, name)
	return g
}

// AddCommand registers a top-level command.
func (a *App) AddCommand(cmd *Command) {
	a.commands[cmd.Name] = cmd
	a.cmdOrder = append(a.cmdOrder, cmd.Name)
}

// AddCommand registers a command in the group.
func (g *Group) AddCommand(cmd *Command) {
	g.Commands[cmd.Name] = cmd
}

// Execute dispatches args. It reports whether the caller should start
// the daemon: true only for an empty invocation.
func (a *App) Execute(args []string) bool {
	if len(args) == 0 {
		return true
	}

	if cmd, ok := a.commands[args[0]]; ok {
		_ = cmd.Run(args[1:])
		return false
	}

	if group, ok := a.groups[args[0]]; ok {
		a.dispatchGroup(group, args[1:])
		return false
	}

	a.PrintHelp(os.Stderr)
	os.Exit(1)
	return false
}

// dispatchGroup resolves the subcommand within a group, handling the
// help forms before any command runs.
func (a *App) dispatchGroup(group *Group, args []string) {
	if len(args) == 0 || isHelpArg(args[0]) {
		group.PrintHelp(os.Stderr)
		return
	}

	cmd, ok := group.Commands[args[0]]
	if !ok {
		group.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	rest := args[1:]
	for _, arg := range rest {
		if arg == "--help" || arg == "-h" {
			fmt.Fprintf(os.Stderr, "%s\n", cmd.Usage)
			return
		}
	}
	_ = cmd.Run(rest)
}

func isHelpArg(arg string) bool {
	return arg == "help" || arg == "--help" || arg == "-h"
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: repodeck [options] [command]\n\n")
	fmt.Fprintf(w, "Commands:\n")

	for _, name := range a.cmdOrder {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "(none)", "Run the server")

	if len(a.groupOrder) > 0 {
		fmt.Fprintf(w, "\nCommand Groups (requires running instance):\n")
		for _, name := range a.groupOrder {
			group := a.groups[name]
			fmt.Fprintf(w, "  %-10s %s\n", group.Name, group.Summary)
		}
	}

	fmt.Fprintf(w, "\nUse \"repodeck <group> help\" for group details.\n\n")
	fmt.Fprintf(w, "Options:\n")
}

// PrintHelp prints help for a specific group, commands sorted by name.
func (g *Group) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: repodeck %s <command>\n\n", g.Name)
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range slices.Sorted(maps.Keys(g.Commands)) {
		cmd := g.Commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nUse \"repodeck %s <command> --help\" for command details.\n", g.Name)
}
