// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"repodeck/internal/instance"
)

// Exit codes for delegated commands. A missing daemon is distinguishable
// from a command that reached the daemon and failed.
const (
	exitCommandFailed = 1
	exitNoInstance    = 2
)

// Delegate finds the running daemon and forwards one CLI command to it
// over HTTP. Fields default to production values; tests override ExitFunc
// and Stderr to observe behavior without killing the test process.
type Delegate struct {
	// DataDir locates the lock and port files. Empty means the default
	// data directory.
	DataDir string

	// ExitFunc exits the process. Defaults to os.Exit.
	ExitFunc func(int)

	// Stderr receives error messages. Defaults to os.Stderr.
	Stderr io.Writer

	// ClientTimeout bounds each HTTP request. Defaults to 10 seconds;
	// raise it for commands that wait on the network, like starting a
	// clone.
	ClientTimeout time.Duration
}

func (d *Delegate) applyDefaults() {
	if d.ExitFunc == nil {
		d.ExitFunc = os.Exit
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.ClientTimeout == 0 {
		d.ClientTimeout = 10 * time.Second
	}
}

// discover locates the running daemon and returns a client for it. On
// failure it reports, exits with the classified code, and returns nil.
func (d *Delegate) discover() *instance.Client {
	d.applyDefaults()

	baseURL, err := instance.Discover(ResolveDataDir(d.DataDir))
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %v\n", err)
		if strings.Contains(err.Error(), "no running repodeck instance found") {
			d.ExitFunc(exitNoInstance)
		} else {
			d.ExitFunc(exitCommandFailed)
		}
		return nil
	}
	return instance.NewClientWithTimeout(baseURL, d.ClientTimeout)
}

// Run forwards one command: it discovers the daemon, invokes fn with a
// client for it, and turns any error into a message plus exit code 1.
// Server errors arrive as "repodeck returned status <code>: <message>";
// only the message part is shown to the user.
func (d *Delegate) Run(fn func(*instance.Client) error) {
	client := d.discover()
	if client == nil {
		return
	}

	if err := fn(client); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "repodeck returned status") {
			if _, after, found := strings.Cut(msg, ": "); found {
				msg = after
			}
		}
		fmt.Fprintf(d.Stderr, "error: %s\n", msg)
		d.ExitFunc(exitCommandFailed)
	}
}

// Client returns a client for the running daemon, or nil after reporting
// and exiting when none is found.
func (d *Delegate) Client() *instance.Client {
	return d.discover()
}

// PrintJSON writes an API response to stdout. On a terminal the JSON is
// re-indented for reading; piped output stays byte-for-byte what the
// daemon sent.
func PrintJSON(data []byte) error {
	fi, _ := os.Stdout.Stat()
	if fi.Mode()&os.ModeCharDevice == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}

	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		_, err := os.Stdout.Write(data)
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(obj)
}
