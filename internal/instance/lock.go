// pattern: Imperative Shell
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// The data dir carries two coordination files: an exclusive flock that
// enforces a single daemon, and a port file recording where the daemon's
// API listens so CLI invocations can find it.
const (
	lockFileName = "repodeck.lock"
	portFileName = "repodeck.port"
)

func lockPath(dataDir string) string {
	return filepath.Join(dataDir, lockFileName)
}

func portPath(dataDir string) string {
	return filepath.Join(dataDir, portFileName)
}

// Lock acquires the single-instance lock for dataDir. The caller keeps
// the returned handle for the daemon's lifetime and releases it through
// Cleanup. A held lock means another daemon owns this data dir.
func Lock(dataDir string) (*flock.Flock, error) {
	fl := flock.New(lockPath(dataDir))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another repodeck instance is already running")
	}
	return fl, nil
}

// WritePort records the API listener address for discovery.
func WritePort(dataDir, addr string) error {
	return os.WriteFile(portPath(dataDir), []byte(addr), 0600)
}

// ReadPort returns the recorded listener address, trimmed.
func ReadPort(dataDir string) (string, error) {
	data, err := os.ReadFile(portPath(dataDir))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Cleanup removes the port file and releases the lock. Runs on daemon
// shutdown and from the cleanup command after a crash.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(portPath(dataDir))
	if fl != nil {
		_ = fl.Unlock()
	}
}
