// pattern: Imperative Shell
package instance

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/flock"
)

const healthTimeout = 2 * time.Second

// Discover finds the running daemon for dataDir and returns its base URL
// (e.g. "http://127.0.0.1:12345"). The lock decides whether a daemon is
// up at all; the port file and a health probe confirm it is reachable.
func Discover(dataDir string) (string, error) {
	fl := flock.New(lockPath(dataDir))
	locked, err := fl.TryLock()
	if err != nil {
		return "", fmt.Errorf("failed to check lock: %w", err)
	}
	if locked {
		// We got the lock, so nothing is running. Give it back.
		_ = fl.Unlock()
		return "", fmt.Errorf("no running repodeck instance found (start repodeck first)")
	}

	addr, err := ReadPort(dataDir)
	if err != nil {
		return "", fmt.Errorf("repodeck instance detected but port file missing (try 'repodeck cleanup'): %w", err)
	}
	if addr == "" {
		return "", fmt.Errorf("repodeck port file is empty (try 'repodeck cleanup')")
	}

	baseURL := "http://" + addr

	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return "", fmt.Errorf("repodeck instance not responding (try 'repodeck cleanup'): %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("repodeck health check failed (status %d)", resp.StatusCode)
	}

	return baseURL, nil
}
