// pattern: Imperative Shell

package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"repodeck/internal/logging"
)

// debounceWindow coalesces filesystem event bursts (a clone touches
// thousands of paths) into one notification.
const debounceWindow = 500 * time.Millisecond

// Watcher observes the repos root and invokes notify when repositories
// appear, disappear or change, so connected clients can re-fetch.
type Watcher struct {
	root    string
	notify  func()
	watcher *fsnotify.Watcher
	logger  *logging.ScopedLogger
}

// NewWatcher creates a watcher over root calling notify on changes.
func NewWatcher(root string, notify func(), logger *logging.ScopedLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{root: root, notify: notify, watcher: fw, logger: logger}, nil
}

// Start begins watching. It returns when the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create repos root: %w", err)
	}
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch repos root: %w", err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if isHidden(event.Name) {
				continue
			}
			// Debounce: restart the window on every event.
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.notify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("repos watcher error", "error", err)
		}
	}
}

func isHidden(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	return strings.HasPrefix(base, ".")
}
