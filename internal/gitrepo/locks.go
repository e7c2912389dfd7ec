// pattern: Imperative Shell

package gitrepo

import "sync"

// pathLocks serializes multi-command sequences against the same repository
// path. Git's own index lock protects a single command, but a sequence that
// must be observed atomically (probe-then-discard, stage-then-commit,
// remote relink) needs an advisory guard on top.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for path and returns the release function.
func (p *pathLocks) acquire(path string) func() {
	p.mu.Lock()
	m, ok := p.locks[path]
	if !ok {
		m = &sync.Mutex{}
		p.locks[path] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
