// Package runlock provides a cross-process exclusive lock so that only one bulk reindex
// runs against a data directory at a time.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrHeld is returned by TryLock when another process or goroutine holds the lock.
var ErrHeld = errors.New("reindex already running")

// FileName is the lock file created in the data directory.
const FileName = ".reindex.lock"

// Lock is an exclusive lock backed by a file.
type Lock struct {
	path  string
	flock *flock.Flock

	mu     sync.Mutex
	locked bool
}

// New returns a lock on <dir>/.reindex.lock.
func New(dir string) *Lock {
	path := filepath.Join(dir, FileName)
	return &Lock{path: path, flock: flock.New(path)}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// TryLock acquires the lock without blocking. It returns ErrHeld when the lock is taken.
func (l *Lock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return ErrHeld
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Unlocking an unlocked Lock is a no-op.
func (l *Lock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
