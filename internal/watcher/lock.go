package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyWatching is returned by AcquireLock when another process holds
// the lock for the same project.
var ErrAlreadyWatching = errors.New("another watch is already running for this project")

// Lock keeps a single watch process per project.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock file at path without blocking, creating its
// directory when needed.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyWatching, path)
	}
	return &Lock{lock: fl}, nil
}

// Release frees the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	return err
}
