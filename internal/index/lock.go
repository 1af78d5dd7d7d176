package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// LockFileName is the lock file created inside the data directory.
const LockFileName = ".amanvoice.lock"

// DataDirLock is a cross-process lock on a data directory, so two processes
// never write the same vector store.
type DataDirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataDirLock creates an unlocked lock for dataDir.
func NewDataDirLock(dataDir string) *DataDirLock {
	lockPath := filepath.Join(dataDir, LockFileName)
	return &DataDirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock blocks until the lock is acquired.
func (l *DataDirLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock acquires the lock without blocking. A lock held elsewhere returns
// an ERR_204_INDEX_LOCKED error.
func (l *DataDirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return amanerrors.New(amanerrors.ErrCodeIndexLocked, "index is locked by another process", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other amanvoice process (watch or serve) and retry")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *DataDirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DataDirLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *DataDirLock) IsLocked() bool {
	return l.locked
}
