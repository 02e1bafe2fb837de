package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout is how long to wait for a running install to finish
const DefaultLockTimeout = 10 * time.Second

// LockFileName is created in the keg home while an install runs
const LockFileName = "install.lock"

// acquireLock takes the exclusive install lock in home.
// Returns the lock (caller must unlock) or an error if another install holds it.
func acquireLock(ctx context.Context, home string, timeout time.Duration) (*flock.Flock, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(home, LockFileName))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("another install is running in %s: %w", home, err)
	}

	if !locked {
		return nil, fmt.Errorf("timeout waiting for install lock in %s", home)
	}

	return lock, nil
}
