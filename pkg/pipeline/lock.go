package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another provisioning run holds the lock.
var ErrLocked = errors.New("another provisioning run is in progress")

// Lock is an exclusive run lock backed by a PID file.
//
// Two concurrent pipeline runs against the same host would interleave
// mutations with no coordination, so the pipeline takes this lock before
// executing. A lock file whose recorded PID is no longer alive is treated
// as stale and reclaimed.
type Lock struct {
	path string
}

// NewLock returns a Lock at dir/stackup.lock.
func NewLock(dir string) *Lock {
	return &Lock{path: filepath.Join(dir, "stackup.lock")}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock, reclaiming a stale lock if its holder is gone.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(l.path)
				return fmt.Errorf("failed to write lock file: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		pid, perr := l.holder()
		if perr == nil && processAlive(pid) {
			return fmt.Errorf("%w (pid %d, lock %s)", ErrLocked, pid, l.path)
		}

		// Holder is gone or the file is mangled: reclaim and retry once.
		if rerr := os.Remove(l.path); rerr != nil && !os.IsNotExist(rerr) {
			return fmt.Errorf("failed to remove stale lock: %w", rerr)
		}
	}

	return fmt.Errorf("%w (lock %s)", ErrLocked, l.path)
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *Lock) holder() (int, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 probes existence without delivering anything.
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
