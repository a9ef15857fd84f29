// Package lock serializes access to an instrument resource across
// processes. A lock file keyed by the resource identifier guards
// against two acquisitions driving the same instrument at once.
package lock

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/smuctl/internal/errors"
)

var errFactory = errors.New()

// Lock is a held resource lock.
type Lock struct {
	path string
}

// Acquire takes the lock for a resource identifier, refusing while a
// live process holds it. Lock files left behind by dead processes are
// reclaimed.
func Acquire(resource string) (*Lock, error) {
	path := lockPath(resource)

	if current, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(current)))
		if err == nil && processAlive(pid) {
			return nil, errFactory.WithData(errors.ErrResourceBusy, resource)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Releasing an already released lock
// is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(l.path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}

func lockPath(resource string) string {
	sum := fnv.New32a()
	sum.Write([]byte(resource))

	return filepath.Join(os.TempDir(), fmt.Sprintf("smuctl-%08x.lock", sum.Sum32()))
}
