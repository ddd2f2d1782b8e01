package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// writerLockName is the sentinel file that marks a storage directory as
// owned by an active writer. It is adapted from the teacher's orphan
// detection idiom (pkg/queue/orphan.go's stale-heartbeat check): instead
// of a DB row's last_interaction_at, the liveness signal here is whether
// the PID recorded in the lock file still exists.
const writerLockName = ".writer.lock"

// AcquireLock claims the storage directory for the calling process. It
// returns ErrConcurrentWriter if the directory is already locked by a live
// process. A lock left behind by a process that no longer exists is
// treated as stale and reclaimed automatically.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, resumelog.NewIOError(fmt.Sprintf("creating storage dir: %v", err))
	}
	path := filepath.Join(dir, writerLockName)

	if pid, ok := readLockPID(path); ok && processAlive(pid) {
		return nil, resumelog.ErrConcurrentWriter
	}

	pid := os.Getpid()
	content := fmt.Sprintf("%d\n%s\n", pid, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, resumelog.NewIOError(fmt.Sprintf("writing writer lock: %v", err))
	}

	return &Lock{path: path}, nil
}

// Lock is held for the lifetime of a single synthesis/persist operation.
type Lock struct {
	path string
}

// Release removes the lock file. Safe to call on an already-removed lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return resumelog.NewIOError(fmt.Sprintf("releasing writer lock: %v", err))
	}
	return nil
}

func readLockPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// processAlive probes liveness with signal 0, the standard POSIX idiom for
// checking a PID exists without affecting it. This engine assumes a POSIX
// filesystem (atomic rename) already, so this does not add a new platform
// constraint.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
