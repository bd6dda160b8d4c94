// Package lockfile keeps two antidup processes from working on the same
// store at once.
//
// The lock is an flock on a file next to the store. The kernel releases it
// when the process exits, gracefully or not.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the name of the lock file created in the lock directory.
const LockFileName = "antidup.lock"

// Lock represents an acquired lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock in dir without blocking. If another
// process holds it, a *LockError describes that process.
func Acquire(dir string) (*Lock, error) {
	lockPath := filepath.Join(dir, LockFileName)
	slog.Debug("acquiring lock", "lock_path", lockPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory %s: %w", dir, err)
	}

	// O_TRUNC would wipe the holder's pid before we know whether we won.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		return nil, &LockError{
			LockPath:     lockPath,
			ExistingInfo: readExistingLockInfo(lockPath),
			Cause:        err,
		}
	}

	if err := file.Truncate(0); err != nil {
		release(file)
		return nil, fmt.Errorf("reset lock file %s: %w", lockPath, err)
	}
	if _, err := file.WriteAt([]byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0); err != nil {
		release(file)
		return nil, fmt.Errorf("write lock file %s: %w", lockPath, err)
	}

	slog.Debug("lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath}, nil
}

// Release drops the lock. The lock file itself stays so that every process
// flocks the same inode. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := release(l.file)
	l.file = nil
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	slog.Debug("lock released", "lock_path", l.path)
	return nil
}

func release(file *os.File) error {
	unlockErr := syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	closeErr := file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// LockError reports that another process holds the lock.
type LockError struct {
	LockPath     string
	ExistingInfo string
	Cause        error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("another antidup process is using this store (lock file %s", e.LockPath)
	if e.ExistingInfo != "" {
		msg += ", " + e.ExistingInfo
	}
	return msg + ")"
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// readExistingLockInfo describes the process recorded in a lock file.
func readExistingLockInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil || len(data) == 0 {
		return ""
	}
	pid := extractPID(string(data))
	if pid <= 0 {
		return ""
	}
	if isProcessRunning(pid) {
		return fmt.Sprintf("held by PID %d", pid)
	}
	return fmt.Sprintf("PID %d is not running", pid)
}

// extractPID parses a "pid=NNNN" line.
func extractPID(content string) int {
	const prefix = "pid="
	idx := strings.Index(content, prefix)
	if idx == -1 {
		return 0
	}
	rest := content[idx+len(prefix):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	pid, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return pid
}

// isProcessRunning sends signal 0 to pid.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
