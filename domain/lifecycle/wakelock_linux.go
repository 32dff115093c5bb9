//go:build linux

package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Kernel wakelock interface (CONFIG_PM_WAKELOCKS, always present on Android).
// Writing "name timeout_ns" to wake_lock takes a lock the kernel drops on its
// own after the timeout; writing "name" to wake_unlock releases it.
const (
	sysfsWakeLock   = "/sys/power/wake_lock"
	sysfsWakeUnlock = "/sys/power/wake_unlock"
)

type sysfsInhibitor struct {
	tag        string
	lockPath   string
	unlockPath string
}

func newPlatformInhibitor(tag string) inhibitor {
	return &sysfsInhibitor{tag: tag, lockPath: sysfsWakeLock, unlockPath: sysfsWakeUnlock}
}

func (s *sysfsInhibitor) inhibit(timeout time.Duration) error {
	return writeSysfs(s.lockPath, fmt.Sprintf("%s %d", s.tag, timeout.Nanoseconds()))
}

func (s *sysfsInhibitor) uninhibit() error {
	return writeSysfs(s.unlockPath, s.tag)
}

func writeSysfs(path, value string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return ErrWakeLockUnsupported
		}
		return fmt.Errorf("lifecycle: open %s: %w", path, err)
	}
	defer unix.Close(fd)
	if _, err := unix.Write(fd, []byte(value)); err != nil {
		return fmt.Errorf("lifecycle: write %s: %w", path, err)
	}
	return nil
}
