//go:build !linux && !windows

package lifecycle

import "time"

// unsupportedInhibitor reports ErrWakeLockUnsupported; the service keeps
// running without a wake lock on these platforms.
type unsupportedInhibitor struct{}

func newPlatformInhibitor(string) inhibitor { return unsupportedInhibitor{} }

func (unsupportedInhibitor) inhibit(time.Duration) error { return ErrWakeLockUnsupported }
func (unsupportedInhibitor) uninhibit() error            { return nil }
