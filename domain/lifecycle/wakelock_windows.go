//go:build windows

package lifecycle

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

const (
	esSystemRequired = 0x00000001
	esContinuous     = 0x80000000
)

var (
	kernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadExecutionState = kernel32.NewProc("SetThreadExecutionState")
)

// executionStateInhibitor holds ES_SYSTEM_REQUIRED on a dedicated OS thread.
// The execution state belongs to the calling thread, so the goroutine stays
// locked to it until uninhibit.
type executionStateInhibitor struct {
	mu      sync.Mutex
	release chan struct{}
	done    chan struct{}
}

func newPlatformInhibitor(string) inhibitor { return &executionStateInhibitor{} }

func (e *executionStateInhibitor) inhibit(time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.release != nil {
		return nil
	}
	release := make(chan struct{})
	done := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		r, _, err := procSetThreadExecutionState.Call(uintptr(esContinuous | esSystemRequired))
		if r == 0 {
			result <- fmt.Errorf("lifecycle: SetThreadExecutionState: %w", err)
			return
		}
		result <- nil
		<-release
		procSetThreadExecutionState.Call(uintptr(esContinuous))
	}()
	if err := <-result; err != nil {
		return err
	}
	e.release, e.done = release, done
	return nil
}

func (e *executionStateInhibitor) uninhibit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.release == nil {
		return nil
	}
	close(e.release)
	<-e.done
	e.release, e.done = nil, nil
	return nil
}
