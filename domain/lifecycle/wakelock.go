package lifecycle

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/peekerguard-go/domain/clock"
)

// ErrWakeLockUnsupported is returned by Acquire when the platform has no
// mechanism to keep the host awake. Callers treat it as non-fatal.
var ErrWakeLockUnsupported = errors.New("lifecycle: wake lock unsupported on this host")

// WakeLock keeps the host from suspending while held. Acquire takes a bounded
// duration after which the lock lapses on its own; Release is idempotent.
type WakeLock interface {
	Acquire(timeout time.Duration) error
	Release() error
	Held() bool
}

// inhibitor is the platform primitive behind a WakeLock.
type inhibitor interface {
	inhibit(timeout time.Duration) error
	uninhibit() error
}

// NewWakeLock returns the platform wake lock registered under tag.
func NewWakeLock(tag string, clk clock.Clock, logger *slog.Logger) WakeLock {
	return newTimedLock(newPlatformInhibitor(tag), clk, logger)
}

// timedLock turns a platform inhibitor into a WakeLock that expires after the
// duration given to Acquire even if Release is never called.
type timedLock struct {
	backend inhibitor
	clock   clock.Clock
	logger  *slog.Logger

	mu     sync.Mutex
	held   bool
	epoch  uint64
	expiry clock.Timer
}

func newTimedLock(backend inhibitor, clk clock.Clock, logger *slog.Logger) *timedLock {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &timedLock{backend: backend, clock: clk, logger: logger}
}

// Acquire takes the lock, or extends the deadline when already held.
func (l *timedLock) Acquire(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.backend.inhibit(timeout); err != nil {
		return err
	}
	if l.expiry != nil {
		l.expiry.Stop()
	}
	l.held = true
	l.epoch++
	epoch := l.epoch
	l.expiry = l.clock.AfterFunc(timeout, func() { l.expire(epoch) })
	return nil
}

func (l *timedLock) expire(epoch uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || l.epoch != epoch {
		return
	}
	l.held = false
	l.expiry = nil
	if err := l.backend.uninhibit(); err != nil {
		l.logger.Error("wakelock.expire", "error", err)
		return
	}
	l.logger.Info("wakelock.expired")
}

func (l *timedLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false
	if l.expiry != nil {
		l.expiry.Stop()
		l.expiry = nil
	}
	return l.backend.uninhibit()
}

func (l *timedLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
