// Package lifecycle owns the resources that tie the sensing engine to the
// host: a bounded wake lock and the single sequential worker on which every
// capture-device operation and callback runs.
package lifecycle

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Config tunes the manager. Zero fields fall back to DefaultConfig values.
type Config struct {
	WorkerName       string
	WakeLockDuration time.Duration
	JoinTimeout      time.Duration
}

// DefaultConfig mirrors the service defaults: a ten minute wake lock and a
// three second bounded join.
func DefaultConfig() Config {
	return Config{
		WorkerName:       "capture-worker",
		WakeLockDuration: 10 * time.Minute,
		JoinTimeout:      3 * time.Second,
	}
}

// Manager creates and destroys the worker and holds the wake lock between
// Start and Stop. It is the only component allowed to create a Worker.
type Manager struct {
	cfg    Config
	lock   WakeLock
	logger *slog.Logger

	mu     sync.Mutex
	worker *Worker
}

// NewManager builds a manager around lock, which may be nil on hosts that
// have nothing to keep awake.
func NewManager(cfg Config, lock WakeLock, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.WorkerName == "" {
		cfg.WorkerName = def.WorkerName
	}
	if cfg.WakeLockDuration <= 0 {
		cfg.WakeLockDuration = def.WakeLockDuration
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = def.JoinTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{cfg: cfg, lock: lock, logger: logger}
}

// Start acquires the wake lock and creates the worker. Calling Start while
// running returns the existing worker. A wake lock failure is logged and does
// not prevent the worker from starting.
func (m *Manager) Start() *Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker != nil {
		return m.worker
	}
	if m.lock != nil {
		switch err := m.lock.Acquire(m.cfg.WakeLockDuration); {
		case errors.Is(err, ErrWakeLockUnsupported):
			m.logger.Info("wakelock.unavailable")
		case err != nil:
			m.logger.Error("wakelock.acquire", "error", err)
		default:
			m.logger.Debug("wakelock.acquired", "duration", m.cfg.WakeLockDuration)
		}
	}
	m.worker = newWorker(m.cfg.WorkerName, m.logger)
	return m.worker
}

// Worker returns the running worker or nil.
func (m *Manager) Worker() *Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker
}

// WakeLockHeld reports whether the wake lock is currently held.
func (m *Manager) WakeLockHeld() bool {
	return m.lock != nil && m.lock.Held()
}

// Stop drains and joins the worker (bounded by JoinTimeout), then releases
// the wake lock. A join timeout is logged and returned, but teardown always
// completes. Stop is a no-op when not started.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker == nil {
		return nil
	}
	err := m.worker.Stop(m.cfg.JoinTimeout)
	if err != nil {
		m.logger.Warn("worker.stop", "error", err)
	}
	m.worker = nil
	if m.lock != nil && m.lock.Held() {
		if relErr := m.lock.Release(); relErr != nil {
			m.logger.Error("wakelock.release", "error", relErr)
		}
	}
	return err
}
