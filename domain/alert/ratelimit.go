package alert

import (
	"sync"
	"time"
)

const (
	DefaultWindow    = 60 * time.Second
	DefaultMaxAlerts = 10
)

// RateLimiter caps alerts per window. The window resets once more than
// Window has passed since it opened; counts are not decremented in between,
// so a burst straddling a reset can reach twice the cap.
type RateLimiter struct {
	window time.Duration
	max    int

	mu          sync.Mutex
	windowStart time.Time
	count       int
	allowed     uint64
	denied      uint64
}

// WindowState is a snapshot of the limiter.
type WindowState struct {
	Start   time.Time
	Count   int
	Max     int
	Window  time.Duration
	Allowed uint64
	Denied  uint64
}

// NewRateLimiter returns a limiter; non-positive arguments use the defaults.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxAlerts
	}
	return &RateLimiter{window: window, max: max}
}

// Allow reports whether an alert at now may be shown and counts it if so.
// Callers pass non-decreasing timestamps.
func (r *RateLimiter) Allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) > r.window {
		r.windowStart = now
		r.count = 0
	}
	if r.count < r.max {
		r.count++
		r.allowed++
		return true
	}
	r.denied++
	return false
}

func (r *RateLimiter) State() WindowState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return WindowState{Start: r.windowStart, Count: r.count, Max: r.max, Window: r.window, Allowed: r.allowed, Denied: r.denied}
}
