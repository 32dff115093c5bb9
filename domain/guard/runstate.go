package guard

import (
	"sync/atomic"
	"time"
)

// RunState is the advisory "is monitoring running" flag read by the host UI.
// Only Service writes it.
type RunState struct {
	running atomic.Bool
	since   atomic.Int64
}

func (r *RunState) Running() bool { return r.running.Load() }

// Since returns when the current run started, or zero when stopped.
func (r *RunState) Since() time.Time {
	if ns := r.since.Load(); ns != 0 && r.running.Load() {
		return time.Unix(0, ns)
	}
	return time.Time{}
}

func (r *RunState) set(running bool, at time.Time) {
	if running {
		r.since.Store(at.UnixNano())
	} else {
		r.since.Store(0)
	}
	r.running.Store(running)
}
