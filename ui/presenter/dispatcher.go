package presenter

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// QueueDispatcher collects functions from any goroutine and runs them when
// Drain is called on the UI thread. It satisfies alert.Dispatcher.
// The zero value is usable.
type QueueDispatcher struct {
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
}

func NewQueueDispatcher(logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{logger: logger}
}

func (d *QueueDispatcher) Dispatch(f func()) {
	if d == nil || f == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, f)
	d.mu.Unlock()
}

// Drain runs everything queued so far, in order. Functions dispatched while
// draining run on the next Drain.
func (d *QueueDispatcher) Drain() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, f := range batch {
		d.run(f)
	}
	return len(batch)
}

// Pending reports how many functions wait for the next Drain.
func (d *QueueDispatcher) Pending() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *QueueDispatcher) run(f func()) {
	defer func() {
		if r := recover(); r != nil && d.logger != nil {
			d.logger.Error("ui dispatch panic", "error", r, "stack", string(debug.Stack()))
		}
	}()
	f()
}
