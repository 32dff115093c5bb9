package alert

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Dispatcher runs functions on the presentation context. Functions
// dispatched from one goroutine run in order and never concurrently.
type Dispatcher interface {
	Dispatch(func())
}

// ImmediateDispatcher runs each function on the caller's goroutine under a
// mutex. Dispatch must not be called from inside a dispatched function.
type ImmediateDispatcher struct {
	mu sync.Mutex
}

func (d *ImmediateDispatcher) Dispatch(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f()
}

// LoopDispatcher owns one goroutine that runs dispatched functions. It is the
// presentation context for hosts without a UI toolkit.
type LoopDispatcher struct {
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan func()
	done   chan struct{}
}

func NewLoopDispatcher(logger *slog.Logger) *LoopDispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &LoopDispatcher{logger: logger, ch: make(chan func(), 64), done: make(chan struct{})}
	go d.loop()
	return d
}

// Dispatch queues f. It is dropped after Close.
func (d *LoopDispatcher) Dispatch(f func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	d.ch <- f
}

// Flush blocks until everything dispatched before it has run.
func (d *LoopDispatcher) Flush() {
	done := make(chan struct{})
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		<-d.done
		return
	}
	d.ch <- func() { close(done) }
	d.mu.RUnlock()
	<-done
}

// Close runs what is queued and stops the goroutine. Idempotent.
func (d *LoopDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *LoopDispatcher) loop() {
	defer close(d.done)
	for f := range d.ch {
		d.run(f)
	}
}

func (d *LoopDispatcher) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher panic", "error", r, "stack", string(debug.Stack()))
		}
	}()
	f()
}
