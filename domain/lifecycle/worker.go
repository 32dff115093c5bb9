package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrWorkerShutdownTimeout is returned by Stop when the worker goroutine has
// not exited within the join timeout. The goroutine is abandoned, not killed.
var ErrWorkerShutdownTimeout = errors.New("lifecycle: worker shutdown timeout")

// Executor accepts work for sequential execution. Post returns false once the
// executor has stopped accepting work.
type Executor interface {
	Post(task func()) bool
}

// Worker is a single goroutine executing posted tasks in FIFO order. The
// queue is unbounded so a task may post follow-up work to its own worker
// without blocking.
type Worker struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	queue    []func()
	stopping bool

	wake chan struct{}
	done chan struct{}
}

func newWorker(name string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Worker{
		name:   name,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

// Post enqueues task. It returns false, dropping the task, after Stop.
func (w *Worker) Post(task func()) bool {
	if w == nil || task == nil {
		return false
	}
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, task)
	w.mu.Unlock()
	w.signal()
	return true
}

// Pending returns the number of queued tasks not yet started.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Stop rejects new work, lets already queued tasks run, and waits up to
// timeout for the goroutine to exit. Safe to call more than once.
func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	w.stopping = true
	w.mu.Unlock()
	w.signal()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.done:
		return nil
	case <-t.C:
		w.logger.Warn("worker.join.timeout", "worker", w.name, "timeout", timeout, "pending", w.Pending())
		return fmt.Errorf("%w: %s after %s", ErrWorkerShutdownTimeout, w.name, timeout)
	}
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			stopping := w.stopping
			w.mu.Unlock()
			if stopping {
				w.logger.Debug("worker.exit", "worker", w.name)
				return
			}
			<-w.wake
			continue
		}
		task := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.run(task)
	}
}

func (w *Worker) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker task panic", "worker", w.name, "error", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
