package capture

import (
	"fmt"
	"sync"
)

// OutputTarget is the bounded image buffer a session writes into. It holds
// at most Spec().MaxImages frames.
type OutputTarget struct {
	spec OutputSpec

	mu     sync.Mutex
	frames []Frame
	closed bool
}

// NewOutputTarget allocates a target for spec. MaxImages below one is
// treated as one.
func NewOutputTarget(spec OutputSpec) *OutputTarget {
	if spec.MaxImages < 1 {
		spec.MaxImages = 1
	}
	return &OutputTarget{spec: spec}
}

func (t *OutputTarget) Spec() OutputSpec { return t.spec }

// Write stores f. The target does not take ownership on error; the caller
// must release the frame.
func (t *OutputTarget) Write(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTargetClosed
	}
	if len(t.frames) >= t.spec.MaxImages {
		return fmt.Errorf("%w: %d buffered", ErrTargetFull, len(t.frames))
	}
	t.frames = append(t.frames, f)
	return nil
}

// Acquire removes and returns the oldest buffered frame.
func (t *OutputTarget) Acquire() (Frame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return Frame{}, false
	}
	f := t.frames[0]
	t.frames[0] = Frame{}
	t.frames = t.frames[1:]
	return f, true
}

// Buffered returns the number of frames waiting to be acquired.
func (t *OutputTarget) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// Close drops any buffered frames back into the pool. Idempotent.
func (t *OutputTarget) Close() {
	t.mu.Lock()
	frames := t.frames
	t.frames = nil
	t.closed = true
	t.mu.Unlock()
	for _, f := range frames {
		f.Release()
	}
}
