// Package capture models a still-capture device as a state machine driven
// entirely from one lifecycle worker. Drivers plug in below the controller;
// the detection scheduler sits above it.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

// Config selects the device and the default output pipeline.
type Config struct {
	Facing Facing
	Output OutputSpec
}

// Controller owns the single capture session. Every exported method posts
// onto the executor; results arrive through the done callbacks, which run on
// the executor as well. State and Stats are safe to read from anywhere.
type Controller struct {
	driver Driver
	exec   lifecycle.Executor
	cfg    Config
	logger *slog.Logger

	// Confined to exec.
	state            State
	gen              uint64
	device           Device
	session          Session
	target           *OutputTarget
	pendingOpen      func(error)
	pendingConfigure func(error)
	pendingCapture   func(Frame, error)
	listeners        []TransitionListener
	seq              uint64

	published       atomic.Int32
	opens           atomic.Uint64
	captures        atomic.Uint64
	busy            atomic.Uint64
	captureFailures atomic.Uint64
	deviceErrors    atomic.Uint64
	handles         atomic.Int64
	lastCapture     atomic.Int64
}

// NewController binds driver to exec. The controller must not be used after
// exec stops accepting work except for State and Stats.
func NewController(driver Driver, exec lifecycle.Executor, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.Output = cfg.Output.normalized()
	return &Controller{driver: driver, exec: exec, cfg: cfg, logger: logger}
}

// State returns the last published state.
func (c *Controller) State() State { return State(c.published.Load()) }

// Stats returns a snapshot of the activity counters.
func (c *Controller) Stats() Stats {
	s := Stats{
		Opens:           c.opens.Load(),
		Captures:        c.captures.Load(),
		BusyRejections:  c.busy.Load(),
		CaptureFailures: c.captureFailures.Load(),
		DeviceErrors:    c.deviceErrors.Load(),
		HandlesOpen:     c.handles.Load(),
	}
	if ns := c.lastCapture.Load(); ns != 0 {
		s.LastCapture = time.Unix(0, ns)
	}
	return s
}

// AddListener registers l for future transitions.
func (c *Controller) AddListener(l TransitionListener) {
	if l == nil {
		return
	}
	c.exec.Post(func() { c.listeners = append(c.listeners, l) })
}

// Open selects the device matching the configured facing and opens it.
// done receives nil once the device is Open.
func (c *Controller) Open(done func(error)) {
	done = orNoop(done)
	if !c.exec.Post(func() { c.open(done) }) {
		done(ErrControllerStopped)
	}
}

// Configure builds the single-image session for spec. Zero spec fields fall
// back to the controller's configured output.
func (c *Controller) Configure(spec OutputSpec, done func(error)) {
	done = orNoop(done)
	if !c.exec.Post(func() { c.configure(spec, done) }) {
		done(ErrControllerStopped)
	}
}

// CaptureOne requests one still frame. The caller owns the delivered frame
// and must Release it.
func (c *Controller) CaptureOne(done func(Frame, error)) {
	if done == nil {
		done = func(f Frame, _ error) { f.Release() }
	}
	if !c.exec.Post(func() { c.captureOne(done) }) {
		done(Frame{}, ErrControllerStopped)
	}
}

// Close releases everything the session holds and returns to Idle.
func (c *Controller) Close(done func()) {
	if done == nil {
		done = func() {}
	}
	if !c.exec.Post(func() { c.close(); done() }) {
		done()
	}
}

func (c *Controller) open(done func(error)) {
	if c.state != StateIdle && c.state != StateError {
		done(fmt.Errorf("%w: %s", ErrSessionActive, c.state))
		return
	}
	c.gen++
	c.transition(StateOpening, nil)
	c.pendingOpen = done

	devices, err := c.driver.Devices()
	if err != nil {
		c.fail(fmt.Errorf("capture: enumerate devices: %w", err))
		return
	}
	var chosen *DeviceInfo
	for i := range devices {
		if devices[i].Facing == c.cfg.Facing {
			chosen = &devices[i]
			break
		}
	}
	if chosen == nil {
		c.fail(fmt.Errorf("%w: facing %s among %d devices", ErrNoMatchingDevice, c.cfg.Facing, len(devices)))
		return
	}
	c.logger.Debug("capture.open", "device", chosen.ID, "name", chosen.Name, "facing", chosen.Facing.String())
	if err := c.driver.Open(chosen.ID, c.sink(c.gen)); err != nil {
		c.fail(fmt.Errorf("capture: open %s: %w", chosen.ID, err))
	}
}

func (c *Controller) configure(spec OutputSpec, done func(error)) {
	if c.state != StateOpen {
		done(fmt.Errorf("%w: configure in %s", ErrInvalidState, c.state))
		return
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		spec = c.cfg.Output
	}
	spec = spec.normalized()
	c.target = NewOutputTarget(spec)
	c.transition(StateConfiguring, nil)
	c.pendingConfigure = done
	if err := c.device.CreateSession(c.target, c.sink(c.gen)); err != nil {
		c.fail(fmt.Errorf("%w: %w", ErrSessionConfigure, err))
	}
}

func (c *Controller) captureOne(done func(Frame, error)) {
	switch c.state {
	case StateCapturing:
		c.busy.Add(1)
		done(Frame{}, ErrSessionBusy)
		return
	case StateReady:
	default:
		done(Frame{}, fmt.Errorf("%w: %s", ErrSessionNotReady, c.state))
		return
	}
	c.transition(StateCapturing, nil)
	c.pendingCapture = done
	if err := c.session.Capture(c.target, c.sink(c.gen)); err != nil {
		c.captureFailures.Add(1)
		c.fail(fmt.Errorf("capture: request: %w", err))
	}
}

func (c *Controller) close() {
	if c.state == StateIdle {
		return
	}
	c.transition(StateClosing, nil)
	c.release()
	c.finishPending(ErrSessionClosed)
	c.transition(StateIdle, nil)
}

// sink returns the driver callback for generation gen. Events are re-posted
// onto the worker; if the worker is gone, any handle carried by the event is
// closed on the spot.
func (c *Controller) sink(gen uint64) EventSink {
	return func(ev Event) {
		if !c.exec.Post(func() { c.handle(gen, ev) }) {
			c.discard(ev)
		}
	}
}

func (c *Controller) handle(gen uint64, ev Event) {
	if gen != c.gen {
		c.logger.Debug("capture.event.stale", "event", fmt.Sprintf("%T", ev), "gen", gen, "current", c.gen)
		c.discard(ev)
		return
	}
	switch e := ev.(type) {
	case EventOpened:
		if c.state != StateOpening {
			c.discard(ev)
			return
		}
		c.device = e.Device
		c.handles.Add(1)
		c.opens.Add(1)
		c.transition(StateOpen, nil)
		if done := c.pendingOpen; done != nil {
			c.pendingOpen = nil
			done(nil)
		}
	case EventDisconnected:
		c.fail(ErrDeviceDisconnected)
	case EventDeviceError:
		c.deviceErrors.Add(1)
		c.fail(fmt.Errorf("capture: device error: %w", e.Err))
	case EventConfigured:
		if c.state != StateConfiguring {
			c.discard(ev)
			return
		}
		c.session = e.Session
		c.transition(StateReady, nil)
		if done := c.pendingConfigure; done != nil {
			c.pendingConfigure = nil
			done(nil)
		}
	case EventConfigureFailed:
		if c.state == StateConfiguring {
			c.fail(fmt.Errorf("%w: %w", ErrSessionConfigure, e.Err))
		}
	case EventCaptureCompleted:
		if c.state != StateCapturing {
			return
		}
		done := c.pendingCapture
		c.pendingCapture = nil
		frame, ok := c.target.Acquire()
		c.transition(StateReady, nil)
		if !ok {
			c.captureFailures.Add(1)
			callCapture(done, Frame{}, errors.New("capture: completed without an image"))
			return
		}
		c.seq++
		frame.Sequence = c.seq
		frame.TraceID = uuid.NewString()
		if frame.DeviceID == "" && c.device != nil {
			frame.DeviceID = c.device.Info().ID
		}
		if frame.CapturedAt.IsZero() {
			frame.CapturedAt = time.Now()
		}
		c.captures.Add(1)
		c.lastCapture.Store(frame.CapturedAt.UnixNano())
		if done == nil {
			frame.Release()
			return
		}
		done(frame, nil)
	case EventCaptureFailed:
		if c.state != StateCapturing {
			return
		}
		c.captureFailures.Add(1)
		err := classify(e.Err)
		if errors.Is(err, ErrPermissionRevoked) {
			c.fail(err)
			return
		}
		done := c.pendingCapture
		c.pendingCapture = nil
		c.transition(StateReady, err)
		callCapture(done, Frame{}, err)
	}
}

// fail releases every handle, enters Error and completes pending callbacks
// with err.
func (c *Controller) fail(err error) {
	err = classify(err)
	c.logger.Warn("capture.fail", "state", c.state.String(), "error", err)
	c.release()
	c.transition(StateError, err)
	c.finishPending(err)
}

// release closes session, target and device and invalidates outstanding
// driver callbacks.
func (c *Controller) release() {
	c.gen++
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("capture.session.close", "error", err)
		}
		c.session = nil
	}
	if c.target != nil {
		c.target.Close()
		c.target = nil
	}
	if c.device != nil {
		if err := c.device.Close(); err != nil {
			c.logger.Warn("capture.device.close", "error", err)
		}
		c.device = nil
		c.handles.Add(-1)
	}
}

func (c *Controller) finishPending(err error) {
	if done := c.pendingOpen; done != nil {
		c.pendingOpen = nil
		done(err)
	}
	if done := c.pendingConfigure; done != nil {
		c.pendingConfigure = nil
		done(err)
	}
	if done := c.pendingCapture; done != nil {
		c.pendingCapture = nil
		done(Frame{}, err)
	}
}

// discard closes handles carried by events nobody will consume.
func (c *Controller) discard(ev Event) {
	switch e := ev.(type) {
	case EventOpened:
		if e.Device != nil {
			_ = e.Device.Close()
		}
	case EventConfigured:
		if e.Session != nil {
			_ = e.Session.Close()
		}
	}
}

func (c *Controller) transition(next State, err error) {
	prev := c.state
	if prev == next && err == nil {
		return
	}
	c.state = next
	c.published.Store(int32(next))
	if err != nil {
		c.logger.Debug("capture.transition", "from", prev.String(), "to", next.String(), "error", err)
	} else {
		c.logger.Debug("capture.transition", "from", prev.String(), "to", next.String())
	}
	tr := Transition{From: prev, To: next, Err: err}
	for _, l := range c.listeners {
		l(tr)
	}
}

func callCapture(done func(Frame, error), f Frame, err error) {
	if done != nil {
		done(f, err)
		return
	}
	f.Release()
}

func orNoop(done func(error)) func(error) {
	if done == nil {
		return func(error) {}
	}
	return done
}
