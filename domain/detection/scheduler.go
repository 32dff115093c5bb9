// Package detection runs the periodic sensing loop: capture a frame, hand it
// to a Detector, forward confident positives.
package detection

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/clock"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

// Capturer is the part of capture.Controller the scheduler drives.
type Capturer interface {
	State() capture.State
	Open(done func(error))
	Configure(spec capture.OutputSpec, done func(error))
	CaptureOne(done func(capture.Frame, error))
	Close(done func())
}

var _ Capturer = (*capture.Controller)(nil)

// Config tunes the loop. Zero fields take DefaultConfig values.
type Config struct {
	Interval  time.Duration
	Threshold float64
	Output    capture.OutputSpec
}

func DefaultConfig() Config {
	return Config{Interval: 2 * time.Second, Threshold: 0.7, Output: capture.DefaultOutputSpec()}
}

// Stats counts scheduler activity.
type Stats struct {
	Ticks     uint64
	Skipped   uint64
	Busy      uint64
	Analyzed  uint64
	Positives uint64
	Discarded uint64
	Errors    uint64
}

// Scheduler ticks every Interval, measured from one tick's capture-or-skip
// decision to the next tick. Ticks and capture completions run on the
// executor. A single active flag plus a generation counter cancel stale
// work: anything scheduled before the latest Stop is ignored.
type Scheduler struct {
	ctrl     Capturer
	exec     lifecycle.Executor
	clk      clock.Clock
	detector Detector
	sink     Sink
	cfg      Config
	logger   *slog.Logger

	onFault func(error)

	active atomic.Bool
	gen    atomic.Uint64

	mu    sync.Mutex
	timer clock.Timer

	ticks, skipped, busy, analyzed, positives, discarded, errs atomic.Uint64
}

// NewScheduler wires the loop. The controller must be bound to exec.
func NewScheduler(ctrl Capturer, exec lifecycle.Executor, clk clock.Clock, det Detector, sink Sink, cfg Config, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		cfg.Output = def.Output
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{ctrl: ctrl, exec: exec, clk: clk, detector: det, sink: sink, cfg: cfg, logger: logger}
}

// OnFault registers the handler for unrecoverable failures (permission
// revoked). It runs on the executor. Set before Start.
func (s *Scheduler) OnFault(fn func(error)) { s.onFault = fn }

// Active reports whether the loop is running.
func (s *Scheduler) Active() bool { return s.active.Load() }

// Start opens and configures the device and schedules the first tick one
// interval out. It returns false if already active.
func (s *Scheduler) Start() bool {
	if !s.active.CompareAndSwap(false, true) {
		return false
	}
	gen := s.gen.Add(1)
	s.logger.Info("scheduler.start", "interval", s.cfg.Interval, "threshold", s.cfg.Threshold)
	s.ctrl.Open(func(err error) {
		if !s.current(gen) {
			return
		}
		if err != nil {
			s.deviceError("open", err)
			return
		}
		s.ctrl.Configure(s.cfg.Output, func(err error) {
			if err != nil {
				s.deviceError("configure", err)
			}
		})
	})
	s.schedule(gen)
	return true
}

// Stop prevents new ticks, cancels the pending timer and closes the device.
// A capture already in flight completes but its result is dropped. It
// returns false if the scheduler was not active.
func (s *Scheduler) Stop() bool {
	if !s.active.CompareAndSwap(true, false) {
		return false
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.ctrl.Close(nil)
	s.logger.Info("scheduler.stop")
	return true
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:     s.ticks.Load(),
		Skipped:   s.skipped.Load(),
		Busy:      s.busy.Load(),
		Analyzed:  s.analyzed.Load(),
		Positives: s.positives.Load(),
		Discarded: s.discarded.Load(),
		Errors:    s.errs.Load(),
	}
}

func (s *Scheduler) current(gen uint64) bool {
	return s.active.Load() && s.gen.Load() == gen
}

func (s *Scheduler) schedule(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return
	}
	s.timer = s.clk.AfterFunc(s.cfg.Interval, func() {
		if !s.exec.Post(func() { s.tick(gen) }) {
			s.logger.Debug("scheduler.tick.dropped", "reason", "executor stopped")
		}
	})
}

func (s *Scheduler) tick(gen uint64) {
	if !s.current(gen) {
		return
	}
	s.ticks.Add(1)
	switch st := s.ctrl.State(); st {
	case capture.StateReady, capture.StateCapturing:
		s.ctrl.CaptureOne(func(f capture.Frame, err error) { s.complete(gen, f, err) })
	default:
		s.skipped.Add(1)
		s.logger.Debug("scheduler.tick.skip", "state", st.String())
	}
	s.schedule(gen)
}

func (s *Scheduler) complete(gen uint64, f capture.Frame, err error) {
	if !s.current(gen) {
		f.Release()
		s.discarded.Add(1)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrSessionBusy):
			s.busy.Add(1)
		case errors.Is(err, capture.ErrPermissionRevoked):
			s.errs.Add(1)
			s.fault(err)
		default:
			s.errs.Add(1)
			s.logger.Warn("scheduler.capture", "error", err)
		}
		return
	}
	defer f.Release()
	v := s.detector.Analyze(f)
	s.analyzed.Add(1)
	if !v.Positive || v.Confidence < s.cfg.Threshold {
		return
	}
	// Stop may have landed while Analyze ran.
	if !s.current(gen) {
		s.discarded.Add(1)
		return
	}
	s.positives.Add(1)
	t := Tick{Timestamp: s.clk.Now(), Frame: f, Verdict: v, TraceID: f.TraceID}
	s.logger.Info("scheduler.detection", "confidence", v.Confidence, "trace", t.TraceID)
	s.sink.OnDetection(t)
}

func (s *Scheduler) deviceError(op string, err error) {
	s.errs.Add(1)
	s.logger.Warn("scheduler.device", "op", op, "error", err)
	if errors.Is(err, capture.ErrPermissionRevoked) {
		s.fault(err)
	}
}

func (s *Scheduler) fault(err error) {
	if s.onFault != nil {
		s.onFault(err)
	}
}
