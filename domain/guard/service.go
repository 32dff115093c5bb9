// Package guard is the sensing service: it ties the lifecycle manager, the
// capture controller, the detection scheduler and the alert path together
// behind Start, Stop and Status.
package guard

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/peekerguard-go/domain/alert"
	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/clock"
	"github.com/soocke/peekerguard-go/domain/detection"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

const (
	IndicatorTitle = "PeekerGuard Active"
	IndicatorText  = "Monitoring for unauthorized screen viewing"

	StatusPermissionsRequired = "permissions required"
	StatusActive              = "monitoring active"
	StatusInactive            = "monitoring inactive"
)

// Indicator is the persistent "running in background" notice.
type Indicator interface {
	Show(title, text string) error
	Hide() error
}

// Config gathers the tunables of every component.
type Config struct {
	Lifecycle     lifecycle.Config
	Capture       capture.Config
	Detection     detection.Config
	AlertWindow   time.Duration
	MaxAlerts     int
	AlertDuration time.Duration
	AlertMessage  string
}

func DefaultConfig() Config {
	return Config{
		Lifecycle:     lifecycle.DefaultConfig(),
		Capture:       capture.Config{Facing: capture.FacingFront, Output: capture.DefaultOutputSpec()},
		Detection:     detection.DefaultConfig(),
		AlertWindow:   alert.DefaultWindow,
		MaxAlerts:     alert.DefaultMaxAlerts,
		AlertDuration: alert.DefaultDuration,
		AlertMessage:  alert.DefaultMessage,
	}
}

// Deps are the collaborators supplied by the host. Driver and Detector are
// required; everything else has a usable default.
type Deps struct {
	Driver      capture.Driver
	Detector    detection.Detector
	Surface     alert.Surface
	Dispatcher  alert.Dispatcher
	Indicator   Indicator
	Permissions PermissionChecker
	WakeLock    lifecycle.WakeLock
	Clock       clock.Clock
	RunState    *RunState
	Logger      *slog.Logger
}

// Status is what the host shows to the user.
type Status struct {
	Running        bool
	Since          time.Time
	LastAlert      time.Time
	CaptureGranted bool
	OverlayGranted bool
	DeviceState    capture.State
	Message        string
	WakeLockHeld   bool
	AlertsShown    uint64
	RateLimited    uint64
	Capture        capture.Stats
	Detection      detection.Stats
	LastFault      error
}

type run struct {
	id    uint64
	ctrl  *capture.Controller
	sched *detection.Scheduler
}

// Service owns one monitoring run at a time. Start and Stop are safe to
// call from any goroutine except the capture worker.
type Service struct {
	cfg       Config
	deps      Deps
	logger    *slog.Logger
	clk       clock.Clock
	state     *RunState
	resources *lifecycle.Manager
	limiter   *alert.RateLimiter
	presenter *alert.Presenter

	mu   sync.Mutex
	runs uint64

	current     atomic.Pointer[run]
	last        atomic.Pointer[run]
	lastAlert   atomic.Int64
	rateLimited atomic.Uint64
	fault       atomic.Pointer[error]
}

func NewService(cfg Config, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.RunState == nil {
		deps.RunState = &RunState{}
	}
	if deps.Surface == nil {
		deps.Surface = logSurface{deps.Logger}
	}
	if deps.Indicator == nil {
		deps.Indicator = logIndicator{deps.Logger}
	}
	if cfg.AlertMessage == "" {
		cfg.AlertMessage = alert.DefaultMessage
	}
	logger := deps.Logger
	return &Service{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		clk:       deps.Clock,
		state:     deps.RunState,
		resources: lifecycle.NewManager(cfg.Lifecycle, deps.WakeLock, logger.With("component", "lifecycle")),
		limiter:   alert.NewRateLimiter(cfg.AlertWindow, cfg.MaxAlerts),
		presenter: alert.NewPresenter(deps.Surface, deps.Dispatcher, deps.Clock, cfg.AlertDuration, logger.With("component", "alert")),
	}
}

// RunState exposes the advisory running flag.
func (s *Service) RunState() *RunState { return s.state }

// Start begins monitoring. It is a no-op while running and fails with a
// *PermissionMissingError if a required permission is absent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Running() {
		return nil
	}
	if m := missing(s.deps.Permissions); len(m) > 0 {
		err := &PermissionMissingError{Missing: m}
		s.logger.Warn("service.start.refused", "error", err)
		return err
	}
	s.fault.Store(nil)
	s.runs++
	id := s.runs

	w := s.resources.Start()
	ctrl := capture.NewController(s.deps.Driver, w, s.cfg.Capture, s.logger.With("component", "capture"))
	ctrl.AddListener(func(tr capture.Transition) {
		if tr.To == capture.StateError && errors.Is(tr.Err, capture.ErrPermissionRevoked) {
			go s.stopAfterFault(id, tr.Err)
		}
	})
	sched := detection.NewScheduler(ctrl, w, s.clk, s.deps.Detector, detection.SinkFunc(func(t detection.Tick) { s.onDetection(id, t) }), s.cfg.Detection, s.logger.With("component", "scheduler"))
	sched.OnFault(func(err error) { go s.stopAfterFault(id, err) })

	if err := s.deps.Indicator.Show(IndicatorTitle, IndicatorText); err != nil {
		s.logger.Warn("indicator.show", "error", err)
	}
	r := &run{id: id, ctrl: ctrl, sched: sched}
	s.current.Store(r)
	s.last.Store(r)
	sched.Start()
	s.state.set(true, s.clk.Now())
	s.logger.Info("service.started", "run", id)
	return nil
}

// Stop ends monitoring and releases every resource. It is a no-op when not
// running. A worker that does not exit in time is reported as
// lifecycle.ErrWorkerShutdownTimeout after teardown has completed.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Service) stopLocked() error {
	if !s.state.Running() {
		return nil
	}
	r := s.current.Swap(nil)
	if r != nil {
		r.sched.Stop()
	}
	s.presenter.Hide()
	if err := s.deps.Indicator.Hide(); err != nil {
		s.logger.Warn("indicator.hide", "error", err)
	}
	err := s.resources.Stop()
	s.state.set(false, time.Time{})
	if err != nil {
		s.logger.Error("service.stop", "error", err)
	} else {
		s.logger.Info("service.stopped")
	}
	return err
}

func (s *Service) stopAfterFault(id uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrent(id) {
		return
	}
	s.fault.Store(&cause)
	s.logger.Error("service.fault", "error", cause)
	_ = s.stopLocked()
}

// onDetection runs on the capture worker. Stop may land at any point in
// here, so the run is checked before the alert and again after it: a Stop
// that hid the overlay before this Show was queued gets a second Hide.
func (s *Service) onDetection(id uint64, t detection.Tick) {
	if !s.isCurrent(id) {
		return
	}
	if !s.limiter.Allow(t.Timestamp) {
		s.rateLimited.Add(1)
		s.logger.Debug("alert.rate_limited", "trace", t.TraceID)
		return
	}
	s.lastAlert.Store(t.Timestamp.UnixNano())
	s.logger.Warn("potential unauthorized viewing detected", "confidence", t.Verdict.Confidence, "trace", t.TraceID)
	s.presenter.Show(s.cfg.AlertMessage)
	if !s.isCurrent(id) {
		s.presenter.Hide()
	}
}

func (s *Service) isCurrent(id uint64) bool {
	r := s.current.Load()
	return r != nil && r.id == id
}

// Status snapshots the service for display.
func (s *Service) Status() Status {
	st := Status{
		Running:      s.state.Running(),
		Since:        s.state.Since(),
		DeviceState:  capture.StateIdle,
		WakeLockHeld: s.resources.WakeLockHeld(),
		RateLimited:  s.rateLimited.Load(),
	}
	st.AlertsShown, _ = s.presenter.Shown()
	if ns := s.lastAlert.Load(); ns != 0 {
		st.LastAlert = time.Unix(0, ns)
	}
	if p := s.deps.Permissions; p != nil {
		st.CaptureGranted = p.Granted(PermissionCapture)
		st.OverlayGranted = p.Granted(PermissionOverlay)
	} else {
		st.CaptureGranted, st.OverlayGranted = true, true
	}
	if r := s.last.Load(); r != nil {
		st.Capture = r.ctrl.Stats()
		st.Detection = r.sched.Stats()
		if st.Running {
			st.DeviceState = r.ctrl.State()
		}
	}
	if f := s.fault.Load(); f != nil {
		st.LastFault = *f
	}
	switch {
	case !st.CaptureGranted || !st.OverlayGranted:
		st.Message = StatusPermissionsRequired
	case st.Running:
		st.Message = StatusActive
	default:
		st.Message = StatusInactive
	}
	return st
}

type logSurface struct{ logger *slog.Logger }

func (l logSurface) Show(msg string) error { l.logger.Warn("ALERT", "message", msg); return nil }
func (l logSurface) Hide() error           { return nil }

type logIndicator struct{ logger *slog.Logger }

func (l logIndicator) Show(title, text string) error {
	l.logger.Info("indicator", "title", title, "text", text)
	return nil
}
func (l logIndicator) Hide() error { return nil }
