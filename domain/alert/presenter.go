// Package alert gates positive detections and shows them as a transient
// overlay.
package alert

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/peekerguard-go/domain/clock"
)

const (
	DefaultDuration = 3 * time.Second
	DefaultMessage  = "Privacy Alert: Someone may be watching your screen!"
)

// Surface renders the overlay. Both methods are called on the dispatcher.
type Surface interface {
	Show(message string) error
	Hide() error
}

// ActiveAlert is the alert currently on screen.
type ActiveAlert struct {
	Message  string
	ShownAt  time.Time
	Duration time.Duration
}

// Presenter shows at most one alert at a time and hides it after Duration.
// All alert state lives on the dispatcher; Show and Hide only post to it.
// A Hide call cancels every Show called before it, even one that reaches the
// dispatcher after the hide.
type Presenter struct {
	surface  Surface
	dispatch Dispatcher
	clk      clock.Clock
	duration time.Duration
	logger   *slog.Logger

	// Confined to dispatch.
	active *ActiveAlert
	timer  clock.Timer
	seq    uint64

	epoch      atomic.Uint64
	showing    atomic.Bool
	shown      atomic.Uint64
	suppressed atomic.Uint64
	lastShown  atomic.Int64
}

func NewPresenter(surface Surface, dispatch Dispatcher, clk clock.Clock, duration time.Duration, logger *slog.Logger) *Presenter {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if clk == nil {
		clk = clock.Real()
	}
	if dispatch == nil {
		dispatch = &ImmediateDispatcher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Presenter{surface: surface, dispatch: dispatch, clk: clk, duration: duration, logger: logger}
}

// Show displays message unless an alert is already up.
func (p *Presenter) Show(message string) {
	epoch := p.epoch.Load()
	p.dispatch.Dispatch(func() {
		if p.epoch.Load() != epoch {
			p.logger.Debug("alert.show.cancelled", "message", message)
			return
		}
		p.show(message)
	})
}

// Hide removes the alert if present. Idempotent.
func (p *Presenter) Hide() {
	p.epoch.Add(1)
	p.dispatch.Dispatch(p.hide)
}

// Active reports whether an alert is on screen.
func (p *Presenter) Active() bool { return p.showing.Load() }

// Shown returns the number of alerts displayed and the time of the last one.
func (p *Presenter) Shown() (uint64, time.Time) {
	var last time.Time
	if ns := p.lastShown.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return p.shown.Load(), last
}

// Suppressed counts Show calls ignored because an alert was already up.
func (p *Presenter) Suppressed() uint64 { return p.suppressed.Load() }

func (p *Presenter) show(message string) {
	if p.active != nil {
		p.suppressed.Add(1)
		p.logger.Debug("alert.show.suppressed", "shown_at", p.active.ShownAt)
		return
	}
	if err := p.surface.Show(message); err != nil {
		p.logger.Error("alert.show", "error", err)
		return
	}
	now := p.clk.Now()
	p.seq++
	id := p.seq
	p.active = &ActiveAlert{Message: message, ShownAt: now, Duration: p.duration}
	p.showing.Store(true)
	p.shown.Add(1)
	p.lastShown.Store(now.UnixNano())
	p.timer = p.clk.AfterFunc(p.duration, func() {
		p.dispatch.Dispatch(func() { p.expire(id) })
	})
	p.logger.Info("alert.shown", "message", message, "duration", p.duration)
}

func (p *Presenter) expire(id uint64) {
	if p.active == nil || p.seq != id {
		return
	}
	p.hide()
}

func (p *Presenter) hide() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.active == nil {
		return
	}
	if err := p.surface.Hide(); err != nil {
		p.logger.Error("alert.hide", "error", err)
	}
	p.logger.Debug("alert.hidden", "visible_for", p.clk.Now().Sub(p.active.ShownAt))
	p.active = nil
	p.showing.Store(false)
}
