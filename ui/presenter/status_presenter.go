package presenter

import (
	"strconv"
	"time"

	"github.com/soocke/peekerguard-go/domain/guard"
)

// StatusSource provides the service snapshot the presenter requires.
type StatusSource interface {
	Status() guard.Status
}

// StatusView shows the service state.
type StatusView interface {
	SetStatusLine(string)
	SetPermissions(capture, overlay bool)
	SetDevice(string)
	SetLastAlert(string)
	SetCounters(alerts, rateLimited uint64)
	SetRunning(bool)
}

// StatusPresenter polls the service on each tick and updates the view
// only where something changed.
type StatusPresenter struct {
	src    StatusSource
	view   StatusView
	primed bool
	latest statusLines
}

type statusLines struct {
	message          string
	capture, overlay bool
	device           string
	lastAlert        string
	alerts, limited  uint64
	running          bool
}

func NewStatusPresenter(src StatusSource, view StatusView) *StatusPresenter {
	return &StatusPresenter{src: src, view: view}
}

// Tick snapshots the service and reflects differences in the view.
func (p *StatusPresenter) Tick(now time.Time) {
	if p == nil || p.src == nil || p.view == nil {
		return
	}
	next := format(p.src.Status(), now)
	prev := p.latest
	force := !p.primed
	p.primed = true
	p.latest = next
	if force || next.message != prev.message {
		p.view.SetStatusLine(next.message)
	}
	if force || next.capture != prev.capture || next.overlay != prev.overlay {
		p.view.SetPermissions(next.capture, next.overlay)
	}
	if force || next.device != prev.device {
		p.view.SetDevice(next.device)
	}
	if force || next.lastAlert != prev.lastAlert {
		p.view.SetLastAlert(next.lastAlert)
	}
	if force || next.alerts != prev.alerts || next.limited != prev.limited {
		p.view.SetCounters(next.alerts, next.limited)
	}
	if force || next.running != prev.running {
		p.view.SetRunning(next.running)
	}
}

func format(st guard.Status, now time.Time) statusLines {
	l := statusLines{
		message: st.Message,
		capture: st.CaptureGranted,
		overlay: st.OverlayGranted,
		device:  st.DeviceState.String(),
		alerts:  st.AlertsShown,
		limited: st.RateLimited,
		running: st.Running,
	}
	if st.LastAlert.IsZero() {
		l.lastAlert = "never"
	} else {
		l.lastAlert = FormatAgo(now.Sub(st.LastAlert))
	}
	return l
}

// FormatAgo renders an elapsed duration as a coarse "n units ago" string.
func FormatAgo(d time.Duration) string {
	switch {
	case d < 0:
		d = 0
		fallthrough
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return plural(int(d/time.Second), "second") + " ago"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	default:
		return plural(int(d/time.Hour), "hour") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
