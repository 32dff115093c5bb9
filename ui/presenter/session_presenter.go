package presenter

import (
	"time"

	"github.com/soocke/peekerguard-go/ui/model"
)

// SessionView displays the monitoring session summary.
type SessionView interface {
	SetSession(session, total time.Duration, alerts uint64)
}

// SessionPresenter derives per-session figures from the service status. The
// service only knows lifetime alert counts; the model turns them into alerts
// for the session in progress.
type SessionPresenter struct {
	sess *model.SessionModel
	src  StatusSource
	view SessionView

	primed                 bool
	lastSession, lastTotal time.Duration
	lastAlerts             uint64
}

func NewSessionPresenter(sess *model.SessionModel, src StatusSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, src: src, view: view}
}

// Tick folds the current status into the model and refreshes the view when
// a displayed value changed. Durations are shown to the second.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.src == nil || p.view == nil {
		return
	}
	st := p.src.Status()
	p.sess.OnTick(st.Running, st.AlertsShown, now)
	s, t := p.sess.Values()
	s, t = s.Truncate(time.Second), t.Truncate(time.Second)
	a := p.sess.Alerts()
	if p.primed && s == p.lastSession && t == p.lastTotal && a == p.lastAlerts {
		return
	}
	p.primed = true
	p.lastSession, p.lastTotal, p.lastAlerts = s, t, a
	p.view.SetSession(s, t, a)
}
