package model

import (
	"time"
)

// SessionModel tracks monitoring sessions: how long the current one has been
// running, the time accumulated over all of them, how many there were and
// how many alerts the current (or last) one raised. Presenters feed it the
// service status on every tick. The zero value is ready to use.
type SessionModel struct {
	active      bool
	startedAt   time.Time
	current     time.Duration
	accumulated time.Duration
	sessions    int

	alertsAtStart uint64
	alerts        uint64
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick folds the running flag and the service's lifetime alert count
// observed at now into the model.
func (m *SessionModel) OnTick(running bool, alertsShown uint64, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case running && !m.active:
		m.active = true
		m.startedAt = now
		m.current = 0
		m.sessions++
		m.alertsAtStart = alertsShown
		m.alerts = 0
	case running:
		m.current = now.Sub(m.startedAt)
		m.alerts = alertsShown - m.alertsAtStart
	case m.active:
		m.current = now.Sub(m.startedAt)
		m.accumulated += m.current
		m.alerts = alertsShown - m.alertsAtStart
		m.active = false
	}
}

// Values returns the current (or last) session duration and the total
// accumulated duration including the ongoing session.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.current
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Alerts counts alerts raised during the current (or last) session.
func (m *SessionModel) Alerts() uint64 {
	if m == nil {
		return 0
	}
	return m.alerts
}

// Sessions counts off-to-on transitions seen so far.
func (m *SessionModel) Sessions() int {
	if m == nil {
		return 0
	}
	return m.sessions
}
