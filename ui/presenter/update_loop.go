package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates on the UI
// thread.
//
// Each Tick first drains work dispatched from other goroutines (alert
// show/hide, indicator changes), then refreshes the presenters and invokes
// the scheduler callback. The zero value is usable (methods are nil-safe).
type Loop struct {
	Dispatch *QueueDispatcher
	Status   *StatusPresenter
	Session  *SessionPresenter
	Schedule func()
	Now      func() time.Time
}

func NewLoop(dispatch *QueueDispatcher, status *StatusPresenter, sess *SessionPresenter, schedule func()) *Loop {
	return &Loop{Dispatch: dispatch, Status: status, Session: sess, Schedule: schedule, Now: time.Now}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Dispatch != nil {
		l.Dispatch.Drain()
	}
	if l.Status != nil {
		l.Status.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
