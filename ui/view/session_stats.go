package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows the monitoring session and total durations and the
// alerts raised in the session.
type SessionStats interface {
	SetSession(d time.Duration)
	SetTotal(d time.Duration)
	SetAlerts(n uint64)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
	alertsLbl  *LabelWidget
}

// NewSessionStats creates the session, total and alert labels in one grid
// row starting at (row, startCol).
// If parent is nil, labels are positioned relative to the App root.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{sessionLbl: Label(Width(16)), totalLbl: Label(Width(16)), alertsLbl: Label(Width(18))}
	for i, lbl := range []*LabelWidget{s.sessionLbl, s.totalLbl, s.alertsLbl} {
		if parent != nil {
			Grid(lbl, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(lbl, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.sessionLbl.Configure(Txt("Session: " + clock(0)))
	s.totalLbl.Configure(Txt("Total: " + clock(0)))
	s.alertsLbl.Configure(Txt("Session alerts: 0"))
	return s
}

func (s *sessionStats) SetSession(d time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Session: " + clock(d)))
}

func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt("Total: " + clock(d)))
}

func (s *sessionStats) SetAlerts(n uint64) {
	if s == nil || s.alertsLbl == nil {
		return
	}
	s.alertsLbl.Configure(Txt(fmt.Sprintf("Session alerts: %d", n)))
}

// clock formats d as mm:ss, or h:mm:ss past an hour.
func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	h, m, sec := seconds/3600, (seconds/60)%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
