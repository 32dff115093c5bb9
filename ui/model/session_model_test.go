package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionModel_Lifecycle(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }

	m.OnTick(true, 0, at(0))
	m.OnTick(true, 2, at(5))
	session, total := m.Values()
	assert.Equal(t, 5*time.Second, session)
	assert.Equal(t, 5*time.Second, total)
	assert.Equal(t, uint64(2), m.Alerts())

	m.OnTick(false, 3, at(5))
	m.OnTick(false, 3, at(7))
	session, total = m.Values()
	assert.Equal(t, 5*time.Second, session, "last session persists while idle")
	assert.Equal(t, 5*time.Second, total)
	assert.Equal(t, uint64(3), m.Alerts(), "alerts from the final tick of the session count")

	m.OnTick(true, 3, at(10))
	assert.Zero(t, m.Alerts(), "a new session starts from zero alerts")
	m.OnTick(true, 4, at(13))
	session, total = m.Values()
	assert.Equal(t, 3*time.Second, session)
	assert.Equal(t, 8*time.Second, total, "total includes the ongoing session")
	assert.Equal(t, uint64(1), m.Alerts())

	m.OnTick(false, 4, at(14))
	session, total = m.Values()
	assert.Equal(t, 4*time.Second, session)
	assert.Equal(t, 9*time.Second, total)
	assert.Equal(t, 2, m.Sessions())
}

func TestSessionModel_NilSafe(t *testing.T) {
	var m *SessionModel
	m.OnTick(true, 1, time.Now())
	s, tot := m.Values()
	assert.Zero(t, s)
	assert.Zero(t, tot)
	assert.Zero(t, m.Alerts())
	assert.Zero(t, m.Sessions())
}
