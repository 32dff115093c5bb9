package alert

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/peekerguard-go/domain/clock"
)

type fakeSurface struct {
	mu         sync.Mutex
	visible    int
	maxVisible int
	shows      []string
	hides      int
	showErr    error
}

func (s *fakeSurface) Show(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showErr != nil {
		return s.showErr
	}
	s.shows = append(s.shows, msg)
	s.visible++
	if s.visible > s.maxVisible {
		s.maxVisible = s.visible
	}
	return nil
}

func (s *fakeSurface) Hide() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hides++
	s.visible--
	return nil
}

func newTestPresenter() (*Presenter, *fakeSurface, *clock.Fake) {
	clk := clock.NewFake(time.Unix(0, 0))
	surf := &fakeSurface{}
	return NewPresenter(surf, &ImmediateDispatcher{}, clk, 0, nil), surf, clk
}

func TestPresenter_ShowIsNoopWhileActive(t *testing.T) {
	p, surf, clk := newTestPresenter()
	p.Show("one")
	p.Show("two")
	assert.True(t, p.Active())
	assert.Equal(t, []string{"one"}, surf.shows)
	assert.Equal(t, uint64(1), p.Suppressed())

	clk.Advance(DefaultDuration)
	assert.False(t, p.Active())
	assert.Equal(t, 1, surf.hides)

	p.Show("three")
	assert.Equal(t, []string{"one", "three"}, surf.shows)
	assert.Equal(t, 1, surf.maxVisible)
	n, last := p.Shown()
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, time.Unix(0, 0).Add(DefaultDuration), last)
}

func TestPresenter_AutoHidesAfterDuration(t *testing.T) {
	p, surf, clk := newTestPresenter()
	p.Show(DefaultMessage)
	clk.Advance(DefaultDuration - time.Millisecond)
	assert.True(t, p.Active())
	clk.Advance(time.Millisecond)
	assert.False(t, p.Active())
	assert.Equal(t, 0, surf.visible)
}

func TestPresenter_HideBeforeTimerCancelsIt(t *testing.T) {
	p, surf, clk := newTestPresenter()
	p.Show("x")
	clk.Advance(time.Second)
	p.Hide()
	p.Hide()
	assert.False(t, p.Active())
	assert.Equal(t, 1, surf.hides)
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(time.Hour)
	assert.Equal(t, 1, surf.hides)
}

func TestPresenter_StaleExpiryDoesNotHideNewerAlert(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	surf := &fakeSurface{}
	d := &deferredDispatcher{}
	p := NewPresenter(surf, d, clk, time.Second, nil)

	p.Show("first")
	d.run()
	p.Hide()
	p.Show("second")
	// The first timer fires before the queued Hide has stopped it, so its
	// expiry lands behind the second Show.
	clk.Advance(time.Second)
	d.run()

	assert.True(t, p.Active(), "expiry of the first alert must not hide the second")
	assert.Equal(t, 1, surf.hides)
	clk.Advance(time.Second)
	d.run()
	assert.False(t, p.Active())
}

func TestPresenter_SurfaceErrorLeavesNothingActive(t *testing.T) {
	p, surf, clk := newTestPresenter()
	surf.showErr = errors.New("no display")
	p.Show("x")
	assert.False(t, p.Active())
	assert.Equal(t, 0, clk.Pending())
}

func TestLoopDispatcher_RunsInOrderAndStops(t *testing.T) {
	d := NewLoopDispatcher(nil)
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		d.Dispatch(func() { got = append(got, i) })
	}
	d.Dispatch(func() { panic("ignored") })
	d.Flush()
	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	d.Close()
	d.Close()
	d.Dispatch(func() { got = append(got, -1) })
	d.Flush()
	assert.Len(t, got, 100)
}

func TestPresenter_HideCancelsShowStillQueued(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	surf := &fakeSurface{}
	d := &deferredDispatcher{}
	p := NewPresenter(surf, d, clk, 0, nil)

	p.Show("late")
	p.Hide()
	// Reverse the queue so the show runs after the hide.
	d.mu.Lock()
	d.queue[0], d.queue[1] = d.queue[1], d.queue[0]
	d.mu.Unlock()
	d.run()

	assert.False(t, p.Active())
	assert.Empty(t, surf.shows)
	shown, _ := p.Shown()
	assert.Zero(t, shown)

	p.Show("next")
	d.run()
	assert.True(t, p.Active(), "shows after the hide are unaffected")
	assert.Equal(t, []string{"next"}, surf.shows)
}

// deferredDispatcher queues functions until run is called.
type deferredDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *deferredDispatcher) Dispatch(f func()) {
	d.mu.Lock()
	d.queue = append(d.queue, f)
	d.mu.Unlock()
}

func (d *deferredDispatcher) run() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		f := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		f()
	}
}
