package screen

import (
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

func fakeScreen(w, h int, c color.RGBA) GrabFunc {
	return func() (*image.RGBA, error) {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
		}
		return img, nil
	}
}

func TestDriver_DevicesReportDisplay(t *testing.T) {
	d := New(capture.FacingDisplay, nil).WithGrab(fakeScreen(1920, 1080, color.RGBA{A: 255}))
	devs, err := d.Devices()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, deviceID, devs[0].ID)
	assert.Equal(t, capture.FacingDisplay, devs[0].Facing)
	assert.Equal(t, "Display 1920x1080", devs[0].Name)
}

func TestDriver_CaptureScalesIntoOutput(t *testing.T) {
	mgr := lifecycle.NewManager(lifecycle.Config{JoinTimeout: time.Second}, nil, nil)
	t.Cleanup(func() { _ = mgr.Stop() })
	red := color.RGBA{R: 255, A: 255}
	d := New(capture.FacingDisplay, nil).WithGrab(fakeScreen(1280, 960, red))
	ctrl := capture.NewController(d, mgr.Start(), capture.Config{Facing: capture.FacingDisplay}, nil)

	errs := make(chan error, 2)
	ctrl.Open(func(err error) { errs <- err })
	require.NoError(t, <-errs)
	ctrl.Configure(capture.OutputSpec{Width: 320, Height: 240}, func(err error) { errs <- err })
	require.NoError(t, <-errs)

	type result struct {
		f   capture.Frame
		err error
	}
	ch := make(chan result, 1)
	ctrl.CaptureOne(func(f capture.Frame, err error) { ch <- result{f, err} })
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		defer r.f.Release()
		assert.Equal(t, image.Rect(0, 0, 320, 240), r.f.Image.Bounds())
		px := r.f.Image.RGBAAt(160, 120)
		assert.GreaterOrEqual(t, px.R, uint8(250))
		assert.LessOrEqual(t, px.G, uint8(5))
		assert.Equal(t, deviceID, r.f.DeviceID)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not complete")
	}
}

func TestDriver_GrabFailureIsReported(t *testing.T) {
	boom := errors.New("no display")
	calls := 0
	grab := func() (*image.RGBA, error) {
		calls++
		if calls == 1 {
			return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
		}
		return nil, boom
	}
	mgr := lifecycle.NewManager(lifecycle.Config{JoinTimeout: time.Second}, nil, nil)
	t.Cleanup(func() { _ = mgr.Stop() })
	d := New(capture.FacingDisplay, nil).WithGrab(grab)
	ctrl := capture.NewController(d, mgr.Start(), capture.Config{Facing: capture.FacingDisplay}, nil)

	errs := make(chan error, 2)
	ctrl.Open(func(err error) { errs <- err })
	require.NoError(t, <-errs)
	ctrl.Configure(capture.OutputSpec{}, func(err error) { errs <- err })
	require.NoError(t, <-errs)

	ch := make(chan error, 1)
	ctrl.CaptureOne(func(_ capture.Frame, err error) { ch <- err })
	select {
	case err := <-ch:
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not complete")
	}
	assert.Equal(t, capture.StateReady, ctrl.State())
}

func TestDriver_CloseWaitsForGrabInFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	grab := func() (*image.RGBA, error) {
		if calls.Add(1) > 1 {
			close(started)
			<-release
		}
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	}
	mgr := lifecycle.NewManager(lifecycle.Config{JoinTimeout: time.Second}, nil, nil)
	t.Cleanup(func() { _ = mgr.Stop() })
	d := New(capture.FacingDisplay, nil).WithGrab(grab)
	ctrl := capture.NewController(d, mgr.Start(), capture.Config{Facing: capture.FacingDisplay}, nil)

	errs := make(chan error, 2)
	ctrl.Open(func(err error) { errs <- err })
	require.NoError(t, <-errs)
	ctrl.Configure(capture.OutputSpec{}, func(err error) { errs <- err })
	require.NoError(t, <-errs)

	ctrl.CaptureOne(func(f capture.Frame, _ error) { f.Release() })
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("grab never started")
	}

	closed := make(chan struct{})
	ctrl.Close(func() { close(closed) })
	select {
	case <-closed:
		t.Fatal("close returned while a grab was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not finish after the grab")
	}
	assert.Equal(t, capture.StateIdle, ctrl.State())
}
