// Package screen exposes the primary display as a still-capture device. Each
// capture grabs the screen and scales it into the session's output size.
package screen

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/vova616/screenshot"
	"golang.org/x/image/draw"

	"github.com/soocke/peekerguard-go/domain/capture"
)

const deviceID = "display-0"

// GrabFunc captures the full screen.
type GrabFunc func() (*image.RGBA, error)

// Driver implements capture.Driver on top of screenshot.
type Driver struct {
	grab   GrabFunc
	rect   func() (image.Rectangle, error)
	logger *slog.Logger
	facing capture.Facing
}

// New returns a display driver. The device reports facing so it can satisfy
// whatever facing the controller is configured with.
func New(facing capture.Facing, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{grab: screenshot.CaptureScreen, rect: screenshot.ScreenRect, logger: logger, facing: facing}
}

// WithGrab replaces the screen grabber and derives the display bounds from
// its first frame.
func (d *Driver) WithGrab(g GrabFunc) *Driver {
	d.grab = g
	d.rect = func() (image.Rectangle, error) {
		img, err := g()
		if err != nil {
			return image.Rectangle{}, err
		}
		return img.Bounds(), nil
	}
	return d
}

func (d *Driver) Devices() ([]capture.DeviceInfo, error) {
	rect, err := d.rect()
	if err != nil {
		return nil, fmt.Errorf("screen: query display: %w", err)
	}
	return []capture.DeviceInfo{{
		ID:     deviceID,
		Name:   fmt.Sprintf("Display %dx%d", rect.Dx(), rect.Dy()),
		Facing: d.facing,
	}}, nil
}

func (d *Driver) Open(id string, sink capture.EventSink) error {
	if id != deviceID {
		return fmt.Errorf("screen: unknown device %q", id)
	}
	sink(capture.EventOpened{Device: &device{driver: d, info: capture.DeviceInfo{ID: id, Name: "display", Facing: d.facing}}})
	return nil
}

type device struct {
	driver *Driver
	info   capture.DeviceInfo

	mu     sync.Mutex
	closed bool
	grabs  sync.WaitGroup
}

func (v *device) Info() capture.DeviceInfo { return v.info }

func (v *device) CreateSession(target *capture.OutputTarget, sink capture.EventSink) error {
	if v.isClosed() {
		return errors.New("screen: device closed")
	}
	spec := target.Spec()
	if spec.Width <= 0 || spec.Height <= 0 {
		sink(capture.EventConfigureFailed{Err: fmt.Errorf("screen: invalid output %dx%d", spec.Width, spec.Height)})
		return nil
	}
	sink(capture.EventConfigured{Session: &session{device: v}})
	return nil
}

// Close waits for grabs still in flight. It runs on the capture worker, so a
// hung grab is bounded by the worker's join timeout.
func (v *device) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.grabs.Wait()
	return nil
}

// startGrab registers a grab unless the device is already closed.
func (v *device) startGrab() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	v.grabs.Add(1)
	return true
}

func (v *device) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

type session struct {
	device *device
}

// Capture grabs asynchronously; a screen grab can take tens of milliseconds
// and must not run on the controller's worker.
func (s *session) Capture(target *capture.OutputTarget, sink capture.EventSink) error {
	if !s.device.startGrab() {
		return errors.New("screen: device closed")
	}
	go func() {
		defer s.device.grabs.Done()
		defer func() {
			if r := recover(); r != nil {
				s.device.driver.logger.Error("screen capture panic", "error", r)
				sink(capture.EventCaptureFailed{Err: fmt.Errorf("screen: panic: %v", r)})
			}
		}()
		start := time.Now()
		src, err := s.device.driver.grab()
		if err != nil {
			sink(capture.EventCaptureFailed{Err: fmt.Errorf("screen: grab: %w", err)})
			return
		}
		dst := capture.AcquireFrame(target.Spec().Bounds())
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		f := capture.Frame{Image: dst, CapturedAt: time.Now(), DeviceID: deviceID}
		if err := target.Write(f); err != nil {
			f.Release()
			sink(capture.EventCaptureFailed{Err: err})
			return
		}
		s.device.driver.logger.Debug("screen.capture", "elapsed", time.Since(start), "src", src.Bounds().Size().String())
		sink(capture.EventCaptureCompleted{})
	}()
	return nil
}

func (s *session) Close() error { return nil }
