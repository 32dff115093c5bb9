// Package synthetic is an in-memory capture driver. It completes requests
// synchronously unless told to hold them, and can be scripted to fail,
// disconnect or lose permission. It counts open device handles so callers can
// check that nothing leaks.
package synthetic

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/soocke/peekerguard-go/domain/capture"
)

// Painter fills img for capture number seq.
type Painter func(seq uint64, img *image.RGBA)

// Options configure a Driver. The zero value yields one front-facing device
// painting a flat grey frame.
type Options struct {
	Devices []capture.DeviceInfo
	Painter Painter
	// HoldCaptures queues capture requests until Complete is called.
	HoldCaptures bool
	Now          func() time.Time
}

// Driver implements capture.Driver.
type Driver struct {
	opts Options

	mu            sync.Mutex
	openErr       error
	configureErr  error
	captureErr    error
	denied        bool
	open          map[*device]struct{}
	maxOpen       int
	opened        int
	pending       []request
	captureCount  uint64
	captureIssued int
}

type request struct {
	target *capture.OutputTarget
	sink   capture.EventSink
}

// New builds a driver from opts.
func New(opts Options) *Driver {
	if len(opts.Devices) == 0 {
		opts.Devices = []capture.DeviceInfo{{ID: "synthetic-0", Name: "Synthetic camera", Facing: capture.FacingFront}}
	}
	if opts.Painter == nil {
		opts.Painter = Flat(color.RGBA{R: 128, G: 128, B: 128, A: 255})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{opts: opts, open: make(map[*device]struct{})}
}

// Flat paints every frame with c.
func Flat(c color.RGBA) Painter {
	return func(_ uint64, img *image.RGBA) {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

// Intruder paints a flat background and, on every n-th capture, a bright
// block over the middle third of the frame. It gives change detectors
// something to find.
func Intruder(n uint64, bg, fg color.RGBA) Painter {
	flat := Flat(bg)
	return func(seq uint64, img *image.RGBA) {
		flat(seq, img)
		if n == 0 || seq%n != 0 {
			return
		}
		b := img.Bounds()
		block := image.Rect(b.Min.X+b.Dx()/3, b.Min.Y+b.Dy()/3, b.Min.X+2*b.Dx()/3, b.Min.Y+2*b.Dy()/3)
		for y := block.Min.Y; y < block.Max.Y; y++ {
			for x := block.Min.X; x < block.Max.X; x++ {
				img.SetRGBA(x, y, fg)
			}
		}
	}
}

// FailOpen makes the next Open report EventDeviceError with err.
func (d *Driver) FailOpen(err error) { d.mu.Lock(); d.openErr = err; d.mu.Unlock() }

// FailConfigure makes the next CreateSession report EventConfigureFailed.
func (d *Driver) FailConfigure(err error) { d.mu.Lock(); d.configureErr = err; d.mu.Unlock() }

// FailCapture makes the next capture report EventCaptureFailed.
func (d *Driver) FailCapture(err error) { d.mu.Lock(); d.captureErr = err; d.mu.Unlock() }

// RevokePermission makes every later capture fail with
// capture.ErrPermissionDenied.
func (d *Driver) RevokePermission() { d.mu.Lock(); d.denied = true; d.mu.Unlock() }

// OpenHandles returns the number of devices currently open.
func (d *Driver) OpenHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

// MaxOpenHandles returns the highest number of simultaneously open devices.
func (d *Driver) MaxOpenHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxOpen
}

// Opened returns how many times a device was opened.
func (d *Driver) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// CapturesIssued returns how many capture requests reached the driver.
func (d *Driver) CapturesIssued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captureIssued
}

// Held returns the number of queued capture requests.
func (d *Driver) Held() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Complete finishes every held capture request.
func (d *Driver) Complete() int {
	d.mu.Lock()
	reqs := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, r := range reqs {
		d.finish(r)
	}
	return len(reqs)
}

// Disconnect reports EventDisconnected on every open device.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	var sinks []capture.EventSink
	for dev := range d.open {
		sinks = append(sinks, dev.sink)
	}
	d.mu.Unlock()
	for _, s := range sinks {
		s(capture.EventDisconnected{})
	}
}

func (d *Driver) Devices() ([]capture.DeviceInfo, error) {
	out := make([]capture.DeviceInfo, len(d.opts.Devices))
	copy(out, d.opts.Devices)
	return out, nil
}

func (d *Driver) Open(id string, sink capture.EventSink) error {
	var info *capture.DeviceInfo
	for i := range d.opts.Devices {
		if d.opts.Devices[i].ID == id {
			info = &d.opts.Devices[i]
		}
	}
	if info == nil {
		return fmt.Errorf("synthetic: unknown device %q", id)
	}
	d.mu.Lock()
	if err := d.openErr; err != nil {
		d.openErr = nil
		d.mu.Unlock()
		sink(capture.EventDeviceError{Err: err})
		return nil
	}
	dev := &device{driver: d, info: *info, sink: sink}
	d.open[dev] = struct{}{}
	d.opened++
	if len(d.open) > d.maxOpen {
		d.maxOpen = len(d.open)
	}
	d.mu.Unlock()
	sink(capture.EventOpened{Device: dev})
	return nil
}

func (d *Driver) closeDevice(dev *device) {
	d.mu.Lock()
	delete(d.open, dev)
	d.mu.Unlock()
}

func (d *Driver) request(r request) error {
	d.mu.Lock()
	d.captureIssued++
	if d.opts.HoldCaptures {
		d.pending = append(d.pending, r)
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()
	d.finish(r)
	return nil
}

func (d *Driver) finish(r request) {
	d.mu.Lock()
	err := d.captureErr
	d.captureErr = nil
	if d.denied {
		err = capture.ErrPermissionDenied
	}
	d.captureCount++
	seq := d.captureCount
	d.mu.Unlock()
	if err != nil {
		r.sink(capture.EventCaptureFailed{Err: err})
		return
	}
	spec := r.target.Spec()
	img := capture.AcquireFrame(spec.Bounds())
	d.opts.Painter(seq, img)
	f := capture.Frame{Image: img, CapturedAt: d.opts.Now()}
	if werr := r.target.Write(f); werr != nil {
		f.Release()
		r.sink(capture.EventCaptureFailed{Err: werr})
		return
	}
	r.sink(capture.EventCaptureCompleted{})
}

type device struct {
	driver *Driver
	info   capture.DeviceInfo
	sink   capture.EventSink

	mu     sync.Mutex
	closed bool
}

func (v *device) Info() capture.DeviceInfo { return v.info }

func (v *device) CreateSession(target *capture.OutputTarget, sink capture.EventSink) error {
	if v.isClosed() {
		return errors.New("synthetic: device closed")
	}
	v.driver.mu.Lock()
	err := v.driver.configureErr
	v.driver.configureErr = nil
	v.driver.mu.Unlock()
	if err != nil {
		sink(capture.EventConfigureFailed{Err: err})
		return nil
	}
	sink(capture.EventConfigured{Session: &session{device: v}})
	return nil
}

func (v *device) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()
	v.driver.closeDevice(v)
	return nil
}

func (v *device) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

type session struct {
	device *device

	mu     sync.Mutex
	closed bool
}

func (s *session) Capture(target *capture.OutputTarget, sink capture.EventSink) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.device.isClosed() {
		return errors.New("synthetic: session closed")
	}
	return s.device.driver.request(request{target: target, sink: sink})
}

func (s *session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
