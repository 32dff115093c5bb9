package capture_test

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/capture/synthetic"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

type harness struct {
	t       *testing.T
	mgr     *lifecycle.Manager
	driver  *synthetic.Driver
	ctrl    *capture.Controller
	mu      sync.Mutex
	history []capture.Transition
}

func newHarness(t *testing.T, opts synthetic.Options, cfg capture.Config) *harness {
	t.Helper()
	mgr := lifecycle.NewManager(lifecycle.Config{JoinTimeout: time.Second}, nil, nil)
	w := mgr.Start()
	h := &harness{t: t, mgr: mgr, driver: synthetic.New(opts)}
	h.ctrl = capture.NewController(h.driver, w, cfg, nil)
	h.ctrl.AddListener(func(tr capture.Transition) {
		h.mu.Lock()
		h.history = append(h.history, tr)
		h.mu.Unlock()
	})
	t.Cleanup(func() { _ = mgr.Stop() })
	return h
}

func (h *harness) transitions() []capture.Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]capture.Transition(nil), h.history...)
}

func (h *harness) open() error {
	ch := make(chan error, 1)
	h.ctrl.Open(func(err error) { ch <- err })
	return h.wait(ch)
}

func (h *harness) configure() error {
	ch := make(chan error, 1)
	h.ctrl.Configure(capture.OutputSpec{}, func(err error) { ch <- err })
	return h.wait(ch)
}

func (h *harness) close() {
	ch := make(chan error, 1)
	h.ctrl.Close(func() { ch <- nil })
	_ = h.wait(ch)
}

type captureResult struct {
	frame capture.Frame
	err   error
}

func (h *harness) captureAsync() chan captureResult {
	ch := make(chan captureResult, 1)
	h.ctrl.CaptureOne(func(f capture.Frame, err error) { ch <- captureResult{f, err} })
	return ch
}

func (h *harness) wait(ch chan error) error {
	h.t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for controller callback")
		return nil
	}
}

func waitCapture(t *testing.T, ch chan captureResult) captureResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for capture")
		return captureResult{}
	}
}

// flush waits until every task queued before it has run.
func (h *harness) flush() {
	ch := make(chan error, 1)
	h.ctrl.Configure(capture.OutputSpec{}, func(error) { ch <- nil })
	_ = h.wait(ch)
}

var ignoreErr = cmpopts.IgnoreFields(capture.Transition{}, "Err")

func TestController_OpenConfigureCaptureClose(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	require.NoError(t, h.open())
	require.NoError(t, h.configure())
	assert.Equal(t, capture.StateReady, h.ctrl.State())

	r := waitCapture(t, h.captureAsync())
	require.NoError(t, r.err)
	require.NotNil(t, r.frame.Image)
	assert.Equal(t, image.Rect(0, 0, 640, 480), r.frame.Image.Rect)
	assert.Equal(t, uint64(1), r.frame.Sequence)
	assert.NotEmpty(t, r.frame.TraceID)
	assert.Equal(t, "synthetic-0", r.frame.DeviceID)
	r.frame.Release()

	h.close()
	want := []capture.Transition{
		{From: capture.StateIdle, To: capture.StateOpening},
		{From: capture.StateOpening, To: capture.StateOpen},
		{From: capture.StateOpen, To: capture.StateConfiguring},
		{From: capture.StateConfiguring, To: capture.StateReady},
		{From: capture.StateReady, To: capture.StateCapturing},
		{From: capture.StateCapturing, To: capture.StateReady},
		{From: capture.StateReady, To: capture.StateClosing},
		{From: capture.StateClosing, To: capture.StateIdle},
	}
	if diff := cmp.Diff(want, h.transitions(), ignoreErr); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, h.driver.OpenHandles())
	assert.Equal(t, int64(0), h.ctrl.Stats().HandlesOpen)
}

func TestController_CaptureWhileCapturingIsBusy(t *testing.T) {
	h := newHarness(t, synthetic.Options{HoldCaptures: true}, capture.Config{})
	require.NoError(t, h.open())
	require.NoError(t, h.configure())

	first := h.captureAsync()
	second := waitCapture(t, h.captureAsync())
	require.ErrorIs(t, second.err, capture.ErrSessionBusy)
	assert.Equal(t, capture.StateCapturing, h.ctrl.State())
	assert.Equal(t, uint64(1), h.ctrl.Stats().BusyRejections)
	assert.Equal(t, 1, h.driver.CapturesIssued(), "busy request must not reach the driver")

	require.Equal(t, 1, h.driver.Complete())
	r := waitCapture(t, first)
	require.NoError(t, r.err)
	r.frame.Release()
	assert.Equal(t, capture.StateReady, h.ctrl.State())
}

func TestController_ReopenRoundTripDoesNotLeakHandles(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	for i := 0; i < 3; i++ {
		require.NoError(t, h.open(), "cycle %d", i)
		require.NoError(t, h.configure(), "cycle %d", i)
		assert.Equal(t, capture.StateReady, h.ctrl.State())
		assert.Equal(t, 1, h.driver.OpenHandles())
		h.close()
		assert.Equal(t, 0, h.driver.OpenHandles())
	}
	assert.Equal(t, 3, h.driver.Opened())
	assert.LessOrEqual(t, h.driver.MaxOpenHandles(), 1)
	assert.Equal(t, uint64(3), h.ctrl.Stats().Opens)
}

func TestController_OpenWhileActiveFails(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	require.NoError(t, h.open())
	require.ErrorIs(t, h.open(), capture.ErrSessionActive)
	assert.Equal(t, 1, h.driver.OpenHandles())
}

func TestController_NoMatchingDevice(t *testing.T) {
	opts := synthetic.Options{Devices: []capture.DeviceInfo{{ID: "rear", Facing: capture.FacingBack}}}
	h := newHarness(t, opts, capture.Config{Facing: capture.FacingFront})
	err := h.open()
	require.ErrorIs(t, err, capture.ErrNoMatchingDevice)
	assert.Equal(t, capture.StateError, h.ctrl.State())
	assert.Equal(t, 0, h.driver.Opened())

	got := h.transitions()
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, capture.StateError, last.To)
	assert.ErrorIs(t, last.Err, capture.ErrNoMatchingDevice)
}

func TestController_ConfigureFailureEntersError(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	h.driver.FailConfigure(errors.New("unsupported format"))
	require.NoError(t, h.open())
	err := h.configure()
	require.ErrorIs(t, err, capture.ErrSessionConfigure)
	assert.Equal(t, capture.StateError, h.ctrl.State())
	assert.Equal(t, 0, h.driver.OpenHandles(), "device released on configure failure")

	// No automatic retry; an explicit reopen works.
	require.NoError(t, h.open())
	require.NoError(t, h.configure())
	assert.Equal(t, capture.StateReady, h.ctrl.State())
}

func TestController_DeviceErrorOnOpen(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	h.driver.FailOpen(errors.New("camera in use"))
	err := h.open()
	require.Error(t, err)
	assert.Equal(t, capture.StateError, h.ctrl.State())
	assert.Equal(t, uint64(1), h.ctrl.Stats().DeviceErrors)
}

func TestController_DisconnectReleasesDevice(t *testing.T) {
	h := newHarness(t, synthetic.Options{HoldCaptures: true}, capture.Config{})
	require.NoError(t, h.open())
	require.NoError(t, h.configure())
	pending := h.captureAsync()

	h.driver.Disconnect()
	r := waitCapture(t, pending)
	require.ErrorIs(t, r.err, capture.ErrDeviceDisconnected)
	assert.Equal(t, capture.StateError, h.ctrl.State())
	assert.Equal(t, 0, h.driver.OpenHandles())

	// The held request completes against a closed target and is ignored.
	h.driver.Complete()
	h.flush()
	assert.Equal(t, capture.StateError, h.ctrl.State())
}

func TestController_PermissionDeniedSurfacesAsRevoked(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	require.NoError(t, h.open())
	require.NoError(t, h.configure())
	h.driver.RevokePermission()

	r := waitCapture(t, h.captureAsync())
	require.ErrorIs(t, r.err, capture.ErrPermissionRevoked)
	assert.Equal(t, capture.StateError, h.ctrl.State())
	assert.Equal(t, 0, h.driver.OpenHandles())
}

func TestController_DroppedFrameReturnsToReady(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	require.NoError(t, h.open())
	require.NoError(t, h.configure())
	h.driver.FailCapture(errors.New("frame dropped"))

	r := waitCapture(t, h.captureAsync())
	require.Error(t, r.err)
	assert.Equal(t, capture.StateReady, h.ctrl.State())
	assert.Equal(t, uint64(1), h.ctrl.Stats().CaptureFailures)

	r = waitCapture(t, h.captureAsync())
	require.NoError(t, r.err)
	r.frame.Release()
}

func TestController_CaptureBeforeReady(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	r := waitCapture(t, h.captureAsync())
	require.ErrorIs(t, r.err, capture.ErrSessionNotReady)
	assert.Equal(t, capture.StateIdle, h.ctrl.State())
}

func TestController_CloseWhileOpeningClosesStrayDevice(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	gate := make(chan struct{})
	require.True(t, h.mgr.Worker().Post(func() { <-gate }))
	opened := make(chan error, 1)
	closed := make(chan error, 1)
	h.ctrl.Open(func(err error) { opened <- err })
	h.ctrl.Close(func() { closed <- nil })
	close(gate)

	require.ErrorIs(t, h.wait(opened), capture.ErrSessionClosed)
	require.NoError(t, h.wait(closed))
	h.flush()
	assert.Equal(t, capture.StateIdle, h.ctrl.State())
	assert.Equal(t, 0, h.driver.OpenHandles())
	assert.Equal(t, int64(0), h.ctrl.Stats().HandlesOpen)
}

func TestController_CloseWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	h.close()
	h.close()
	assert.Empty(t, h.transitions())
}

func TestController_StoppedWorkerRejectsWork(t *testing.T) {
	h := newHarness(t, synthetic.Options{}, capture.Config{})
	require.NoError(t, h.mgr.Stop())
	err := h.open()
	require.ErrorIs(t, err, capture.ErrControllerStopped)
}
