package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatchingDevice: no enumerated device has the required facing.
	ErrNoMatchingDevice = errors.New("capture: no matching device")
	// ErrSessionBusy: CaptureOne while a capture is already in flight.
	ErrSessionBusy = errors.New("capture: session busy")
	// ErrSessionConfigure: the device refused or failed to build a session.
	ErrSessionConfigure = errors.New("capture: session configure failed")
	// ErrPermissionRevoked: a device operation failed for lack of permission
	// after the service had started.
	ErrPermissionRevoked = errors.New("capture: permission revoked")

	// ErrPermissionDenied is returned by drivers when the host refuses access
	// to the device. The controller reports it as ErrPermissionRevoked.
	ErrPermissionDenied = errors.New("capture: permission denied")

	ErrSessionActive      = errors.New("capture: session already active")
	ErrSessionNotReady    = errors.New("capture: session not ready")
	ErrSessionClosed      = errors.New("capture: session closed")
	ErrInvalidState       = errors.New("capture: invalid state for operation")
	ErrDeviceDisconnected = errors.New("capture: device disconnected")
	ErrControllerStopped  = errors.New("capture: controller worker stopped")

	ErrTargetClosed = errors.New("capture: output target closed")
	ErrTargetFull   = errors.New("capture: output target full")
)

// classify maps driver permission failures onto ErrPermissionRevoked and
// leaves every other error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrPermissionRevoked) {
		return fmt.Errorf("%w: %w", ErrPermissionRevoked, err)
	}
	return err
}
