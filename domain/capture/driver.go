package capture

// Event is a notification raised by a driver. Drivers may raise events from
// any goroutine; the controller re-posts them onto its worker before acting.
type Event interface{ isEvent() }

type (
	// EventOpened: Driver.Open succeeded and the device is usable.
	EventOpened struct{ Device Device }
	// EventDisconnected: the device went away.
	EventDisconnected struct{}
	// EventDeviceError: the device reported a fatal error.
	EventDeviceError struct{ Err error }
	// EventConfigured: Device.CreateSession succeeded.
	EventConfigured struct{ Session Session }
	// EventConfigureFailed: the session could not be built.
	EventConfigureFailed struct{ Err error }
	// EventCaptureCompleted: a still image was written to the output target.
	EventCaptureCompleted struct{}
	// EventCaptureFailed: the capture request failed.
	EventCaptureFailed struct{ Err error }
)

func (EventOpened) isEvent()           {}
func (EventDisconnected) isEvent()     {}
func (EventDeviceError) isEvent()      {}
func (EventConfigured) isEvent()       {}
func (EventConfigureFailed) isEvent()  {}
func (EventCaptureCompleted) isEvent() {}
func (EventCaptureFailed) isEvent()    {}

// EventSink receives driver events.
type EventSink func(Event)

// Driver enumerates and opens capture devices.
type Driver interface {
	Devices() ([]DeviceInfo, error)
	// Open starts opening the device with the given id. Completion is
	// reported through sink as EventOpened, EventDeviceError or
	// EventDisconnected. A non-nil return means nothing was started.
	Open(id string, sink EventSink) error
}

// Device is an opened capture device.
type Device interface {
	Info() DeviceInfo
	// CreateSession builds a capture session writing into target and reports
	// EventConfigured or EventConfigureFailed through sink.
	CreateSession(target *OutputTarget, sink EventSink) error
	Close() error
}

// Session issues still captures into its output target.
type Session interface {
	// Capture requests one still image. The driver writes it to target and
	// reports EventCaptureCompleted or EventCaptureFailed through sink.
	Capture(target *OutputTarget, sink EventSink) error
	Close() error
}
