package capture

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Frame is one still image delivered by a capture. The Image buffer comes
// from the frame pool; call Release once the frame is no longer needed.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
	DeviceID   string
	TraceID    string
}

// Release returns the frame's buffer to the pool. The frame must not be used
// afterwards.
func (f Frame) Release() { RecycleFrame(f.Image) }

// Facing is the lens orientation a device reports.
type Facing int

const (
	FacingFront Facing = iota
	FacingBack
	FacingExternal
	FacingDisplay
)

func (f Facing) String() string {
	switch f {
	case FacingFront:
		return "front"
	case FacingBack:
		return "back"
	case FacingExternal:
		return "external"
	case FacingDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// ParseFacing accepts the names produced by Facing.String.
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "":
		return FacingFront, nil
	case "back":
		return FacingBack, nil
	case "external":
		return FacingExternal, nil
	case "display":
		return FacingDisplay, nil
	}
	return FacingFront, fmt.Errorf("capture: unknown facing %q", s)
}

// DeviceInfo describes an enumerable capture device.
type DeviceInfo struct {
	ID     string
	Name   string
	Facing Facing
}

// OutputSpec sizes the capture pipeline. MaxImages is the number of frames
// the output target buffers; the controller always uses one.
type OutputSpec struct {
	Width     int
	Height    int
	MaxImages int
}

// DefaultOutputSpec is a 640x480 single-image pipeline.
func DefaultOutputSpec() OutputSpec {
	return OutputSpec{Width: 640, Height: 480, MaxImages: 1}
}

func (s OutputSpec) normalized() OutputSpec {
	def := DefaultOutputSpec()
	if s.Width <= 0 {
		s.Width = def.Width
	}
	if s.Height <= 0 {
		s.Height = def.Height
	}
	s.MaxImages = 1
	return s
}

// Bounds is the rectangle every frame written to the target must cover.
func (s OutputSpec) Bounds() image.Rectangle { return image.Rect(0, 0, s.Width, s.Height) }

// Stats summarises controller activity for status displays.
type Stats struct {
	Opens           uint64
	Captures        uint64
	BusyRejections  uint64
	CaptureFailures uint64
	DeviceErrors    uint64
	HandlesOpen     int64
	LastCapture     time.Time
}
