package detection

import (
	"time"

	"github.com/soocke/peekerguard-go/domain/capture"
)

// Verdict is a detector's opinion about one frame.
type Verdict struct {
	Positive   bool
	Confidence float64
}

// Detector decides whether a frame shows an unauthorized viewer. Analyze runs
// on the capture worker and must return well within the detection interval.
// The frame is only valid for the duration of the call.
type Detector interface {
	Analyze(capture.Frame) Verdict
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(capture.Frame) Verdict

func (f DetectorFunc) Analyze(fr capture.Frame) Verdict { return f(fr) }

// Tick is the outcome of one scheduler period that produced a frame. The
// frame is released after the sink returns; sinks must not keep it.
type Tick struct {
	Timestamp time.Time
	Frame     capture.Frame
	Verdict   Verdict
	TraceID   string
}

// Sink receives ticks whose verdict passed the confidence threshold.
type Sink interface {
	OnDetection(Tick)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Tick)

func (f SinkFunc) OnDetection(t Tick) { f(t) }
