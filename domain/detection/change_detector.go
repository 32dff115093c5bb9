package detection

import (
	"log/slog"
	"math"
	"sync"

	"github.com/soocke/peekerguard-go/domain/capture"
)

// ChangeDetector flags frames that differ sharply from a slowly adapting
// luminance baseline. A new face or body entering the frame changes a large
// share of pixels at once; lighting drift is absorbed by the baseline.
// Confidence is the changed-pixel ratio scaled so that SaturationRatio maps
// to 1.0.
type ChangeDetector struct {
	logger *slog.Logger

	// PixelDelta is the luminance difference that counts a pixel as changed.
	PixelDelta int
	// MinRatio is the changed-pixel share below which frames are negative.
	MinRatio float64
	// SaturationRatio is the share reported as full confidence.
	SaturationRatio float64
	// Alpha is the baseline EMA weight given to each new frame.
	Alpha float64

	mu     sync.Mutex
	ema    []byte
	cur    []byte
	w, h   int
	frames int
	window []float64
	wIdx   int
	wCount int
}

const (
	defaultPixelDelta      = 18
	defaultMinRatio        = 0.12
	defaultSaturationRatio = 0.30
	defaultAlpha           = 0.05
	ratioWindow            = 16
	minFramesForSpike      = 4
	spikeStdMultiplier     = 2.5
)

// NewChangeDetector returns a detector with default thresholds.
func NewChangeDetector(logger *slog.Logger) *ChangeDetector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChangeDetector{
		logger:          logger,
		PixelDelta:      defaultPixelDelta,
		MinRatio:        defaultMinRatio,
		SaturationRatio: defaultSaturationRatio,
		Alpha:           defaultAlpha,
		window:          make([]float64, ratioWindow),
	}
}

// Reset forgets the baseline.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ema, d.cur = nil, nil
	d.w, d.h = 0, 0
	d.frames, d.wIdx, d.wCount = 0, 0, 0
	for i := range d.window {
		d.window[i] = 0
	}
}

// Analyze implements Detector. The first frame only seeds the baseline.
func (d *ChangeDetector) Analyze(f capture.Frame) Verdict {
	img := f.Image
	if img == nil {
		return Verdict{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h
	if n <= 0 {
		return Verdict{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ema == nil || w != d.w || h != d.h {
		d.ema = make([]byte, n)
		d.cur = make([]byte, n)
		d.w, d.h = w, h
		d.frames = 0
	}
	idx := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			d.cur[idx] = byte((77*uint32(row[i]) + 150*uint32(row[i+1]) + 29*uint32(row[i+2])) >> 8)
			idx++
		}
	}
	if d.frames == 0 {
		copy(d.ema, d.cur)
		d.frames++
		return Verdict{}
	}

	changed := 0
	for i := 0; i < n; i++ {
		diff := int(d.cur[i]) - int(d.ema[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > d.PixelDelta {
			changed++
		}
	}
	ratio := float64(changed) / float64(n)

	mean, std := d.windowStats()
	spike := d.wCount >= minFramesForSpike && ratio > mean+spikeStdMultiplier*std
	positive := ratio >= d.MinRatio && (d.wCount < minFramesForSpike || spike)

	conf := 0.0
	if d.SaturationRatio > 0 {
		conf = math.Min(1, ratio/d.SaturationRatio)
	}

	if !positive {
		d.window[d.wIdx] = ratio
		d.wIdx = (d.wIdx + 1) % len(d.window)
		if d.wCount < len(d.window) {
			d.wCount++
		}
	}
	for i := 0; i < n; i++ {
		diff := int(d.cur[i]) - int(d.ema[i])
		step := int(math.Round(float64(diff) * d.Alpha))
		// Small differences would round to zero and freeze the baseline.
		if step == 0 && diff != 0 {
			step = 1
			if diff < 0 {
				step = -1
			}
		}
		v := int(d.ema[i]) + step
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		d.ema[i] = byte(v)
	}
	d.frames++
	if positive {
		d.logger.Debug("detector.change", "ratio", ratio, "mean", mean, "std", std, "confidence", conf, "trace", f.TraceID)
	}
	return Verdict{Positive: positive, Confidence: conf}
}

func (d *ChangeDetector) windowStats() (mean, std float64) {
	var m2 float64
	for i := 0; i < d.wCount; i++ {
		x := d.window[i]
		if i == 0 {
			mean = x
			continue
		}
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	if d.wCount > 1 {
		std = math.Sqrt(m2 / float64(d.wCount-1))
	}
	return mean, std
}

var _ Detector = (*ChangeDetector)(nil)
