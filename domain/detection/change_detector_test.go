package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soocke/peekerguard-go/domain/capture"
)

func flatFrame(w, h int, lum byte) capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = lum, lum, lum, 255
	}
	return capture.Frame{Image: img}
}

// paint sets a rectangle of f to lum.
func paint(f capture.Frame, r image.Rectangle, lum byte) capture.Frame {
	img := f.Image
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = lum, lum, lum
		}
	}
	return f
}

func TestChangeDetector_StaticSceneIsNegative(t *testing.T) {
	d := NewChangeDetector(nil)
	for i := 0; i < 10; i++ {
		v := d.Analyze(flatFrame(32, 24, 90))
		assert.False(t, v.Positive, "frame %d", i)
		assert.Zero(t, v.Confidence)
	}
}

func TestChangeDetector_LargeIntrusionIsPositive(t *testing.T) {
	d := NewChangeDetector(nil)
	for i := 0; i < 6; i++ {
		d.Analyze(flatFrame(40, 30, 80))
	}
	// A bright object covering half the frame.
	v := d.Analyze(paint(flatFrame(40, 30, 80), image.Rect(0, 0, 20, 30), 220))
	assert.True(t, v.Positive)
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
}

func TestChangeDetector_SmallChangeIsIgnored(t *testing.T) {
	d := NewChangeDetector(nil)
	for i := 0; i < 6; i++ {
		d.Analyze(flatFrame(40, 30, 80))
	}
	v := d.Analyze(paint(flatFrame(40, 30, 80), image.Rect(0, 0, 4, 4), 220))
	assert.False(t, v.Positive)
	assert.Less(t, v.Confidence, 0.7)
}

func TestChangeDetector_GradualDriftIsAbsorbed(t *testing.T) {
	d := NewChangeDetector(nil)
	lum := byte(60)
	for i := 0; i < 40; i++ {
		v := d.Analyze(flatFrame(16, 16, lum))
		assert.False(t, v.Positive, "frame %d lum %d", i, lum)
		lum++
	}
}

func TestChangeDetector_ResetAndResize(t *testing.T) {
	d := NewChangeDetector(nil)
	d.Analyze(flatFrame(8, 8, 10))
	// A new size reseeds the baseline rather than comparing mismatched frames.
	v := d.Analyze(flatFrame(16, 8, 250))
	assert.False(t, v.Positive)
	d.Reset()
	v = d.Analyze(flatFrame(16, 8, 10))
	assert.False(t, v.Positive)
	assert.False(t, d.Analyze(capture.Frame{}).Positive)
}
