package capture

import (
	"image"
	"sync"
)

// Frames are captured every couple of seconds at a fixed size, so buffers
// are pooled instead of handing a fresh 640x480x4 slice to the GC each tick.
// Drivers obtain buffers with AcquireFrame; consumers return them through
// Frame.Release or RecycleFrame. A frame that is never recycled is simply
// collected.

var framePool sync.Pool // stores *image.RGBA

// AcquireFrame returns an RGBA image covering rect whose Pix slice may be
// reused from an earlier frame. Pixel contents are unspecified.
func AcquireFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		return &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	}
	img.Stride = w * 4
	img.Rect = rect
	img.Pix = img.Pix[:needed]
	return img
}

// RecycleFrame returns img to the pool. Nil and empty images are ignored.
func RecycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}
