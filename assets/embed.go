package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// AlertIconPNG contains the raw PNG bytes of the warning icon shown on the
// alert overlay.
//
//go:embed alert_icon.png
var AlertIconPNG []byte

// AlertIcon decodes the embedded PNG into an image.Image.
func AlertIcon() (image.Image, error) {
	if len(AlertIconPNG) == 0 {
		return nil, fmt.Errorf("embedded alert_icon.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(AlertIconPNG))
	if err != nil {
		return nil, err
	}
	return img, nil
}
