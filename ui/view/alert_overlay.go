package view

import (
	"fmt"
	"log/slog"

	"github.com/soocke/peekerguard-go/assets"
	"github.com/soocke/peekerguard-go/ui/images"
	"github.com/soocke/peekerguard-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

const (
	overlayIconSize = 40
	overlayGeometry = "+40+40"
)

// AlertOverlay is the always-on-top privacy alert window. It implements
// alert.Surface; Show and Hide must run on the Tk thread, which the alert
// presenter guarantees by dispatching through the UI queue.
type AlertOverlay struct {
	logger *slog.Logger
	win    *ToplevelWidget
	icon   []byte
}

func NewAlertOverlay(logger *slog.Logger) *AlertOverlay {
	o := &AlertOverlay{logger: logger}
	if img, err := assets.AlertIcon(); err == nil {
		o.icon = images.EncodePNG(images.ScaleToFit(img, overlayIconSize, overlayIconSize))
	} else if logger != nil {
		logger.Warn("alert icon unavailable", "error", err)
	}
	return o
}

// Show opens the overlay with message, replacing any visible one.
func (o *AlertOverlay) Show(message string) (err error) {
	defer recoverTk(&err)
	o.destroy()
	win := App.Toplevel(Borderwidth(2), Background(theme.ColorDanger))
	win.WmTitle("Privacy Alert")
	WmGeometry(win.Window, overlayGeometry)
	WmAttributes(win.Window, "-topmost", 1)
	o.win = win

	col := 0
	if len(o.icon) > 0 {
		icon := win.Label(Image(NewPhoto(Data(o.icon))), Background(theme.ColorDanger))
		Grid(icon, Row(0), Column(0), Padx("2m"), Pady("2m"))
		col = 1
	}
	msg := win.Label(Txt(message), Background(theme.ColorDanger), Foreground(theme.ColorAlertText), Wraplength("90m"))
	Grid(msg, Row(0), Column(col), Sticky("we"), Padx("2m"), Pady("2m"))
	Bind(win, "<Button-1>", Command(func() { o.destroy() }))
	return nil
}

// Hide closes the overlay. It is a no-op when nothing is shown.
func (o *AlertOverlay) Hide() (err error) {
	defer recoverTk(&err)
	o.destroy()
	return nil
}

// Visible reports whether the overlay window exists.
func (o *AlertOverlay) Visible() bool { return o.win != nil }

func (o *AlertOverlay) destroy() {
	if o.win != nil {
		Destroy(o.win)
		o.win = nil
	}
}

// recoverTk turns a Tk panic (for example a destroyed parent) into an error.
func recoverTk(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("view: tk: %v", r)
	}
}
