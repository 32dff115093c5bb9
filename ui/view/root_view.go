package view

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soocke/peekerguard-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the control window and exposes the view contracts the
// presenters need. Every method must run on the Tk thread.
type RootView struct {
	logger *slog.Logger

	Session SessionStats

	banner     *TLabelWidget
	status     *TLabelWidget
	perms      *LabelWidget
	device     *LabelWidget
	lastAlert  *LabelWidget
	counters   *LabelWidget
	notice     *LabelWidget
	toggle     *TButtonWidget
	running    bool
	permsOK    bool
	bannerText string
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger, permsOK: true}
}

// Build constructs the layout. Handlers are invoked on user actions.
func (rv *RootView) Build(onToggle func(), onExit func()) {
	if rv == nil {
		return
	}
	rv.banner = TLabel(Txt(""), Style(theme.StyleMutedLabel))
	Grid(rv.banner, Row(0), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	rv.status = TLabel(Txt("..."), Style(theme.StyleIdleLabel))
	Grid(rv.status, Row(1), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	rv.perms = Label(Txt("Permissions: ?"), Anchor("w"))
	Grid(rv.perms, Row(2), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
	rv.device = Label(Txt("Device: idle"), Anchor("w"), Width(22))
	Grid(rv.device, Row(3), Column(0), Sticky("w"), Padx("0.4m"))
	rv.lastAlert = Label(Txt("Last alert: never"), Anchor("w"), Width(26))
	Grid(rv.lastAlert, Row(3), Column(1), Sticky("w"), Padx("0.4m"))
	rv.counters = Label(Txt("Alerts: 0 (0 rate limited)"), Anchor("w"))
	Grid(rv.counters, Row(4), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))

	rv.Session = NewSessionStats(nil, 5, 0)

	btnFrame := Frame()
	Grid(btnFrame, Row(6), Column(0), Columnspan(3), Sticky("we"), Padx("0.3m"), Pady("0.5m"))
	rv.toggle = TButton(Txt("Start monitoring"), Style(theme.ToggleStyle(false)), Command(onToggle))
	Grid(rv.toggle, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Exit"), Command(onExit))
	Grid(exitBtn, In(btnFrame), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	rv.notice = Label(Txt(""), Anchor("w"), Foreground(theme.ColorDanger))
	Grid(rv.notice, Row(7), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
}

// --- StatusView ---

func (rv *RootView) SetStatusLine(text string) {
	if rv != nil && rv.status != nil {
		rv.status.Configure(Txt("Status: " + text))
	}
}

func (rv *RootView) SetPermissions(capture, overlay bool) {
	if rv == nil || rv.perms == nil {
		return
	}
	rv.permsOK = capture && overlay
	rv.perms.Configure(Txt(fmt.Sprintf("Permissions: capture %s, overlay %s", granted(capture), granted(overlay))))
	rv.restyle()
}

func (rv *RootView) SetDevice(state string) {
	if rv != nil && rv.device != nil {
		rv.device.Configure(Txt("Device: " + state))
	}
}

func (rv *RootView) SetLastAlert(text string) {
	if rv != nil && rv.lastAlert != nil {
		rv.lastAlert.Configure(Txt("Last alert: " + text))
	}
}

func (rv *RootView) SetCounters(alerts, rateLimited uint64) {
	if rv != nil && rv.counters != nil {
		rv.counters.Configure(Txt(fmt.Sprintf("Alerts: %d (%d rate limited)", alerts, rateLimited)))
	}
}

// SetRunning is shared by the status and control presenters.
func (rv *RootView) SetRunning(running bool) {
	if rv == nil || rv.toggle == nil {
		return
	}
	rv.running = running
	label := "Start monitoring"
	if running {
		label = "Stop monitoring"
	}
	rv.toggle.Configure(Txt(label), Style(theme.ToggleStyle(running)))
	rv.restyle()
}

// --- ControlView ---

func (rv *RootView) ShowNotice(text string) {
	if rv != nil && rv.notice != nil {
		rv.notice.Configure(Txt(text))
	}
}

// --- SessionView ---

func (rv *RootView) SetSession(session, total time.Duration, alerts uint64) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
	rv.Session.SetAlerts(alerts)
}

// SetBanner shows the background-activity notice; empty text clears it.
func (rv *RootView) SetBanner(title, text string) {
	if rv == nil || rv.banner == nil {
		return
	}
	rv.bannerText = title
	if text != "" {
		rv.bannerText = title + ": " + text
	}
	rv.banner.Configure(Txt(rv.bannerText))
	if title == "" {
		App.WmTitle("PeekerGuard")
	} else {
		App.WmTitle(title)
	}
}

func (rv *RootView) restyle() {
	if rv.status != nil {
		rv.status.Configure(Style(theme.StatusStyle(rv.running, rv.permsOK)))
	}
}

func granted(ok bool) string {
	if ok {
		return "granted"
	}
	return "missing"
}
