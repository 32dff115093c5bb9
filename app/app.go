package app

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/peekerguard-go/config"
	"github.com/soocke/peekerguard-go/ui/model"
	"github.com/soocke/peekerguard-go/ui/presenter"
	"github.com/soocke/peekerguard-go/ui/theme"
	"github.com/soocke/peekerguard-go/ui/view"
)

const (
	tick = 100 * time.Millisecond
)

// app is the Tk control window. All Tk calls happen on the goroutine that
// runs Start; other goroutines reach it through the dispatch queue.
type app struct {
	title   string
	width   int
	height  int
	logger  *slog.Logger
	afterID string
	quit    atomic.Bool
	closed  bool

	c        *Container
	dispatch *presenter.QueueDispatcher
	root     *view.RootView
	control  *presenter.ControlPresenter
	loop     *presenter.Loop
}

// NewApp builds the container around Tk-backed presentation pieces.
func NewApp(title string, width, height int, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{title: title, width: width, height: height, logger: logger}
	a.dispatch = presenter.NewQueueDispatcher(logger)
	a.root = view.NewRootView(logger)
	c, err := BuildContainer(cfg, logger, Host{
		Surface:    view.NewAlertOverlay(logger),
		Dispatcher: a.dispatch,
		Indicator:  view.NewBannerIndicator(a.root, a.dispatch),
	})
	if err != nil {
		return nil, err
	}
	a.c = c
	return a, nil
}

// Start builds the window, wires presenters and blocks in the Tk main loop.
func (a *app) Start() {
	theme.InitStyles()
	App.WmTitle(a.title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", a.width, a.height))

	a.control = presenter.NewControlPresenter(a.c.RunState, a.c.Service, a.root, a.logger)
	a.root.Build(a.control.Toggle, a.exitHandler)
	a.loop = presenter.NewLoop(
		a.dispatch,
		presenter.NewStatusPresenter(a.c.Service, a.root),
		presenter.NewSessionPresenter(model.NewSessionModel(), a.c.Service, a.root),
		a.scheduleUpdate,
	)
	a.loop.Tick()
	App.Wait()
}

// Quit asks the Tk thread to close the window. Safe from any goroutine.
func (a *app) Quit() { a.quit.Store(true) }

func (a *app) update() {
	if a.quit.Load() {
		a.exitHandler()
		return
	}
	a.loop.Tick()
}

func (a *app) scheduleUpdate() {
	// TclAfter keeps updates on Tk's event loop thread.
	a.afterID = TclAfter(tick, a.update)
}

func (a *app) exitHandler() {
	if a.closed {
		return
	}
	a.closed = true
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	if err := a.c.Close(); err != nil {
		a.logger.Warn("shutdown", "error", err)
	}
	// run pending hides before the window goes away
	a.dispatch.Drain()
	Destroy(App)
}
