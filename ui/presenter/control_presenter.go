package presenter

import (
	"errors"
	"log/slog"

	"github.com/soocke/peekerguard-go/domain/guard"
)

// RunningModel reports whether monitoring is running.
type RunningModel interface {
	Running() bool
}

// Monitor narrows what the presenter needs from the sensing service.
type Monitor interface {
	Start() error
	Stop() error
}

// ControlView updates the widgets affected by starting or stopping.
type ControlView interface {
	SetRunning(bool)
	ShowNotice(string)
}

// ControlPresenter owns the Start/Stop toggle.
type ControlPresenter struct {
	model   RunningModel
	service Monitor
	view    ControlView
	logger  *slog.Logger
}

func NewControlPresenter(model RunningModel, service Monitor, view ControlView, logger *slog.Logger) *ControlPresenter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ControlPresenter{model: model, service: service, view: view, logger: logger}
}

// Enable starts monitoring. Idempotent. A refused start leaves the view in
// the stopped state with a notice naming what is missing.
func (c *ControlPresenter) Enable() {
	if c == nil || c.model == nil || c.service == nil || c.view == nil {
		return
	}
	if c.model.Running() {
		return
	}
	if err := c.service.Start(); err != nil {
		c.logger.Warn("start refused", "error", err)
		c.view.SetRunning(false)
		c.view.ShowNotice(notice(err))
		return
	}
	c.view.SetRunning(true)
	c.view.ShowNotice("")
}

// Disable stops monitoring. Idempotent.
func (c *ControlPresenter) Disable() {
	if c == nil || c.model == nil || c.service == nil || c.view == nil {
		return
	}
	if !c.model.Running() {
		c.view.SetRunning(false)
		return
	}
	if err := c.service.Stop(); err != nil {
		c.logger.Warn("stop", "error", err)
	}
	c.view.SetRunning(false)
}

// Toggle flips the running state delegating to Enable/Disable.
func (c *ControlPresenter) Toggle() {
	if c == nil || c.model == nil {
		return
	}
	if c.model.Running() {
		c.Disable()
		return
	}
	c.Enable()
}

func notice(err error) string {
	var pm *guard.PermissionMissingError
	if errors.As(err, &pm) {
		s := "Grant "
		for i, p := range pm.Missing {
			if i > 0 {
				s += " and "
			}
			s += p.String()
		}
		return s + " permission to start monitoring"
	}
	return "Could not start monitoring"
}
