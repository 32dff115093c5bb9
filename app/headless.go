package app

import (
	"context"
	"errors"
	"time"

	"github.com/soocke/peekerguard-go/domain/guard"
)

var (
	headlessPoll        = 250 * time.Millisecond
	headlessStatusEvery = 30 * time.Second
)

// ErrStoppedUnexpectedly is returned by RunHeadless when monitoring ends on
// its own, for example because the capture permission was revoked.
var ErrStoppedUnexpectedly = errors.New("app: monitoring stopped")

// RunHeadless starts monitoring and blocks until ctx is done or the service
// stops itself. Alerts go to the log.
func RunHeadless(ctx context.Context, c *Container) error {
	defer func() { _ = c.Close() }()
	if err := c.Service.Start(); err != nil {
		return err
	}
	logger := c.Logger
	poll := time.NewTicker(headlessPoll)
	defer poll.Stop()
	lastReport := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("headless.shutdown")
			return c.Service.Stop()
		case <-poll.C:
		}
		st := c.Service.Status()
		if !st.Running {
			if st.LastFault != nil {
				return errors.Join(ErrStoppedUnexpectedly, st.LastFault)
			}
			return ErrStoppedUnexpectedly
		}
		if time.Since(lastReport) >= headlessStatusEvery {
			lastReport = time.Now()
			logStatus(c, st)
		}
	}
}

func logStatus(c *Container, st guard.Status) {
	c.Logger.Info("status",
		"message", st.Message,
		"device", st.DeviceState.String(),
		"since", st.Since,
		"last_alert", st.LastAlert,
		"alerts", st.AlertsShown,
		"rate_limited", st.RateLimited,
		"ticks", st.Detection.Ticks,
		"positives", st.Detection.Positives,
		"wake_lock", st.WakeLockHeld,
	)
}
