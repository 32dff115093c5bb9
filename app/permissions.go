package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/soocke/peekerguard-go/config"
	"github.com/soocke/peekerguard-go/domain/guard"
)

// hostPermissions answers guard.PermissionChecker by probing the host on
// every call, so a display that goes away mid-run is noticed.
type hostPermissions struct {
	backend  string
	headless bool
	forced   map[guard.Permission]bool
	getenv   func(string) string
	access   func(path string) bool
}

// NewPermissions returns the probe for cfg. Permissions listed in
// cfg.GrantPermissions are always granted.
func NewPermissions(cfg *config.Config) guard.PermissionChecker {
	p := &hostPermissions{
		backend:  cfg.Backend,
		headless: cfg.Headless,
		forced:   make(map[guard.Permission]bool),
		getenv:   os.Getenv,
		access:   socketAccessible,
	}
	for _, g := range cfg.Granted() {
		p.forced[g] = true
	}
	return p
}

func (p *hostPermissions) Granted(perm guard.Permission) bool {
	if p.forced[perm] {
		return true
	}
	switch perm {
	case guard.PermissionCapture:
		if p.backend == config.BackendSynthetic {
			return true
		}
		return p.displayReachable()
	case guard.PermissionOverlay:
		if p.headless {
			// alerts go to the log
			return true
		}
		return p.getenv("DISPLAY") != "" || p.getenv("WAYLAND_DISPLAY") != "" || !needsDisplayEnv
	}
	return false
}

// displayReachable reports whether the screen can be grabbed.
func (p *hostPermissions) displayReachable() bool {
	if !needsDisplayEnv {
		return true
	}
	display := p.getenv("DISPLAY")
	if display == "" {
		return false
	}
	sock, local := x11Socket(display)
	if !local {
		// TCP display; nothing to probe locally.
		return true
	}
	return p.access(sock)
}

// x11Socket maps a DISPLAY value to its unix socket path. local is false for
// displays that name a remote host.
func x11Socket(display string) (path string, local bool) {
	host, rest, ok := strings.Cut(display, ":")
	if !ok {
		return "", false
	}
	if host != "" && host != "unix" {
		return "", false
	}
	num, _, _ := strings.Cut(rest, ".")
	if num == "" {
		return "", false
	}
	return fmt.Sprintf("/tmp/.X11-unix/X%s", num), true
}
