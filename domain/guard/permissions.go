package guard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Permission is a host capability the service needs before it may start.
type Permission int

const (
	PermissionCapture Permission = iota
	PermissionOverlay
)

func (p Permission) String() string {
	switch p {
	case PermissionCapture:
		return "capture"
	case PermissionOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// ParsePermission maps a permission name back to its value.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "capture", "camera":
		return PermissionCapture, nil
	case "overlay":
		return PermissionOverlay, nil
	}
	return 0, fmt.Errorf("guard: unknown permission %q", s)
}

// AllPermissions lists what Start checks.
var AllPermissions = []Permission{PermissionCapture, PermissionOverlay}

// PermissionChecker reports whether the host currently grants p.
type PermissionChecker interface {
	Granted(p Permission) bool
}

// PermissionFunc adapts a function to PermissionChecker.
type PermissionFunc func(Permission) bool

func (f PermissionFunc) Granted(p Permission) bool { return f(p) }

// ErrPermissionMissing matches every *PermissionMissingError.
var ErrPermissionMissing = errors.New("guard: permission missing")

// PermissionMissingError lists the permissions that were absent at Start.
type PermissionMissingError struct {
	Missing []Permission
}

func (e *PermissionMissingError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = p.String()
	}
	return "guard: permission missing: " + strings.Join(names, ", ")
}

func (e *PermissionMissingError) Is(target error) bool { return target == ErrPermissionMissing }

// StaticPermissions is a settable PermissionChecker, used for hosts that
// cannot probe and for configuration overrides.
type StaticPermissions struct {
	mu      sync.RWMutex
	granted map[Permission]bool
}

// NewStaticPermissions grants every permission in ps.
func NewStaticPermissions(ps ...Permission) *StaticPermissions {
	s := &StaticPermissions{granted: make(map[Permission]bool)}
	for _, p := range ps {
		s.granted[p] = true
	}
	return s
}

func (s *StaticPermissions) Granted(p Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[p]
}

func (s *StaticPermissions) Set(p Permission, granted bool) {
	s.mu.Lock()
	s.granted[p] = granted
	s.mu.Unlock()
}

func missing(c PermissionChecker) []Permission {
	if c == nil {
		return nil
	}
	var out []Permission
	for _, p := range AllPermissions {
		if !c.Granted(p) {
			out = append(out, p)
		}
	}
	return out
}
