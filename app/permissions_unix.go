//go:build linux || freebsd || openbsd || netbsd

package app

import "golang.org/x/sys/unix"

// X11 hosts need DISPLAY before anything can be drawn or grabbed.
const needsDisplayEnv = true

func socketAccessible(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
