//go:build !linux && !freebsd && !openbsd && !netbsd

package app

const needsDisplayEnv = false

func socketAccessible(string) bool { return true }
