//go:build !linux && !darwin && !windows

package debug

import "errors"

func peakRSS() (uint64, error) { return 0, errors.New("debug: peak rss unsupported") }
