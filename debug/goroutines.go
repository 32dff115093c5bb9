package debug

// Runtime metrics logger. Started only when config.Debug is true.
// Emits goroutine count, stack usage, heap and peak RSS at a fixed interval so
// a leaking capture worker or frame pool shows up in the logs.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// Snapshot is one sample of runtime statistics.
type Snapshot struct {
	Goroutines uint64
	StackInuse uint64
	HeapAlloc  uint64
	HeapInuse  uint64
	NumGC      uint32
	PeakRSS    uint64 // bytes; zero when the platform cannot report it
}

// Sample reads the current runtime statistics.
func Sample() Snapshot {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Snapshot{
		StackInuse: ms.StackInuse,
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
		NumGC:      ms.NumGC,
	}
	if samples[0].Value.Kind() == metrics.KindUint64 {
		s.Goroutines = samples[0].Value.Uint64()
	} else {
		s.Goroutines = uint64(runtime.NumGoroutine())
	}
	if rss, err := peakRSS(); err == nil {
		s.PeakRSS = rss
	}
	return s
}

// StartRuntimeLogger launches a ticker that logs a Snapshot every interval
// until ctx is done. It is lightweight; disable by running without --debug.
func StartRuntimeLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			s := Sample()
			logger.Info("runtime",
				slog.Uint64("goroutines", s.Goroutines),
				slog.Uint64("stack_inuse", s.StackInuse),
				slog.Uint64("heap_alloc", s.HeapAlloc),
				slog.Uint64("heap_inuse", s.HeapInuse),
				slog.Uint64("num_gc", uint64(s.NumGC)),
				slog.Uint64("peak_rss", s.PeakRSS),
			)
		}
	}()
}
