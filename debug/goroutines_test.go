package debug

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	s := Sample()
	assert.GreaterOrEqual(t, s.Goroutines, uint64(1))
	assert.NotZero(t, s.HeapAlloc)
	if runtime.GOOS == "linux" {
		assert.NotZero(t, s.PeakRSS)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartRuntimeLogger_StopsWithContext(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	StartRuntimeLogger(ctx, 5*time.Millisecond, logger)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "goroutines=")
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
}
