package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/peekerguard-go/config"
	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/capture/screen"
	"github.com/soocke/peekerguard-go/domain/capture/synthetic"
	"github.com/soocke/peekerguard-go/domain/guard"
)

func syntheticConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendSynthetic
	cfg.Facing = "front"
	cfg.Headless = true
	cfg.DetectionIntervalMs = 100
	cfg.WorkerJoinTimeoutMs = 1000
	return cfg
}

func TestBuildContainer_SelectsBackend(t *testing.T) {
	c, err := BuildContainer(syntheticConfig(), nil, Host{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.IsType(t, &synthetic.Driver{}, c.Driver)

	cfg := syntheticConfig()
	cfg.Backend = config.BackendScreen
	c2, err := BuildContainer(cfg, nil, Host{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c2.Close() })
	assert.IsType(t, &screen.Driver{}, c2.Driver)

	cfg.Backend = "webcam"
	_, err = BuildContainer(cfg, nil, Host{})
	assert.Error(t, err)
}

func TestRunHeadless_StopsOnCancel(t *testing.T) {
	c, err := BuildContainer(syntheticConfig(), nil, Host{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunHeadless(ctx, c) }()

	require.Eventually(t, func() bool {
		return c.Service.Status().DeviceState == capture.StateReady
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return c.Service.Status().Detection.Analyzed > 0
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("headless run did not stop")
	}
	assert.False(t, c.RunState.Running())
	assert.Equal(t, 0, c.Driver.(*synthetic.Driver).OpenHandles())
}

func TestRunHeadless_ReturnsWhenPermissionRevoked(t *testing.T) {
	c, err := BuildContainer(syntheticConfig(), nil, Host{})
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- RunHeadless(context.Background(), c) }()

	require.Eventually(t, func() bool {
		return c.Service.Status().DeviceState == capture.StateReady
	}, 2*time.Second, 5*time.Millisecond)
	c.Driver.(*synthetic.Driver).RevokePermission()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrStoppedUnexpectedly)
		assert.ErrorIs(t, err, capture.ErrPermissionRevoked)
	case <-time.After(5 * time.Second):
		t.Fatal("headless run did not notice the fault")
	}
}

func TestRunHeadless_RefusesWithoutPermissions(t *testing.T) {
	cfg := syntheticConfig()
	c, err := BuildContainer(cfg, nil, Host{})
	require.NoError(t, err)
	// Rebuild the service around a checker that grants nothing.
	c.Service = guard.NewService(cfg.Guard(), guard.Deps{
		Driver:      c.Driver,
		Detector:    c.Detector,
		Permissions: guard.NewStaticPermissions(),
		RunState:    c.RunState,
	})
	err = RunHeadless(context.Background(), c)
	require.True(t, errors.Is(err, guard.ErrPermissionMissing))
}

func TestPermissions(t *testing.T) {
	env := map[string]string{}
	sockets := map[string]bool{}
	probe := func(cfg *config.Config) *hostPermissions {
		p := NewPermissions(cfg).(*hostPermissions)
		p.getenv = func(k string) string { return env[k] }
		p.access = func(path string) bool { return sockets[path] }
		return p
	}

	cfg := syntheticConfig()
	p := probe(cfg)
	assert.True(t, p.Granted(guard.PermissionCapture), "synthetic needs nothing")
	assert.True(t, p.Granted(guard.PermissionOverlay), "headless alerts go to the log")

	cfg.Backend = config.BackendScreen
	cfg.Headless = false
	p = probe(cfg)
	if needsDisplayEnv {
		assert.False(t, p.Granted(guard.PermissionCapture))
		assert.False(t, p.Granted(guard.PermissionOverlay))

		env["DISPLAY"] = ":1"
		assert.False(t, p.Granted(guard.PermissionCapture), "socket missing")
		assert.True(t, p.Granted(guard.PermissionOverlay))
		sockets["/tmp/.X11-unix/X1"] = true
		assert.True(t, p.Granted(guard.PermissionCapture))
	}

	env = map[string]string{}
	cfg.GrantPermissions = []string{"capture", "overlay"}
	p = probe(cfg)
	assert.True(t, p.Granted(guard.PermissionCapture))
	assert.True(t, p.Granted(guard.PermissionOverlay))
}

func TestX11Socket(t *testing.T) {
	cases := []struct {
		display string
		path    string
		local   bool
	}{
		{":0", "/tmp/.X11-unix/X0", true},
		{":1.0", "/tmp/.X11-unix/X1", true},
		{"unix:2", "/tmp/.X11-unix/X2", true},
		{"localhost:10.0", "", false},
		{"garbage", "", false},
		{":", "", false},
	}
	for _, tc := range cases {
		path, local := x11Socket(tc.display)
		assert.Equal(t, tc.path, path, tc.display)
		assert.Equal(t, tc.local, local, tc.display)
	}
}
