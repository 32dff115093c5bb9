package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soocke/peekerguard-go/domain/alert"
	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/detection"
	"github.com/soocke/peekerguard-go/domain/guard"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

// Backends accepted by Config.Backend.
const (
	BackendSynthetic = "synthetic"
	BackendScreen    = "screen"
)

// Config holds runtime configuration for the sensing service and the host.
// Fields may be loaded from a YAML or JSON file and overridden by flags.
type Config struct {
	Debug     bool   `json:"debug" yaml:"debug"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // json, text
	Headless  bool   `json:"headless" yaml:"headless"`

	// Capture
	Backend      string `json:"backend" yaml:"backend"` // synthetic, screen
	Facing       string `json:"facing" yaml:"facing"`
	OutputWidth  int    `json:"output_width" yaml:"output_width"`
	OutputHeight int    `json:"output_height" yaml:"output_height"`

	// Detection
	DetectionIntervalMs int     `json:"detection_interval_ms" yaml:"detection_interval_ms"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// Alerts
	AlertDurationMs    int    `json:"alert_duration_ms" yaml:"alert_duration_ms"`
	AlertWindowSeconds int    `json:"alert_window_seconds" yaml:"alert_window_seconds"`
	MaxAlertsPerWindow int    `json:"max_alerts_per_window" yaml:"max_alerts_per_window"`
	AlertMessage       string `json:"alert_message" yaml:"alert_message"`

	// Lifecycle
	WakeLockMinutes     int `json:"wake_lock_minutes" yaml:"wake_lock_minutes"`
	WorkerJoinTimeoutMs int `json:"worker_join_timeout_ms" yaml:"worker_join_timeout_ms"`

	// GrantPermissions marks permissions as granted regardless of what the
	// platform probe reports. Values: capture, overlay.
	GrantPermissions []string `json:"grant_permissions,omitempty" yaml:"grant_permissions,omitempty"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:               false,
		LogLevel:            "info",
		LogFormat:           "json",
		Headless:            false,
		Backend:             BackendScreen,
		Facing:              capture.FacingDisplay.String(),
		OutputWidth:         640,
		OutputHeight:        480,
		DetectionIntervalMs: 2000,
		ConfidenceThreshold: 0.7,
		AlertDurationMs:     3000,
		AlertWindowSeconds:  60,
		MaxAlertsPerWindow:  10,
		AlertMessage:        alert.DefaultMessage,
		WakeLockMinutes:     10,
		WorkerJoinTimeoutMs: 3000,
	}
}

// Validate clamps/normalizes values to safe ranges. It fails only on values
// that cannot be repaired: an unknown backend, facing or permission name.
func (c *Config) Validate() error {
	def := DefaultConfig()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "text" {
		c.LogFormat = def.LogFormat
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = def.Backend
	case BackendSynthetic, BackendScreen:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Facing == "" {
		c.Facing = def.Facing
	}
	if _, err := capture.ParseFacing(c.Facing); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.OutputWidth <= 0 || c.OutputHeight <= 0 {
		c.OutputWidth, c.OutputHeight = def.OutputWidth, def.OutputHeight
	}
	if c.DetectionIntervalMs < 100 {
		c.DetectionIntervalMs = def.DetectionIntervalMs
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.AlertDurationMs <= 0 {
		c.AlertDurationMs = def.AlertDurationMs
	}
	if c.AlertWindowSeconds <= 0 {
		c.AlertWindowSeconds = def.AlertWindowSeconds
	}
	if c.MaxAlertsPerWindow <= 0 {
		c.MaxAlertsPerWindow = def.MaxAlertsPerWindow
	}
	if strings.TrimSpace(c.AlertMessage) == "" {
		c.AlertMessage = def.AlertMessage
	}
	if c.WakeLockMinutes <= 0 {
		c.WakeLockMinutes = def.WakeLockMinutes
	}
	if c.WorkerJoinTimeoutMs <= 0 {
		c.WorkerJoinTimeoutMs = def.WorkerJoinTimeoutMs
	}
	for _, p := range c.GrantPermissions {
		if _, err := guard.ParsePermission(p); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Guard converts the file-level settings into the service configuration.
// Call Validate first.
func (c *Config) Guard() guard.Config {
	facing, _ := capture.ParseFacing(c.Facing)
	out := capture.OutputSpec{Width: c.OutputWidth, Height: c.OutputHeight, MaxImages: 1}
	return guard.Config{
		Lifecycle: lifecycle.Config{
			WorkerName:       lifecycle.DefaultConfig().WorkerName,
			WakeLockDuration: time.Duration(c.WakeLockMinutes) * time.Minute,
			JoinTimeout:      time.Duration(c.WorkerJoinTimeoutMs) * time.Millisecond,
		},
		Capture: capture.Config{Facing: facing, Output: out},
		Detection: detection.Config{
			Interval:  time.Duration(c.DetectionIntervalMs) * time.Millisecond,
			Threshold: c.ConfidenceThreshold,
			Output:    out,
		},
		AlertWindow:   time.Duration(c.AlertWindowSeconds) * time.Second,
		MaxAlerts:     c.MaxAlertsPerWindow,
		AlertDuration: time.Duration(c.AlertDurationMs) * time.Millisecond,
		AlertMessage:  c.AlertMessage,
	}
}

// Granted returns the permissions forced on by GrantPermissions.
func (c *Config) Granted() []guard.Permission {
	var out []guard.Permission
	for _, s := range c.GrantPermissions {
		if p, err := guard.ParsePermission(s); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from path. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON. If the file does not
// exist it returns DefaultConfig(). On decode error it returns defaults
// with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to path, as YAML or JSON by extension.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
