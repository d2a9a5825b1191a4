// Package config handles hudbridge configuration loading, validation and
// hot reload.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "16ms", "1s" or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '16ms', '1s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the hudbridge configuration.
// Loaded from ~/.config/hudbridge/hudbridge.toml
type Config struct {
	// Debug turns contract violations (such as a material without a
	// "Texture" parameter) into panics.
	Debug    bool           `toml:"debug"`
	Render   RenderConfig   `toml:"render"`
	Input    InputConfig    `toml:"input"`
	Display  DisplayConfig  `toml:"display"`
	External ExternalConfig `toml:"external"`
	Audio    AudioConfig    `toml:"audio"`
	Control  ControlConfig  `toml:"control"`
	Log      LogConfig      `toml:"log"`
}

// RenderConfig controls the off-screen render target.
type RenderConfig struct {
	Width         int      `toml:"width"`
	Height        int      `toml:"height"`
	Fullscreen    bool     `toml:"fullscreen"`     // Track the host viewport size
	FrameInterval Duration `toml:"frame_interval"` // Presentation cadence for hosts without their own loop
	Background    string   `toml:"background"`     // "#rrggbbaa", cleared before every frame
	DisabledDim   float64  `toml:"disabled_dim"`   // 0.0-1.0, darkening applied to disabled surfaces
}

// InputConfig controls host input forwarding.
type InputConfig struct {
	// ConsumeAlpha is the minimum alpha (0-255) of the last frame under the
	// pointer for the overlay to claim a pointer event.
	ConsumeAlpha int `toml:"consume_alpha"`
}

// DisplayConfig controls the stacking manager.
type DisplayConfig struct {
	DragMarkerStyle string `toml:"drag_marker_style"` // Style string identifying drag feedback nodes
	FocusDeniedLog  bool   `toml:"focus_denied_log"`  // Log when a modal window keeps focus
}

// ExternalConfig selects how externalized windows are presented.
type ExternalConfig struct {
	Backend    string `toml:"backend"`     // "headless" or "gtk"
	LayerShell bool   `toml:"layer_shell"` // Place GTK windows on the layer-shell overlay layer
}

// AudioConfig controls feedback sounds.
type AudioConfig struct {
	Enabled     bool   `toml:"enabled"`
	Volume      int    `toml:"volume"`       // 0-100
	FocusDenied string `toml:"focus_denied"` // WAV, OGG or MP3 played when a modal keeps focus
}

// ControlConfig controls the D-Bus control service.
type ControlConfig struct {
	DBus    bool   `toml:"dbus"`     // Export the manager on the session bus
	BusName string `toml:"bus_name"` // Well-known name to claim
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Backend names for externalized windows.
const (
	BackendHeadless = "headless"
	BackendGTK      = "gtk"
)

// DefaultBusName is the session bus name claimed by the control service.
const DefaultBusName = "io.github.jmylchreest.HudBridge"

// DefaultDragMarkerStyle is the style string drag-and-drop code tags its
// feedback node with.
const DefaultDragMarkerStyle = "dragimage:true;"

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Render: RenderConfig{
			Width:         1280,
			Height:        720,
			Fullscreen:    false,
			FrameInterval: Duration(16 * time.Millisecond),
			Background:    "#00000000",
			DisabledDim:   0.35,
		},
		Input: InputConfig{
			ConsumeAlpha: 1,
		},
		Display: DisplayConfig{
			DragMarkerStyle: DefaultDragMarkerStyle,
			FocusDeniedLog:  true,
		},
		External: ExternalConfig{
			Backend:    BackendHeadless,
			LayerShell: false,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  80,
		},
		Control: ControlConfig{
			DBus:    false,
			BusName: DefaultBusName,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the path to the config file.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "hudbridge", "hudbridge.toml"), nil
}

// Load loads the configuration from path, or from DefaultPath when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Render.Width < 1 || c.Render.Width > 16384 {
		return fmt.Errorf("render width must be between 1 and 16384, got %d", c.Render.Width)
	}
	if c.Render.Height < 1 || c.Render.Height > 16384 {
		return fmt.Errorf("render height must be between 1 and 16384, got %d", c.Render.Height)
	}
	if c.Render.FrameInterval.Duration() <= 0 {
		return fmt.Errorf("frame_interval must be positive, got %s", c.Render.FrameInterval.Duration())
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("invalid background: %w", err)
	}
	if c.Render.DisabledDim < 0 || c.Render.DisabledDim > 1 {
		return fmt.Errorf("disabled_dim must be between 0 and 1, got %g", c.Render.DisabledDim)
	}

	if c.Input.ConsumeAlpha < 0 || c.Input.ConsumeAlpha > 255 {
		return fmt.Errorf("consume_alpha must be between 0 and 255, got %d", c.Input.ConsumeAlpha)
	}

	if strings.TrimSpace(c.Display.DragMarkerStyle) == "" {
		return errors.New("drag_marker_style cannot be empty")
	}

	switch c.External.Backend {
	case BackendHeadless, BackendGTK:
	default:
		return fmt.Errorf("invalid external backend %q, must be one of: %s, %s",
			c.External.Backend, BackendHeadless, BackendGTK)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.Control.DBus && strings.TrimSpace(c.Control.BusName) == "" {
		return errors.New("control bus_name cannot be empty when dbus is enabled")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
