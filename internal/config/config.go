package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/garden/internal/layout"
	"github.com/msalah0e/garden/internal/render"
)

// Config holds garden configuration.
type Config struct {
	Physics  layout.Params  `toml:"physics"`
	Viewport ViewportConfig `toml:"viewport"`
	Render   render.Options `toml:"render"`
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
}

// ViewportConfig sizes the headless viewport and bounds the camera.
type ViewportConfig struct {
	Width      float64 `toml:"width"`
	Height     float64 `toml:"height"`
	MinZoom    float64 `toml:"min_zoom"`
	MaxZoom    float64 `toml:"max_zoom"`
	FitPadding float64 `toml:"fit_padding"`
}

// Size returns the viewport extent.
func (v ViewportConfig) Size() layout.Size {
	return layout.Size{Width: v.Width, Height: v.Height}
}

// ServerConfig controls the live viewer. FPS is the simulation tick rate
// while the layout moves; MaxFrameRate and Burst throttle scene broadcasts.
// AllowedOrigins feeds CORS for the REST API and the websocket handshake.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	FPS            int      `toml:"fps"`
	MaxFrameRate   float64  `toml:"max_frame_rate"`
	Burst          int      `toml:"burst"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DataConfig points at the entity/relationship file.
type DataConfig struct {
	Path  string `toml:"path"`  // empty means graph.json next to config.toml
	Watch bool   `toml:"watch"` // rebuild when the file changes
}

// Default returns the default configuration.
func Default() *Config {
	physics := layout.DefaultParams()
	physics.MaxTicks = 2000
	return &Config{
		Physics:  physics,
		Viewport: ViewportConfig{Width: 800, Height: 600, MinZoom: 0.1, MaxZoom: 5, FitPadding: 50},
		Render:   render.DefaultOptions(),
		Server:   ServerConfig{Addr: "127.0.0.1:8080", FPS: 60, MaxFrameRate: 30, Burst: 5},
	}
}

// ConfigDir returns the garden config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "garden")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, falling back to defaults when it is missing
// or unreadable.
func Load() *Config {
	cfg, err := LoadFile(Path())
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads one config file over the defaults. A missing file is not
// an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces values that would stall or break the engine.
func (c *Config) normalize() {
	d := Default()
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport.Width, c.Viewport.Height = d.Viewport.Width, d.Viewport.Height
	}
	if c.Physics.Damping <= 0 || c.Physics.Damping >= 1 {
		c.Physics.Damping = d.Physics.Damping
	}
	if c.Physics.Epsilon <= 0 {
		c.Physics.Epsilon = d.Physics.Epsilon
	}
	if c.Server.FPS <= 0 {
		c.Server.FPS = d.Server.FPS
	}
	if c.Server.MaxFrameRate <= 0 {
		c.Server.MaxFrameRate = d.Server.MaxFrameRate
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = 1
	}
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
