// Package config loads the engine configuration from TOML.
package config

import (
	"bufio"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/scene"
)

var ErrInvalidConfig = errors.New("invalid config")

const mib = 1 << 20

type Config struct {
	Log    LogConfig    `toml:"log"`
	Memory MemoryConfig `toml:"memory"`
	Scene  SceneConfig  `toml:"scene"`
	Assets AssetsConfig `toml:"assets"`
	App    AppConfig    `toml:"app"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// MemoryConfig holds chain budgets in MiB.
type MemoryConfig struct {
	HostGraphics        uint64 `toml:"host_graphics"`
	HostTransfer        uint64 `toml:"host_transfer"`
	DeviceLocal         uint64 `toml:"device_local"`
	DeviceLocalExternal uint64 `toml:"device_local_external"`
	DefaultAlignment    uint64 `toml:"default_alignment"`
}

type SceneConfig struct {
	Prims     int `toml:"prims"`
	Lights    int `toml:"lights"`
	Materials int `toml:"materials"`
	Textures  int `toml:"textures"`
}

type AssetsConfig struct {
	SceneFile string `toml:"scene_file"`
	Watch     bool   `toml:"watch"`
}

// Device names the memory.Device implementation.
const (
	DeviceHost   = "host"
	DeviceVulkan = "vulkan"
)

type AppConfig struct {
	Name string `toml:"name"`
	// Device is DeviceHost or DeviceVulkan.
	Device string `toml:"device"`
	// Validation enables the Khronos validation layer on the Vulkan device.
	Validation bool `toml:"validation"`
	// Frames is the number of frames to run, 0 runs until interrupted.
	Frames uint64 `toml:"frames"`
}

func Default() *Config {
	sc := scene.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info"},
		Memory: MemoryConfig{
			HostGraphics:        64,
			HostTransfer:        64,
			DeviceLocal:         256,
			DeviceLocalExternal: 16,
			DefaultAlignment:    memory.DefaultAlignment,
		},
		Scene: SceneConfig{
			Prims:     sc.Prims,
			Lights:    sc.Lights,
			Materials: sc.Materials,
			Textures:  sc.Textures,
		},
		App: AppConfig{Name: "Onyx", Device: DeviceHost},
	}
}

// Load reads path on top of the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config %s", path)
	}
	defer f.Close()

	cfg := Default()
	dec := toml.NewDecoder(bufio.NewReader(f))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(err, "config %s:%d:%d", path, row, col)
		}
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	m := c.Memory
	if m.HostGraphics == 0 || m.HostTransfer == 0 || m.DeviceLocal == 0 || m.DeviceLocalExternal == 0 {
		return errors.Wrap(ErrInvalidConfig, "memory budgets must be non-zero")
	}
	if m.DefaultAlignment == 0 || m.DefaultAlignment&(m.DefaultAlignment-1) != 0 {
		return errors.Wrapf(ErrInvalidConfig, "default_alignment %d is not a power of two", m.DefaultAlignment)
	}
	s := c.Scene
	if s.Prims <= 0 || s.Lights <= 0 || s.Materials <= 0 || s.Textures <= 0 {
		return errors.Wrap(ErrInvalidConfig, "scene capacities must be positive")
	}
	if c.App.Device != DeviceHost && c.App.Device != DeviceVulkan {
		return errors.Wrapf(ErrInvalidConfig, "unknown device %q", c.App.Device)
	}
	return nil
}

// Budgets converts the MiB budgets to bytes.
func (c *Config) Budgets() memory.Budgets {
	return memory.Budgets{
		memory.HostGraphics:        c.Memory.HostGraphics * mib,
		memory.HostTransfer:        c.Memory.HostTransfer * mib,
		memory.DeviceLocal:         c.Memory.DeviceLocal * mib,
		memory.DeviceLocalExternal: c.Memory.DeviceLocalExternal * mib,
	}
}

func (c *Config) SceneConfig() scene.Config {
	return scene.Config{
		Prims:     c.Scene.Prims,
		Lights:    c.Scene.Lights,
		Materials: c.Scene.Materials,
		Textures:  c.Scene.Textures,
	}
}

func (c *Config) LogLevel() core.LogLevel {
	return core.ParseLogLevel(c.Log.Level)
}
