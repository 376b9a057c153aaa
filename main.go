/*
Onyx demo: loads a config, builds the memory manager on the configured
device and runs the testbed scene until interrupted.

	onyx [config.toml] [host|vulkan]
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine"
	"github.com/spaghettifunk/onyx/engine/config"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/renderer/vulkan"
	"github.com/spaghettifunk/onyx/testbed"
)

const defaultConfigPath = "onyx.toml"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		core.LogFatal("%v", err)
	}
	core.SetLogLevel(cfg.LogLevel())

	device, release, err := newDevice(cfg)
	if err != nil {
		core.LogFatal("creating %s device: %v", cfg.App.Device, err)
	}
	defer release()

	e, err := engine.New(cfg, device, testbed.NewTestGame())
	if err != nil {
		core.LogFatal("%v", err)
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		release()
		core.LogFatal("initializing engine: %+v", err)
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := e.Run(ctx)
	if err := errors.CombineErrors(runErr, e.Shutdown()); err != nil {
		core.LogError("%+v", err)
		release()
		os.Exit(1)
	}
}

// loadConfig reads the config named by args[0], or onyx.toml when it
// exists, and applies the device override of args[1].
func loadConfig(args []string) (*config.Config, error) {
	path := defaultConfigPath
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil || len(args) > 0 {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if len(args) > 1 {
		cfg.App.Device = args[1]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newDevice(cfg *config.Config) (memory.Device, func(), error) {
	if cfg.App.Device != config.DeviceVulkan {
		return memory.NewHostDevice(memory.DefaultLimits), func() {}, nil
	}
	ctx, err := vulkan.NewContext(cfg.App.Name, cfg.App.Validation)
	if err != nil {
		return nil, nil, err
	}
	return vulkan.NewMemoryDevice(ctx), ctx.Destroy, nil
}
