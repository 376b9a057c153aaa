//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the demo on the host memory device with onyx.toml.
func (Run) Demo() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run demo...")
	_, err := executeCmd("bin/onyx", withArgs("onyx.toml"), withStream())
	return err
}

// Runs the demo against a Vulkan device.
func (Run) Vulkan() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run demo on Vulkan...")
	_, err := executeCmd("bin/onyx", withArgs("onyx.toml", "vulkan"), withStream())
	return err
}
