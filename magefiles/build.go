//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads modules and builds the demo binary into bin/.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/onyx", "."), withStream())
	return err
}

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the memory and scene tests with the race detector.
func (Test) Core() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./memory/...", "./scene/...", "./containers/..."), withDir("engine"), withStream())
	return err
}
