//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Binary compiles the meshsplit command into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/meshsplit", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Tidy runs go mod tidy and go vet.
func (Build) Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	if _, err := executeCmd("go", withArgs("vet", "./...")); err != nil {
		return fmt.Errorf("failed to run go vet: %w", err)
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Lint runs golangci-lint over the module.
func Lint() error {
	_, err := executeCmd("golangci-lint", withArgs("run", "./..."), withStream())
	return err
}

// Example splits the bundled example into output_components/.
func Example() error {
	mg.Deps(Build.Binary)
	_, err := executeCmd("bin/meshsplit", withArgs("-in", "examples/two_quads.obj", "-verify"), withStream())
	return err
}
