//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles all GLSL shader sources to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the renderer binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "penumbra", "."), withStream())
	return err
}
