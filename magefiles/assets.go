//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
)

type Assets mg.Namespace

const assetBundleURL = "https://github.com/spaghettifunk/penumbra/releases/download/assets-v1/penumbra-assets.tar.gz"

// Downloads the texture, heightmap and overlay font bundle into
// assets/. The engine runs without it, falling back to generated
// terrain and the built-in overlay face.
func (Assets) Fetch() error {
	bundle := "penumbra-assets.tar.gz"
	if _, err := executeCmd("curl", withArgs("-fSL", "-o", bundle, assetBundleURL), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("tar", withArgs("-xzf", bundle, "-C", "assets"), withStream()); err != nil {
		return err
	}
	return os.Remove(bundle)
}
