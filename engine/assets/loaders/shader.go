package loaders

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// ShaderLoader reads compiled SPIR-V blobs. Words are decoded little
// endian; validation of the magic number happens at reflection time.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader '%s'", path)
	}
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, errors.Wrapf(core.ErrInvalidBytecode, "shader '%s' has size %d, not a multiple of 4", path, len(raw))
	}

	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(raw)),
		Data: &metadata.ShaderResourceData{
			Words: words,
		},
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		resource.Data = nil
		resource.DataSize = 0
		resource.LoaderID = metadata.InvalidID
		resource.FullPath = ""
	}
	return nil
}
