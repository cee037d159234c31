package core

import (
	"fmt"

	"github.com/google/uuid"
)

var Owners []interface{}

// IdentifierAcquireNewID hands out the lowest free slot index, growing
// the owner table when all slots are taken.
func IdentifierAcquireNewID(owner interface{}) uint32 {
	if len(Owners) == 0 {
		Owners = make([]interface{}, 100)
	}
	length := uint32(len(Owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if Owners[i] == nil {
			Owners[i] = owner
			return i
		}
	}

	// If here, no existing free slots. Need a new id, so push one.
	Owners = append(Owners, owner)
	length = uint32(len(Owners))
	return length - 1
}

func IdentifierReleaseID(id uint32) error {
	if len(Owners) == 0 {
		return fmt.Errorf("identifier release called before any id was acquired. Nothing was done")
	}

	length := uint32(len(Owners))
	if id >= length {
		return fmt.Errorf("identifier release: id '%d' out of range (max=%d). Nothing was done", id, length)
	}

	// Just zero out the entry, making it available for use.
	Owners[id] = nil
	return nil
}

// UniqueName generates a stable unique name for an internally created
// resource, e.g. render target textures.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}
