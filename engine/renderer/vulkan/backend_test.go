package vulkan

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func TestAbortFrameMarksErrorAndKeepsCause(t *testing.T) {
	vr := &VulkanRenderer{}
	sync := &mockSync{}
	frame := &FrameContext{InFlight: sync}

	cause := errors.New("scene uniform write failed")
	err := vr.abortFrame(frame, cause)

	if !errors.Is(err, core.ErrFrameAborted) {
		t.Fatalf("aborted frame error must match ErrFrameAborted, got %v", err)
	}
	if !strings.Contains(err.Error(), "scene uniform write failed") {
		t.Errorf("original cause lost: %v", err)
	}
}

func TestAbortFrameDistinctFromFatalErrors(t *testing.T) {
	vr := &VulkanRenderer{}
	frame := &FrameContext{InFlight: &mockSync{}}

	err := vr.abortFrame(frame, errors.New("transient"))
	if errors.Is(err, core.ErrDeviceLost) {
		t.Error("aborted frames must not look like device loss")
	}
}
