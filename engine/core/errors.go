package core

import (
	"github.com/cockroachdb/errors"
)

// Renderer error taxonomy. Sentinels are matched with errors.Is; call
// sites add context with errors.Wrapf so the original class survives.
var (
	// ErrResourceExhausted - a device memory allocation failed. Recoverable:
	// the caller may release resources and retry.
	ErrResourceExhausted = errors.New("device memory exhausted")

	// ErrDeviceLost - the device reported an unrecoverable error. The whole
	// context must be destroyed and recreated; in-flight work is undefined
	// and must be discarded without waiting on its fences.
	ErrDeviceLost = errors.New("device lost")

	// ErrInvalidBytecode - a shader blob failed magic/version validation.
	// Fatal at load time; there is no shader fallback.
	ErrInvalidBytecode = errors.New("invalid shader bytecode")

	// ErrUnsupportedReflection - a reflected descriptor binding is not in
	// the supported set. Fatal at load time.
	ErrUnsupportedReflection = errors.New("unsupported shader binding type")

	// ErrAttachmentMismatch - an attachment spec violates the render pass
	// it is bound into (sample count, extent). Construction-time contract
	// violation, never expected at runtime.
	ErrAttachmentMismatch = errors.New("attachment does not match render pass")

	// ErrPipelineConstructionFailed - a required pipeline or attachment set
	// failed to build at startup. Fatal configuration bug.
	ErrPipelineConstructionFailed = errors.New("pipeline construction failed")

	// ErrSwapchainOutOfDate - the surface extent changed; the caller must
	// resize and retry the frame.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")

	// ErrPresentFailed - transient present error; skip this frame's present
	// and retry next frame.
	ErrPresentFailed = errors.New("present failed")

	// ErrFrameAborted - a per-frame draw failure. The frame is dropped and
	// synchronization state preserved for the next one.
	ErrFrameAborted = errors.New("frame aborted")
)
