package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// frameSync is the slice of VulkanFence the frame pool depends on.
type frameSync interface {
	Wait(context *VulkanContext, timeoutNs uint64) error
	Reset(context *VulkanContext) error
	Signaled() bool
}

var _ frameSync = (*VulkanFence)(nil)

// FrameContext is the per-slot state for one frame in flight: command
// buffers for the two submissions of a frame, the semaphore chain
// linking acquire, offscreen work and present, and the fence guarding
// slot reuse.
type FrameContext struct {
	Index uint32

	// OffscreenCmd records the shadow cascades and the geometry pass;
	// ComposeCmd records compose and overlay. They are submitted
	// separately, chained by OffscreenComplete.
	OffscreenCmd *VulkanCommandBuffer
	ComposeCmd   *VulkanCommandBuffer

	ImageAvailable    vk.Semaphore
	OffscreenComplete vk.Semaphore
	RenderComplete    vk.Semaphore

	InFlight frameSync
}

// FramePool rotates frame slots so the CPU can record slot N while the
// GPU finishes slot N-1. The slot index advances after every presented
// frame, including frames whose present was skipped, so slots never
// alias.
type FramePool struct {
	Frames  []*FrameContext
	current uint32
}

func NewFramePool(context *VulkanContext, slotCount uint32) (*FramePool, error) {
	if slotCount < 1 || slotCount > 3 {
		return nil, errors.Newf("frame pool size %d out of range 1..3", slotCount)
	}

	pool := &FramePool{}
	for i := uint32(0); i < slotCount; i++ {
		frame := &FrameContext{Index: i}

		var err error
		frame.OffscreenCmd, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			pool.Destroy(context)
			return nil, err
		}
		frame.ComposeCmd, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			pool.Destroy(context)
			return nil, err
		}

		for _, sem := range []*vk.Semaphore{&frame.ImageAvailable, &frame.OffscreenComplete, &frame.RenderComplete} {
			semaphoreInfo := vk.SemaphoreCreateInfo{
				SType: vk.StructureTypeSemaphoreCreateInfo,
			}
			if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, sem); res != vk.Success {
				pool.Destroy(context)
				return nil, ResultToError(res, "create frame semaphore")
			}
		}

		// Created signaled so the first acquire does not block.
		fence, err := NewFence(context, true)
		if err != nil {
			pool.Destroy(context)
			return nil, err
		}
		frame.InFlight = fence

		pool.Frames = append(pool.Frames, frame)
	}
	return pool, nil
}

func (fp *FramePool) Destroy(context *VulkanContext) {
	for _, frame := range fp.Frames {
		if frame == nil {
			continue
		}
		if fence, ok := frame.InFlight.(*VulkanFence); ok && fence != nil {
			fence.Destroy(context)
		}
		for _, sem := range []vk.Semaphore{frame.ImageAvailable, frame.OffscreenComplete, frame.RenderComplete} {
			if sem != vk.NullSemaphore {
				vk.DestroySemaphore(context.Device.LogicalDevice, sem, context.Allocator)
			}
		}
		if frame.OffscreenCmd != nil && frame.OffscreenCmd.Handle != nil {
			frame.OffscreenCmd.Free(context, context.Device.GraphicsCommandPool)
		}
		if frame.ComposeCmd != nil && frame.ComposeCmd.Handle != nil {
			frame.ComposeCmd.Free(context, context.Device.GraphicsCommandPool)
		}
	}
	fp.Frames = nil
}

// Size returns the number of slots in the pool.
func (fp *FramePool) Size() uint32 {
	return uint32(len(fp.Frames))
}

// Current returns the slot the next frame will record into.
func (fp *FramePool) Current() *FrameContext {
	return fp.Frames[fp.current]
}

// Acquire waits for the current slot's previous submission to retire
// and resets its fence for reuse. The returned frame is ready to
// record.
func (fp *FramePool) Acquire(context *VulkanContext, timeoutNs uint64) (*FrameContext, error) {
	frame := fp.Frames[fp.current]
	if err := frame.InFlight.Wait(context, timeoutNs); err != nil {
		return nil, errors.Wrapf(err, "frame slot %d", frame.Index)
	}
	if err := frame.InFlight.Reset(context); err != nil {
		return nil, errors.Wrapf(err, "frame slot %d", frame.Index)
	}
	return frame, nil
}

// Advance moves to the next slot. Called once per frame after the
// present is issued or skipped, never conditionally, so every frame
// uses a fresh slot.
func (fp *FramePool) Advance() {
	fp.current = (fp.current + 1) % uint32(len(fp.Frames))
}
