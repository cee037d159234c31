package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
)

// mockSync tracks wait/reset calls without a device.
type mockSync struct {
	signaled   bool
	waitCalls  int
	resetCalls int
	waitErr    error
}

func (m *mockSync) Wait(context *VulkanContext, timeoutNs uint64) error {
	m.waitCalls++
	if m.waitErr != nil {
		return m.waitErr
	}
	m.signaled = true
	return nil
}

func (m *mockSync) Reset(context *VulkanContext) error {
	m.resetCalls++
	m.signaled = false
	return nil
}

func (m *mockSync) Signaled() bool { return m.signaled }

func testPool(slots int) (*FramePool, []*mockSync) {
	pool := &FramePool{}
	syncs := make([]*mockSync, slots)
	for i := 0; i < slots; i++ {
		syncs[i] = &mockSync{signaled: true}
		pool.Frames = append(pool.Frames, &FrameContext{
			Index:    uint32(i),
			InFlight: syncs[i],
		})
	}
	return pool, syncs
}

func TestFramePoolAcquireWaitsAndResets(t *testing.T) {
	pool, syncs := testPool(2)

	frame, err := pool.Acquire(nil, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if frame.Index != 0 {
		t.Errorf("first acquire should return slot 0, got %d", frame.Index)
	}
	if syncs[0].waitCalls != 1 || syncs[0].resetCalls != 1 {
		t.Errorf("slot 0 fence: waits=%d resets=%d, want 1/1", syncs[0].waitCalls, syncs[0].resetCalls)
	}
	if syncs[0].Signaled() {
		t.Error("fence must be unsignaled after acquire")
	}
	if syncs[1].waitCalls != 0 {
		t.Error("acquire must only touch the current slot")
	}
}

func TestFramePoolAdvanceRotatesSlots(t *testing.T) {
	pool, _ := testPool(3)

	wantOrder := []uint32{0, 1, 2, 0, 1, 2}
	for i, want := range wantOrder {
		frame, err := pool.Acquire(nil, 1)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if frame.Index != want {
			t.Fatalf("frame %d used slot %d, want %d", i, frame.Index, want)
		}
		// Simulate the GPU signaling the fence before the slot comes
		// around again.
		frame.InFlight.(*mockSync).signaled = true
		pool.Advance()
	}
}

func TestFramePoolAdvanceIsUnconditional(t *testing.T) {
	// Even a frame whose present is skipped advances the slot, so two
	// consecutive frames never share synchronization objects.
	pool, _ := testPool(2)

	first, _ := pool.Acquire(nil, 1)
	pool.Advance() // present skipped
	second := pool.Current()
	if first.Index == second.Index {
		t.Fatal("consecutive frames must use distinct slots")
	}
}

func TestFramePoolAcquirePropagatesWaitError(t *testing.T) {
	pool, syncs := testPool(1)
	syncs[0].waitErr = errors.New("device lost")

	_, err := pool.Acquire(nil, 1)
	if err == nil {
		t.Fatal("wait failure must propagate")
	}
	if syncs[0].resetCalls != 0 {
		t.Error("fence must not be reset after a failed wait")
	}
}

func TestFramePoolSingleSlot(t *testing.T) {
	pool, syncs := testPool(1)
	for i := 0; i < 3; i++ {
		syncs[0].signaled = true
		frame, err := pool.Acquire(nil, 1)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if frame.Index != 0 {
			t.Fatalf("single slot pool returned slot %d", frame.Index)
		}
		pool.Advance()
	}
	if syncs[0].waitCalls != 3 {
		t.Errorf("want 3 waits, got %d", syncs[0].waitCalls)
	}
}
