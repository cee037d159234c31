package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetCloseCallback(closeCallback)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events, firing the engine
// events the callbacks translate them into.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// GetRequiredInstanceExtensions returns the instance extensions the
// windowing system needs, already null terminated for the C side.
func (p *Platform) GetRequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateVulkanSurface creates a presentation surface for the window.
func (p *Platform) CreateVulkanSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

// FramebufferSize returns the current drawable size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Release {
		return
	}
	if key == glfw.KeyEscape && action == glfw.Press {
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
		return
	}
	context := core.EventContext{}
	context.Data.U16[0] = uint16(key)
	code := core.EVENT_CODE_KEY_PRESSED
	if action == glfw.Release {
		code = core.EVENT_CODE_KEY_RELEASED
	}
	core.EventFire(code, nil, context)
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	context := core.EventContext{}
	context.Data.U16[0] = uint16(width)
	context.Data.U16[1] = uint16(height)
	core.EventFire(core.EVENT_CODE_RESIZED, nil, context)
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
}
