package engine

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer/vulkan"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

// Engine wires the platform layer, the asset manager, the renderer and
// the scene into one frame loop.
type Engine struct {
	config       *config.Config
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *vulkan.VulkanRenderer
	scene        *scene.Scene

	clock    *core.Clock
	lastTime float64

	isRunning   atomic.Bool
	isSuspended bool

	pendingWidth  uint32
	pendingHeight uint32
	resizePending bool
}

func New(cfg *config.Config) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:       cfg,
		platform:     p,
		assetManager: am,
		renderer:     vulkan.New(p, am, cfg),
		scene:        scene.New(cfg),
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	if !core.EventInitialize() {
		return errors.New("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)

	if err := e.platform.Startup(e.config.Application.Name, e.config.Application.Width, e.config.Application.Height); err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := e.assetManager.Initialize(fmt.Sprintf("%s/assets", wd)); err != nil {
		return err
	}

	if err := e.renderer.Initialize(); err != nil {
		return err
	}
	if err := e.scene.Load(e.renderer, e.assetManager); err != nil {
		return err
	}

	e.isRunning.Store(true)
	return nil
}

// Run drives the frame loop until a quit event or Shutdown stops it.
func (e *Engine) Run() error {
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.platform.PumpMessages()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		deltaTime := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.isSuspended {
			continue
		}

		if e.resizePending {
			e.resizePending = false
			e.renderer.Resized(e.pendingWidth, e.pendingHeight)
			if e.pendingHeight > 0 {
				e.scene.Camera.SetAspect(float32(e.pendingWidth) / float32(e.pendingHeight))
			}
		}

		e.pollAssetReloads()

		e.scene.Update(deltaTime)
		packet := e.scene.BuildPacket(deltaTime)

		if err := e.renderer.DrawFrame(packet, e.scene.Camera); err != nil {
			if errors.Is(err, core.ErrFrameAborted) {
				continue
			}
			return err
		}

		core.MetricsUpdate(deltaTime)
	}

	return e.teardown()
}

// pollAssetReloads drains the watcher queue once per frame. Shader
// reloads only log for now; rebuilding pipelines mid-run requires
// draining in-flight frames first.
func (e *Engine) pollAssetReloads() {
	for _, path := range e.assetManager.DrainReloads() {
		if strings.HasSuffix(path, ".spv") {
			core.LogInfo("shader changed on disk: %s (restart to apply)", path)
		}
	}
}

// Shutdown requests the loop to stop. Safe to call from any goroutine.
func (e *Engine) Shutdown() error {
	e.isRunning.Store(false)
	return nil
}

func (e *Engine) teardown() error {
	core.LogInfo("shutting down")

	if err := e.renderer.Shutdown(); err != nil {
		core.LogError("renderer shutdown: %v", err)
	}
	if err := e.assetManager.Shutdown(); err != nil {
		core.LogError("asset manager shutdown: %v", err)
	}

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	if err := core.EventShutdown(); err != nil {
		core.LogError("event shutdown: %v", err)
	}

	return e.platform.Shutdown()
}

func (e *Engine) onQuit(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	core.LogInfo("quit requested")
	e.isRunning.Store(false)
	return true
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width := uint32(data.Data.U16[0])
	height := uint32(data.Data.U16[1])

	// A zero extent means the window is minimized; skip rendering until
	// it comes back.
	e.isSuspended = width == 0 || height == 0
	if !e.isSuspended {
		e.pendingWidth = width
		e.pendingHeight = height
		e.resizePending = true
	}
	return true
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	key := data.Data.U16[0]
	const (
		keyW = 87
		keyA = 65
		keyS = 83
		keyD = 68
	)
	// Coarse keyboard movement, one step per press.
	switch key {
	case keyW:
		e.scene.Camera.Move(0.5, 0, 0)
	case keyS:
		e.scene.Camera.Move(-0.5, 0, 0)
	case keyA:
		e.scene.Camera.Move(0, -0.5, 0)
	case keyD:
		e.scene.Camera.Move(0, 0.5, 0)
	default:
		return false
	}
	return true
}
