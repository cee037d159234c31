package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// Config is the startup configuration, loaded from a TOML file next to
// the executable. Missing fields keep their defaults.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Shadows     ShadowConfig      `toml:"shadows"`
	Camera      CameraConfig      `toml:"camera"`
}

type ApplicationConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// MSAA sample count for the geometry buffer. One of 1, 2, 4, 8.
	SampleCount uint32 `toml:"sample_count"`
	// Number of frames recorded ahead of the GPU. Valid range 1..3.
	FramePoolSize uint32 `toml:"frame_pool_size"`
	VSync         bool   `toml:"vsync"`
}

type ShadowConfig struct {
	// Side length of each square cascade layer, in texels.
	MapSize uint32 `toml:"map_size"`
	// Log-linear split interpolation factor in [0, 1]. Higher values
	// pull splits toward the camera for more near detail.
	SplitLambda float32 `toml:"split_lambda"`
}

type CameraConfig struct {
	FovDegrees float32 `toml:"fov_degrees"`
	Near       float32 `toml:"near"`
	Far        float32 `toml:"far"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "Penumbra",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			SampleCount:   4,
			FramePoolSize: 2,
			VSync:         true,
		},
		Shadows: ShadowConfig{
			MapSize:     4096,
			SplitLambda: 0.95,
		},
		Camera: CameraConfig{
			FovDegrees: 45.0,
			Near:       0.05,
			Far:        48.0,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file is not an error; a malformed or invalid one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("config file '%s' not found, using defaults", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to read config file '%s'", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file '%s'", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the renderer cannot honor.
func (c *Config) Validate() error {
	switch c.Renderer.SampleCount {
	case 1, 2, 4, 8:
	default:
		return errors.Newf("invalid sample_count %d, must be one of 1, 2, 4, 8", c.Renderer.SampleCount)
	}
	if c.Renderer.FramePoolSize < 1 || c.Renderer.FramePoolSize > 3 {
		return errors.Newf("invalid frame_pool_size %d, must be in range 1..3", c.Renderer.FramePoolSize)
	}
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return errors.Newf("invalid window size %dx%d", c.Application.Width, c.Application.Height)
	}
	if c.Shadows.MapSize == 0 || (c.Shadows.MapSize&(c.Shadows.MapSize-1)) != 0 {
		return errors.Newf("invalid shadow map_size %d, must be a power of two", c.Shadows.MapSize)
	}
	if c.Shadows.SplitLambda < 0 || c.Shadows.SplitLambda > 1 {
		return errors.Newf("invalid split_lambda %f, must be in [0, 1]", c.Shadows.SplitLambda)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Newf("invalid camera planes near=%f far=%f", c.Camera.Near, c.Camera.Far)
	}
	return nil
}
