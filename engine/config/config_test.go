package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Fatalf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penumbra.toml")
	body := `
[application]
width = 1920
height = 1080

[renderer]
sample_count = 8
frame_pool_size = 3

[shadows]
split_lambda = 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Application.Width != 1920 || cfg.Application.Height != 1080 {
		t.Errorf("window size not applied: %dx%d", cfg.Application.Width, cfg.Application.Height)
	}
	if cfg.Renderer.SampleCount != 8 {
		t.Errorf("sample_count not applied: %d", cfg.Renderer.SampleCount)
	}
	if cfg.Renderer.FramePoolSize != 3 {
		t.Errorf("frame_pool_size not applied: %d", cfg.Renderer.FramePoolSize)
	}
	if cfg.Shadows.SplitLambda != 0.5 {
		t.Errorf("split_lambda not applied: %f", cfg.Shadows.SplitLambda)
	}
	// Untouched sections keep their defaults.
	if cfg.Camera.Far != 48.0 {
		t.Errorf("camera defaults lost: far=%f", cfg.Camera.Far)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample count 3", func(c *Config) { c.Renderer.SampleCount = 3 }},
		{"sample count 0", func(c *Config) { c.Renderer.SampleCount = 0 }},
		{"pool size 0", func(c *Config) { c.Renderer.FramePoolSize = 0 }},
		{"pool size 4", func(c *Config) { c.Renderer.FramePoolSize = 4 }},
		{"zero width", func(c *Config) { c.Application.Width = 0 }},
		{"shadow size not pow2", func(c *Config) { c.Shadows.MapSize = 3000 }},
		{"lambda above one", func(c *Config) { c.Shadows.SplitLambda = 1.5 }},
		{"far before near", func(c *Config) { c.Camera.Far = c.Camera.Near }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
