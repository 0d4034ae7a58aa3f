package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/monkeycam/internal/capture"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monkeycam.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Detector.MaxFaces != 32 {
		t.Errorf("MaxFaces = %d, want 32", cfg.Detector.MaxFaces)
	}
	if cfg.Pipeline.Decoder != DecoderJPEG {
		t.Errorf("Decoder = %q, want %q", cfg.Pipeline.Decoder, DecoderJPEG)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
capture:
  source: synthetic
  sizes:
    - {width: 640, height: 480}
    - {width: 320, height: 240}
detector:
  kind: none
  max_faces: 4
display:
  width: 480
  height: 640
debug: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Capture.Source != SourceSynthetic {
		t.Errorf("Source = %q, want synthetic", cfg.Capture.Source)
	}
	if len(cfg.Capture.Sizes) != 2 || cfg.Capture.Sizes[1] != (capture.Size{Width: 320, Height: 240}) {
		t.Errorf("Sizes = %v", cfg.Capture.Sizes)
	}
	if cfg.Detector.Kind != DetectorNone || cfg.Detector.MaxFaces != 4 {
		t.Errorf("Detector = %+v", cfg.Detector)
	}
	if cfg.Display.Width != 480 || cfg.Display.Height != 640 {
		t.Errorf("Display = %+v", cfg.Display)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}

	// Unset values keep their defaults.
	if cfg.Capture.FPS != capture.DefaultFPS {
		t.Errorf("FPS = %d, want default %d", cfg.Capture.FPS, capture.DefaultFPS)
	}
	if cfg.Display.JPEGQuality != 80 {
		t.Errorf("JPEGQuality = %d, want default 80", cfg.Display.JPEGQuality)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Load() should fail on a missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "capture: [")); err == nil {
			t.Error("Load() should fail on malformed YAML")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "pipeline:\n  decoder: png\n"))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Capture.Source = "usb" }},
		{"zero fps", func(c *Config) { c.Capture.FPS = 0 }},
		{"odd capture size", func(c *Config) { c.Capture.Sizes = []capture.Size{{Width: 641, Height: 480}} }},
		{"unknown decoder", func(c *Config) { c.Pipeline.Decoder = "raw" }},
		{"no buffers", func(c *Config) { c.Pipeline.Buffers = 0 }},
		{"unknown detector", func(c *Config) { c.Detector.Kind = "dlib" }},
		{"pigo without puploc", func(c *Config) { c.Detector.PuplocCascade = "" }},
		{"haar without eyes", func(c *Config) { c.Detector.Kind = DetectorHaar }},
		{"zero max faces", func(c *Config) { c.Detector.MaxFaces = 0 }},
		{"confidence above one", func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{"zero display", func(c *Config) { c.Display.Width = 0 }},
		{"jpeg quality too high", func(c *Config) { c.Display.JPEGQuality = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestDetectorOptions(t *testing.T) {
	cfg := Default()
	cfg.Detector.MinFaceSize = 60
	opts := cfg.DetectorOptions()
	if opts.MinFaceSize != 60 || opts.MinConfidence != cfg.Detector.MinConfidence {
		t.Errorf("DetectorOptions() = %+v", opts)
	}
}
