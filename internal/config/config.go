// Package config loads the MonkeyCam configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/detector"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Frame sources.
const (
	SourceCamera    = "camera"
	SourceSynthetic = "synthetic"
)

// Frame decoders.
const (
	DecoderJPEG = "jpeg"
	DecoderGocv = "gocv"
)

// Face detectors.
const (
	DetectorPigo = "pigo"
	DetectorHaar = "haar"
	DetectorNone = "none"
)

// Config is the complete MonkeyCam configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Capture  CaptureConfig  `yaml:"capture"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Detector DetectorConfig `yaml:"detector"`
	Display  DisplayConfig  `yaml:"display"`
	Debug    bool           `yaml:"debug"`
}

// ServerConfig contains preview server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CaptureConfig contains frame source settings.
type CaptureConfig struct {
	Source string         `yaml:"source"` // camera, synthetic
	Device int            `yaml:"device"`
	FPS    int            `yaml:"fps"`
	Sizes  []capture.Size `yaml:"sizes"` // empty selects the common UVC sizes
}

// PipelineConfig contains frame pipeline settings.
type PipelineConfig struct {
	Decoder string `yaml:"decoder"` // jpeg, gocv
	Buffers int    `yaml:"buffers"`
}

// DetectorConfig contains face detection settings.
type DetectorConfig struct {
	Kind          string  `yaml:"kind"` // pigo, haar, none
	MaxFaces      int     `yaml:"max_faces"`
	MinConfidence float64 `yaml:"min_confidence"`
	MinFaceSize   int     `yaml:"min_face_size"`
	MaxFaceSize   int     `yaml:"max_face_size"`
	FaceCascade   string  `yaml:"face_cascade"`
	PuplocCascade string  `yaml:"puploc_cascade"` // pigo only
	EyeCascade    string  `yaml:"eye_cascade"`    // haar only
}

// DisplayConfig contains display surface settings.
type DisplayConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	Asset       string `yaml:"asset"` // empty draws the built-in monkey head
}

// Default returns the default configuration.
func Default() *Config {
	dc := detector.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Capture: CaptureConfig{
			Source: SourceCamera,
			FPS:    capture.DefaultFPS,
		},
		Pipeline: PipelineConfig{
			Decoder: DecoderJPEG,
			Buffers: 1,
		},
		Detector: DetectorConfig{
			Kind:          DetectorPigo,
			MaxFaces:      detector.DefaultMaxFaces,
			MinConfidence: dc.MinConfidence,
			MinFaceSize:   dc.MinFaceSize,
			MaxFaceSize:   dc.MaxFaceSize,
			FaceCascade:   "cascade/facefinder",
			PuplocCascade: "cascade/puploc",
		},
		Display: DisplayConfig{
			Width:       capture.DefaultWidth,
			Height:      capture.DefaultHeight,
			JPEGQuality: 80,
		},
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DetectorOptions returns the detection primitive settings.
func (c *Config) DetectorOptions() detector.Config {
	return detector.Config{
		MinConfidence: c.Detector.MinConfidence,
		MinFaceSize:   c.Detector.MinFaceSize,
		MaxFaceSize:   c.Detector.MaxFaceSize,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Capture.Source {
	case SourceCamera, SourceSynthetic:
	default:
		return fmt.Errorf("%w: unknown capture source %q", ErrInvalidConfig, c.Capture.Source)
	}
	if c.Capture.FPS <= 0 {
		return fmt.Errorf("%w: capture fps must be positive", ErrInvalidConfig)
	}
	for _, s := range c.Capture.Sizes {
		if s.Width <= 0 || s.Height <= 0 || s.Width%2 != 0 || s.Height%2 != 0 {
			return fmt.Errorf("%w: capture size %s must be positive and even", ErrInvalidConfig, s)
		}
	}

	switch c.Pipeline.Decoder {
	case DecoderJPEG, DecoderGocv:
	default:
		return fmt.Errorf("%w: unknown decoder %q", ErrInvalidConfig, c.Pipeline.Decoder)
	}
	if c.Pipeline.Buffers <= 0 {
		return fmt.Errorf("%w: pipeline buffers must be positive", ErrInvalidConfig)
	}

	switch c.Detector.Kind {
	case DetectorPigo:
		if c.Detector.FaceCascade == "" || c.Detector.PuplocCascade == "" {
			return fmt.Errorf("%w: pigo needs face_cascade and puploc_cascade", ErrInvalidConfig)
		}
	case DetectorHaar:
		if c.Detector.FaceCascade == "" || c.Detector.EyeCascade == "" {
			return fmt.Errorf("%w: haar needs face_cascade and eye_cascade", ErrInvalidConfig)
		}
	case DetectorNone:
	default:
		return fmt.Errorf("%w: unknown detector %q", ErrInvalidConfig, c.Detector.Kind)
	}
	if c.Detector.MaxFaces <= 0 {
		return fmt.Errorf("%w: max_faces must be positive", ErrInvalidConfig)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be between 0 and 1", ErrInvalidConfig)
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("%w: display size must be positive", ErrInvalidConfig)
	}
	if c.Display.JPEGQuality <= 0 || c.Display.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg_quality must be between 1 and 100", ErrInvalidConfig)
	}

	return nil
}
