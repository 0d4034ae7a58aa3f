// Package app wires the frame source, pipeline, display and preview server
// of the MonkeyCam application.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"sync"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/config"
	"github.com/ayusman/monkeycam/internal/detector"
	"github.com/ayusman/monkeycam/internal/display"
	"github.com/ayusman/monkeycam/internal/frame"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/ayusman/monkeycam/internal/pipeline"
	"github.com/ayusman/monkeycam/internal/server"
)

// DefaultAssetSize is the size of the built-in overlay asset.
const DefaultAssetSize = 256

// ErrAlreadyStarted is returned by Start on a running App.
var ErrAlreadyStarted = errors.New("app already started")

// Option overrides a component built from the configuration.
type Option func(*App)

// WithSource uses src instead of the configured frame source.
func WithSource(src capture.FrameSource) Option {
	return func(a *App) {
		a.source = src
	}
}

// WithDetector uses d instead of the configured face detector.
func WithDetector(d detector.Detector) Option {
	return func(a *App) {
		a.detector = d
	}
}

// opener is a frame source that must be opened before use.
type opener interface {
	Open() error
}

// App is the main application that runs the overlay pipeline.
type App struct {
	source     capture.FrameSource
	detector   detector.Detector
	adapter    *detector.Adapter
	controller *pipeline.Controller
	surface    *display.Surface
	server     *server.Server

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New builds an App from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	asset, err := LoadAsset(cfg.Display.Asset)
	if err != nil {
		return nil, err
	}

	decoder, err := NewDecoder(cfg.Pipeline.Decoder)
	if err != nil {
		return nil, err
	}

	if a.detector == nil {
		d, err := NewDetector(cfg)
		if err != nil {
			return nil, err
		}
		a.detector = d
	}

	if a.source == nil {
		a.source = NewSource(cfg)
	}

	a.surface = display.NewSurface(
		overlay.Viewport{Width: cfg.Display.Width, Height: cfg.Display.Height},
		display.WithJPEGQuality(cfg.Display.JPEGQuality),
	)
	a.adapter = detector.NewAdapter(a.detector, cfg.Detector.MaxFaces, detector.WithDebug(cfg.Debug))
	a.controller = pipeline.New(
		a.source,
		decoder,
		a.adapter,
		overlay.NewCompositor(asset),
		a.surface,
		pipeline.WithBuffers(cfg.Pipeline.Buffers),
	)
	a.server = server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		Pipeline:  a.controller,
		Surface:   a.surface,
	})

	return a, nil
}

// NewSource creates the configured frame source.
func NewSource(cfg *config.Config) capture.FrameSource {
	if cfg.Capture.Source == config.SourceSynthetic {
		return capture.NewSyntheticSource(cfg.Capture.Sizes, cfg.Capture.FPS)
	}
	return capture.NewCamera(cfg.Capture.Device, cfg.Capture.FPS, cfg.Capture.Sizes)
}

// NewDetector creates the configured face detection primitive.
func NewDetector(cfg *config.Config) (detector.Detector, error) {
	opts := cfg.DetectorOptions()
	switch cfg.Detector.Kind {
	case config.DetectorPigo:
		return detector.LoadPigoDetector(cfg.Detector.FaceCascade, cfg.Detector.PuplocCascade, opts)
	case config.DetectorHaar:
		return detector.NewHaarDetector(cfg.Detector.FaceCascade, cfg.Detector.EyeCascade, opts)
	case config.DetectorNone:
		return detector.NewMockDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Detector.Kind)
	}
}

// NewDecoder creates the named frame decoder.
func NewDecoder(name string) (frame.Decoder, error) {
	switch name {
	case config.DecoderJPEG:
		return frame.NewJPEGDecoder(), nil
	case config.DecoderGocv:
		return frame.NewGocvDecoder(), nil
	default:
		return nil, fmt.Errorf("unknown decoder %q", name)
	}
}

// LoadAsset loads the overlay image at path, or draws the built-in monkey
// head when path is empty.
func LoadAsset(path string) (image.Image, error) {
	if path == "" {
		return overlay.DefaultAsset(DefaultAssetSize, DefaultAssetSize), nil
	}
	return overlay.LoadAsset(path)
}

// Start opens the frame source, configures the pipeline for the display
// and starts the presentation loop. Display resizes reconfigure the
// pipeline from then on.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return pipeline.ErrStopped
	}
	if a.cancel != nil {
		return ErrAlreadyStarted
	}

	if o, ok := a.source.(opener); ok {
		if err := o.Open(); err != nil {
			return err
		}
	}

	a.surface.OnResize(func(vp overlay.Viewport) {
		if err := a.controller.Handle(pipeline.SurfaceChanged{Viewport: vp}); err != nil {
			log.Printf("Reconfigure for %dx%d viewport: %v", vp.Width, vp.Height, err)
		}
	})

	if err := a.controller.Handle(pipeline.SurfaceChanged{Viewport: a.surface.Viewport()}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		a.surface.Run(ctx, a.controller)
	}()

	log.Println("Frame pipeline started")
	return nil
}

// Stop destroys the surface, which stops the preview before releasing the
// frame source, then stops the presentation loop and closes the detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true

	a.surface.OnResize(nil)

	if err := a.controller.Handle(pipeline.SurfaceDestroyed{}); err != nil {
		log.Printf("Error stopping pipeline: %v", err)
	}

	if a.cancel != nil {
		a.cancel()
		<-a.done
	}

	a.server.Close()

	if err := a.adapter.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	log.Println("Frame pipeline stopped")
}

// Handler returns the preview API handler.
func (a *App) Handler() http.Handler {
	return a.server
}

// Controller returns the frame pipeline controller.
func (a *App) Controller() *pipeline.Controller {
	return a.controller
}

// Surface returns the display surface.
func (a *App) Surface() *display.Surface {
	return a.surface
}

// Source returns the frame source.
func (a *App) Source() capture.FrameSource {
	return a.source
}
