// Package pipeline runs captured frames through decoding, face detection and
// overlay placement, and hands the result to the display.
package pipeline

import (
	"errors"
	"fmt"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/detector"
	"github.com/ayusman/monkeycam/internal/frame"
	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/google/uuid"
)

// DefaultBuffers is the number of frame buffers lent to the source.
const DefaultBuffers = 1

// Surface is the display the controller draws into.
type Surface interface {
	// Viewport returns the current display size.
	Viewport() overlay.Viewport
	// Invalidate requests a redraw. It must not block.
	Invalidate()
}

// Snapshot is the outcome of one processed frame. It is never modified
// after publication.
type Snapshot struct {
	Session   string
	Seq       uint64
	Size      capture.Size
	Bitmap    *frame.Bitmap
	Faces     detector.Results
	Timestamp time.Time
}

// Stats holds controller counters.
type Stats struct {
	FramesProcessed  uint64 `json:"frames_processed"`
	FramesDropped    uint64 `json:"frames_dropped"`
	ConversionErrors uint64 `json:"conversion_errors"`
	FacesFound       uint64 `json:"faces_found"`
	ExtractionErrors uint64 `json:"extraction_errors"`
	BuffersReturned  uint64 `json:"buffers_returned"`
	ReleaseErrors    uint64 `json:"release_errors"`
	SourceDropped    uint64 `json:"source_dropped"`
}

// Status describes the controller for reporting.
type Status struct {
	State       State            `json:"state"`
	Session     string           `json:"session,omitempty"`
	CaptureSize capture.Size     `json:"capture_size"`
	Viewport    overlay.Viewport `json:"viewport"`
	Stats       Stats            `json:"stats"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithBuffers sets the number of frame buffers lent to the source.
func WithBuffers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.buffers = n
		}
	}
}

// Controller is the frame pipeline state machine. Lifecycle events are
// serialized; frames are processed one at a time on the source's delivery
// goroutine while the display reads published snapshots.
type Controller struct {
	source     capture.FrameSource
	decoder    frame.Decoder
	adapter    *detector.Adapter
	compositor *overlay.Compositor
	surface    Surface
	buffers    int

	// lifecycle serializes SurfaceChanged and SurfaceDestroyed.
	lifecycle sync.Mutex

	mu       sync.Mutex
	state    State
	size     capture.Size
	viewport overlay.Viewport
	session  string

	inFlight atomic.Bool

	snapMu   sync.RWMutex
	snapshot *Snapshot

	processed   atomic.Uint64
	dropped     atomic.Uint64
	conversion  atomic.Uint64
	returned    atomic.Uint64
	releaseErrs atomic.Uint64
}

// New creates a Controller. A nil compositor draws the default asset.
func New(source capture.FrameSource, decoder frame.Decoder, adapter *detector.Adapter, compositor *overlay.Compositor, surface Surface, opts ...Option) *Controller {
	if compositor == nil {
		compositor = overlay.NewCompositor(overlay.DefaultAsset(256, 256))
	}
	c := &Controller{
		source:     source,
		decoder:    decoder,
		adapter:    adapter,
		compositor: compositor,
		surface:    surface,
		buffers:    DefaultBuffers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle applies ev to the state machine.
func (c *Controller) Handle(ev Event) error {
	switch e := ev.(type) {
	case SurfaceChanged:
		return c.configure(e.Viewport)
	case FrameReady:
		return c.processFrame(e.Frame)
	case SurfaceDestroyed:
		return c.destroy()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the id of the current capture session.
func (c *Controller) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CaptureSize returns the capture size chosen for the current session.
func (c *Controller) CaptureSize() capture.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Status returns a point-in-time description of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:       c.state,
		Session:     c.session,
		CaptureSize: c.size,
		Viewport:    c.viewport,
	}
	c.mu.Unlock()
	st.Stats = c.Stats()
	return st
}

// Stats returns the controller counters.
func (c *Controller) Stats() Stats {
	ds := c.adapter.Stats()
	return Stats{
		FramesProcessed:  c.processed.Load(),
		FramesDropped:    c.dropped.Load(),
		ConversionErrors: c.conversion.Load(),
		FacesFound:       ds.FacesFound,
		ExtractionErrors: ds.ExtractionErrors,
		BuffersReturned:  c.returned.Load(),
		ReleaseErrors:    c.releaseErrs.Load(),
		SourceDropped:    sourceDropped(c.source),
	}
}

// dropCounter is implemented by sources that skip frames while every
// buffer is lent out.
type dropCounter interface {
	Dropped() uint64
}

func sourceDropped(src capture.FrameSource) uint64 {
	if d, ok := src.(dropCounter); ok {
		return d.Dropped()
	}
	return 0
}

// Snapshot returns the last published frame result, or nil.
func (c *Controller) Snapshot() *Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// Placements computes the overlay rectangles of the last frame for vp.
func (c *Controller) Placements(vp overlay.Viewport) []overlay.Placement {
	snap := c.Snapshot()
	if snap == nil {
		return nil
	}
	return c.compositor.Place(vp, snap.Size.Width, snap.Size.Height, snap.Faces)
}

// Draw renders the last frame and its overlays onto dst, whose bounds are
// the viewport. It is safe to call from the presentation loop while frames
// are being processed.
func (c *Controller) Draw(dst draw.Image) []overlay.Placement {
	snap := c.Snapshot()
	if snap == nil {
		return nil
	}
	return c.compositor.Compose(dst, snap.Bitmap, snap.Faces)
}

// configure sets up a capture session for vp, stopping any running one.
func (c *Controller) configure(vp overlay.Viewport) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case Stopped:
		return ErrStopped
	case Configured, Running:
		c.source.StopPreview()
		c.setState(Uninitialized)
	}

	size, err := capture.SelectPreviewSize(c.source.SupportedSizes(), vp.Width, vp.Height)
	if err != nil {
		return &ConfigurationError{Viewport: vp, Err: err}
	}

	size, err = c.source.SetPreviewSize(size)
	if err != nil {
		return &ConfigurationError{Viewport: vp, Err: err}
	}

	c.adapter.Configure(size.Width, size.Height)

	session := uuid.NewString()
	c.mu.Lock()
	c.size = size
	c.viewport = vp
	c.session = session
	c.state = Configured
	c.mu.Unlock()

	c.snapMu.Lock()
	c.snapshot = nil
	c.snapMu.Unlock()

	for i := 0; i < c.buffers; i++ {
		c.source.AddBuffer(make([]byte, frame.BufferSize(size.Width, size.Height)))
	}

	if err := c.source.StartPreview(c.onFrame); err != nil {
		c.setState(Uninitialized)
		return &ConfigurationError{Viewport: vp, Err: err}
	}

	log.Printf("Session %s: capturing %s for %dx%d viewport", session, size, vp.Width, vp.Height)
	return nil
}

// destroy stops the preview and then releases the source. Repeated calls
// are no-ops.
func (c *Controller) destroy() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == Stopped {
		return nil
	}

	c.source.StopPreview()

	if err := c.source.Release(); err != nil {
		c.releaseErrs.Add(1)
		log.Printf("Session %s: %v", c.Session(), &ReleaseError{Err: err})
	}

	c.setState(Stopped)
	log.Printf("Session %s: stopped", c.Session())
	return nil
}

// onFrame is the frame source callback.
func (c *Controller) onFrame(f capture.Frame) {
	err := c.Handle(FrameReady{Frame: f})
	switch {
	case err == nil:
	case errors.Is(err, ErrFrameInFlight), errors.Is(err, ErrStopped), errors.Is(err, ErrNotConfigured):
		// Rejected frames still belong to the source.
		c.source.AddBuffer(f.Data[:cap(f.Data)])
	default:
		log.Printf("Frame %d: %v", f.Seq, err)
	}
}

// processFrame decodes f, detects faces and publishes the result. Once the
// frame is accepted its buffer is returned to the source on every path,
// after the surface was invalidated.
func (c *Controller) processFrame(f capture.Frame) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.dropped.Add(1)
		return ErrFrameInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	state, size, session := c.state, c.size, c.session
	switch state {
	case Stopped:
		c.mu.Unlock()
		return ErrStopped
	case Uninitialized:
		c.mu.Unlock()
		c.dropped.Add(1)
		return ErrNotConfigured
	case Configured:
		c.state = Running
	}
	c.mu.Unlock()

	defer c.returnBuffer(f.Data)

	if f.Width != size.Width || f.Height != size.Height {
		c.dropped.Add(1)
		return fmt.Errorf("%w: got %dx%d, want %s", ErrFrameSize, f.Width, f.Height, size)
	}

	bmp, err := c.decoder.Decode(f.Data, size.Width, size.Height)
	if err != nil {
		c.dropped.Add(1)
		c.conversion.Add(1)
		return fmt.Errorf("decode: %w", err)
	}

	faces, err := c.adapter.Detect(bmp)
	if err != nil {
		c.dropped.Add(1)
		return fmt.Errorf("detect: %w", err)
	}

	c.snapMu.Lock()
	c.snapshot = &Snapshot{
		Session:   session,
		Seq:       f.Seq,
		Size:      size,
		Bitmap:    bmp,
		Faces:     faces,
		Timestamp: f.Timestamp,
	}
	c.snapMu.Unlock()

	c.processed.Add(1)
	if c.surface != nil {
		c.surface.Invalidate()
	}
	return nil
}

func (c *Controller) returnBuffer(buf []byte) {
	if buf == nil {
		return
	}
	c.source.AddBuffer(buf[:cap(buf)])
	c.returned.Add(1)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}
