// Package display implements the presentation side of the pipeline: a
// viewport, coalesced redraw requests and the frames published to viewers.
package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/monkeycam/internal/overlay"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultJPEGQuality is the quality of published preview frames.
const DefaultJPEGQuality = 80

// ErrInvalidViewport is returned by Resize for non-positive sizes.
var ErrInvalidViewport = errors.New("invalid viewport")

// Renderer draws the current picture onto a viewport-sized canvas.
type Renderer interface {
	Draw(dst draw.Image) []overlay.Placement
}

// Frame is one presented picture.
type Frame struct {
	Seq        uint64
	JPEG       []byte
	Viewport   overlay.Viewport
	Placements []overlay.Placement
	Timestamp  time.Time
}

// Option configures a Surface.
type Option func(*Surface)

// WithJPEGQuality sets the quality of published frames.
func WithJPEGQuality(q int) Option {
	return func(s *Surface) {
		if q > 0 && q <= 100 {
			s.quality = q
		}
	}
}

// Surface is an in-memory display. Invalidations are coalesced: any number
// of requests between two presentations produce a single redraw.
type Surface struct {
	quality    int
	invalidate chan struct{}

	mu       sync.RWMutex
	viewport overlay.Viewport
	onResize func(overlay.Viewport)

	subsMu sync.Mutex
	subs   map[string]chan Frame
	latest *Frame

	seq atomic.Uint64
}

// NewSurface creates a Surface of the given size.
func NewSurface(vp overlay.Viewport, opts ...Option) *Surface {
	s := &Surface{
		quality:    DefaultJPEGQuality,
		invalidate: make(chan struct{}, 1),
		viewport:   vp,
		subs:       make(map[string]chan Frame),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Viewport returns the current display size.
func (s *Surface) Viewport() overlay.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Invalidate requests a redraw without blocking.
func (s *Surface) Invalidate() {
	select {
	case s.invalidate <- struct{}{}:
	default:
	}
}

// OnResize registers fn to be called after every viewport change.
func (s *Surface) OnResize(fn func(overlay.Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResize = fn
}

// Resize changes the viewport, notifies the resize listener and requests a
// redraw. Resizing to the current size does nothing.
func (s *Surface) Resize(vp overlay.Viewport) error {
	if !vp.Valid() {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, vp.Width, vp.Height)
	}

	s.mu.Lock()
	if s.viewport == vp {
		s.mu.Unlock()
		return nil
	}
	s.viewport = vp
	fn := s.onResize
	s.mu.Unlock()

	if fn != nil {
		fn(vp)
	}
	s.Invalidate()
	return nil
}

// Run presents a frame through r for every invalidation until ctx is done.
// Presentation errors are logged and do not stop the loop.
func (s *Surface) Run(ctx context.Context, r Renderer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.invalidate:
			if _, err := s.Present(r); err != nil {
				log.Printf("Present frame: %v", err)
			}
		}
	}
}

// Present draws one frame through r and publishes it to subscribers.
func (s *Surface) Present(r Renderer) (Frame, error) {
	vp := s.Viewport()
	if !vp.Valid() {
		return Frame{}, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, vp.Width, vp.Height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, vp.Width, vp.Height))
	placements := r.Draw(canvas)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	f := Frame{
		Seq:        s.seq.Add(1),
		JPEG:       buf.Bytes(),
		Viewport:   vp,
		Placements: placements,
		Timestamp:  time.Now(),
	}
	s.publish(f)
	return f, nil
}

// Subscribe returns a channel receiving presented frames. A slow
// subscriber only ever sees the newest frame.
func (s *Surface) Subscribe() (string, <-chan Frame) {
	id := uuid.NewString()
	ch := make(chan Frame, 1)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Surface) Unsubscribe(id string) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (s *Surface) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// Latest returns the last presented frame.
func (s *Surface) Latest() (Frame, bool) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.latest == nil {
		return Frame{}, false
	}
	return *s.latest, true
}

func (s *Surface) publish(f Frame) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.latest = &f
	for _, ch := range s.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		// Replace the unread frame.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}
