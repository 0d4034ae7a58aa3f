package detector

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/monkeycam/internal/frame"
)

var (
	// ErrNilBitmap is returned when Detect is called without a bitmap.
	ErrNilBitmap = errors.New("nil bitmap")
	// ErrSizeMismatch is returned when a bitmap does not match the configured capture size.
	ErrSizeMismatch = errors.New("bitmap size does not match configured size")
)

// Stats counts adapter activity since creation.
type Stats struct {
	Frames           uint64 `json:"frames"`
	FacesFound       uint64 `json:"faces_found"`
	ExtractionErrors uint64 `json:"extraction_errors"`
}

// Adapter runs a Detector over decoded bitmaps and extracts the geometry
// of each face into a fixed number of slots.
type Adapter struct {
	detector Detector
	maxFaces int
	debug    bool

	mu      sync.Mutex
	width   int
	height  int
	results Results
	stats   Stats
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDebug logs every extracted face.
func WithDebug(debug bool) Option {
	return func(a *Adapter) {
		a.debug = debug
	}
}

// NewAdapter creates an Adapter with maxFaces slots. A non-positive
// maxFaces selects DefaultMaxFaces.
func NewAdapter(d Detector, maxFaces int, opts ...Option) *Adapter {
	if maxFaces <= 0 {
		maxFaces = DefaultMaxFaces
	}
	a := &Adapter{
		detector: d,
		maxFaces: maxFaces,
		results:  NewResults(maxFaces),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxFaces returns the number of result slots.
func (a *Adapter) MaxFaces() int {
	return a.maxFaces
}

// Configure sets the capture size that every bitmap must match.
func (a *Adapter) Configure(width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.width, a.height = width, height
	a.results.clear()
}

// Detect finds the faces in bmp. Slots are cleared before detection, so
// nothing from a previous frame survives. A face whose geometry cannot be
// read leaves its slot empty and does not fail the frame.
//
// The returned Results is a copy owned by the caller.
func (a *Adapter) Detect(bmp *frame.Bitmap) (Results, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.results.clear()

	if bmp == nil {
		return a.results.Clone(), ErrNilBitmap
	}
	if a.width != 0 && (bmp.Width != a.width || bmp.Height != a.height) {
		return a.results.Clone(), fmt.Errorf("%w: got %dx%d, want %dx%d", ErrSizeMismatch, bmp.Width, bmp.Height, a.width, a.height)
	}

	a.stats.Frames++

	handles, err := a.detector.FindFaces(bmp, a.maxFaces)
	if err != nil {
		return a.results.Clone(), fmt.Errorf("find faces: %w", err)
	}

	for i, h := range handles {
		if i >= a.maxFaces {
			break
		}
		if h == nil {
			continue
		}

		face, err := extract(h)
		if err != nil {
			a.stats.ExtractionErrors++
			log.Printf("Face %d: %v", i, err)
			continue
		}

		a.results.set(i, Some(face))
		a.stats.FacesFound++

		if a.debug {
			log.Printf("Face %d confidence=%.3f eyes=%.1f pose=(%.1f,%.1f,%.1f) midpoint=(%.1f,%.1f)",
				i, face.Confidence, face.EyesDistance,
				face.Pose.X, face.Pose.Y, face.Pose.Z,
				face.Midpoint.X, face.Midpoint.Y)
		}
	}

	return a.results.Clone(), nil
}

// Stats returns the adapter counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close closes the underlying detector.
func (a *Adapter) Close() error {
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}

// extract reads every accessor of h. Panics raised by a handle are turned
// into extraction errors for that face only.
func extract(h Face) (face FaceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFaceExtraction, r)
		}
	}()

	face.Confidence = h.Confidence()

	if face.EyesDistance, err = h.EyesDistance(); err != nil {
		return FaceResult{}, wrapExtraction("eyes distance", err)
	}
	if face.Midpoint, err = h.MidPoint(); err != nil {
		return FaceResult{}, wrapExtraction("midpoint", err)
	}
	if face.Pose.X, err = h.Pose(EulerX); err != nil {
		return FaceResult{}, wrapExtraction("pose x", err)
	}
	if face.Pose.Y, err = h.Pose(EulerY); err != nil {
		return FaceResult{}, wrapExtraction("pose y", err)
	}
	if face.Pose.Z, err = h.Pose(EulerZ); err != nil {
		return FaceResult{}, wrapExtraction("pose z", err)
	}

	return face, nil
}

func wrapExtraction(what string, err error) error {
	if errors.Is(err, ErrFaceExtraction) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrFaceExtraction, what, err)
}
