package detector

import (
	"image"
	"sync"
)

// StaticFace is a Face with fixed geometry. A non-nil Err makes every
// geometry accessor fail, modelling a partial detection.
type StaticFace struct {
	Result FaceResult
	Err    error
}

// Confidence implements Face.
func (f StaticFace) Confidence() float64 { return f.Result.Confidence }

// EyesDistance implements Face.
func (f StaticFace) EyesDistance() (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Result.EyesDistance, nil
}

// MidPoint implements Face.
func (f StaticFace) MidPoint() (Point, error) {
	if f.Err != nil {
		return Point{}, f.Err
	}
	return f.Result.Midpoint, nil
}

// Pose implements Face.
func (f StaticFace) Pose(axis Axis) (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	switch axis {
	case EulerX:
		return f.Result.Pose.X, nil
	case EulerY:
		return f.Result.Pose.Y, nil
	default:
		return f.Result.Pose.Z, nil
	}
}

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	faces  []Face
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by FindFaces.
func (m *MockDetector) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetResults is a shorthand for SetFaces with well-formed faces.
func (m *MockDetector) SetResults(results ...FaceResult) {
	faces := make([]Face, len(results))
	for i, r := range results {
		faces[i] = StaticFace{Result: r}
	}
	m.SetFaces(faces)
}

// SetError sets the error that will be returned by FindFaces.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FindFaces returns the pre-configured faces, truncated to maxFaces, or error.
func (m *MockDetector) FindFaces(img image.Image, maxFaces int) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.faces == nil {
		return nil, nil
	}
	n := len(m.faces)
	if maxFaces >= 0 && n > maxFaces {
		n = maxFaces
	}
	return append([]Face(nil), m.faces[:n]...), nil
}

// Calls returns the number of FindFaces calls.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FrontalFace returns a preset FaceResult of an upright face centred at
// (x, y) with the given eye distance.
func FrontalFace(x, y, eyesDistance float64) FaceResult {
	return FaceResult{
		Confidence:   0.9,
		EyesDistance: eyesDistance,
		Midpoint:     Point{X: x, Y: y},
	}
}
