// Package detector wraps face detection primitives and extracts per-frame
// face geometry into a fixed-capacity result set.
package detector

import (
	"errors"
	"image"
	"math"
)

// ErrFaceExtraction marks a detection whose geometry could not be read.
var ErrFaceExtraction = errors.New("face extraction failed")

// Axis selects a pose angle.
type Axis int

// Euler axes, matching the pose angles reported per face.
const (
	EulerX Axis = iota
	EulerY
	EulerZ
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case EulerX:
		return "x"
	case EulerY:
		return "y"
	case EulerZ:
		return "z"
	default:
		return "unknown"
	}
}

// Point is a position in capture space, in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose holds the Euler angles of a face, in degrees.
type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceResult is the geometry extracted from one detected face.
type FaceResult struct {
	Confidence   float64 `json:"confidence"`
	EyesDistance float64 `json:"eyes_distance"`
	Midpoint     Point   `json:"midpoint"`
	Pose         Pose    `json:"pose"`
}

// Face is an opaque handle returned by a Detector. Accessors may fail when
// the detection is partial.
type Face interface {
	Confidence() float64
	EyesDistance() (float64, error)
	MidPoint() (Point, error)
	Pose(axis Axis) (float64, error)
}

// Detector is a face detection primitive.
type Detector interface {
	// FindFaces returns up to maxFaces handles for the faces in img.
	FindFaces(img image.Image, maxFaces int) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options shared by the detection primitives.
type Config struct {
	// MinConfidence drops detections scoring below it (0.0-1.0).
	MinConfidence float64

	// MinFaceSize and MaxFaceSize bound the searched face size in pixels.
	MinFaceSize int
	MaxFaceSize int
}

// DefaultMaxFaces is the default number of result slots.
const DefaultMaxFaces = 32

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.05,
		MinFaceSize:   40,
		MaxFaceSize:   1000,
	}
}

// distance2D calculates the Euclidean distance between two points.
func distance2D(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// midpoint returns the point halfway between a and b.
func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// roll returns the in-plane rotation of the line from left to right, in degrees.
func roll(left, right Point) float64 {
	return math.Atan2(right.Y-left.Y, right.X-left.X) * 180 / math.Pi
}

// eyeFace is a Face built from two located eyes.
type eyeFace struct {
	confidence float64
	left       Point
	right      Point
	located    bool
}

func (f eyeFace) Confidence() float64 { return f.confidence }

func (f eyeFace) EyesDistance() (float64, error) {
	if !f.located {
		return 0, ErrFaceExtraction
	}
	return distance2D(f.left, f.right), nil
}

func (f eyeFace) MidPoint() (Point, error) {
	if !f.located {
		return Point{}, ErrFaceExtraction
	}
	return midpoint(f.left, f.right), nil
}

// Pose reports the roll from the eye line on EulerZ. Yaw and pitch are not
// estimated and read as zero.
func (f eyeFace) Pose(axis Axis) (float64, error) {
	if !f.located {
		return 0, ErrFaceExtraction
	}
	if axis == EulerZ {
		return roll(f.left, f.right), nil
	}
	return 0, nil
}
