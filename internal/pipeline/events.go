package pipeline

import (
	"errors"
	"fmt"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/overlay"
)

var (
	// ErrFrameInFlight is returned when a frame arrives while the previous
	// one is still being processed. The caller keeps the buffer.
	ErrFrameInFlight = errors.New("frame already in flight")
	// ErrStopped is returned for any event after the surface was destroyed.
	ErrStopped = errors.New("pipeline stopped")
	// ErrNotConfigured is returned for frames that arrive before the first
	// surface configuration.
	ErrNotConfigured = errors.New("pipeline not configured")
	// ErrFrameSize is returned for frames whose size differs from the
	// configured capture size.
	ErrFrameSize = errors.New("frame size does not match capture size")
	// ErrUnknownEvent is returned by Handle for unsupported event types.
	ErrUnknownEvent = errors.New("unknown event")
)

// State is the lifecycle state of a Controller.
type State int

// Controller states.
const (
	Uninitialized State = iota
	Configured
	Running
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event drives the Controller state machine.
type Event interface {
	isEvent()
}

// SurfaceChanged reports a new or resized display surface.
type SurfaceChanged struct {
	Viewport overlay.Viewport
}

// FrameReady carries a frame delivered by the frame source.
type FrameReady struct {
	Frame capture.Frame
}

// SurfaceDestroyed reports that the display surface is gone.
type SurfaceDestroyed struct{}

func (SurfaceChanged) isEvent()   {}
func (FrameReady) isEvent()       {}
func (SurfaceDestroyed) isEvent() {}

// ConfigurationError is returned when no capture session can be set up for
// a viewport. The controller is left not running.
type ConfigurationError struct {
	Viewport overlay.Viewport
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configure capture for %dx%d viewport: %v", e.Viewport.Width, e.Viewport.Height, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ReleaseError wraps a failure to release the frame source during teardown.
// It is logged and never stops the teardown.
type ReleaseError struct {
	Err error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release frame source: %v", e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}
