// Package capture provides frame sources and capture size selection.
package capture

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrSourceReleased is returned when using a source after Release.
	ErrSourceReleased = errors.New("frame source released")
	// ErrPreviewRunning is returned when reconfiguring a source while it is delivering frames.
	ErrPreviewRunning = errors.New("preview is running")
	// ErrUnsupportedSize is returned when a preview size is not offered by the source.
	ErrUnsupportedSize = errors.New("unsupported preview size")
)

// Frame is a raw NV21 frame borrowed from a FrameSource.
// Data must be handed back with AddBuffer once processing is done.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
}

// FrameCallback receives frames from a source. Calls are never concurrent.
type FrameCallback func(Frame)

// FrameSource delivers NV21 frames into caller supplied buffers.
//
// A source only delivers a frame when it holds a free buffer; buffers given
// with AddBuffer are filled, passed to the callback and stay with the
// receiver until they are added again.
type FrameSource interface {
	// SupportedSizes returns the capture sizes offered by the source.
	SupportedSizes() []Size
	// SetPreviewSize configures the capture size and reports the size in effect.
	SetPreviewSize(size Size) (Size, error)
	// AddBuffer queues a buffer for the next frame.
	AddBuffer(buf []byte)
	// StartPreview begins delivering frames to cb.
	StartPreview(cb FrameCallback) error
	// StopPreview stops delivery and returns once no callback is running.
	StopPreview()
	// Release frees the underlying device. It is safe to call more than once.
	Release() error
}

// bufferQueue holds the buffers lent to a source by its consumer.
type bufferQueue struct {
	mu   sync.Mutex
	bufs [][]byte
}

// push queues buf for reuse. Nil buffers are ignored.
func (q *bufferQueue) push(buf []byte) {
	if buf == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufs = append(q.bufs, buf)
}

// pop takes a buffer of at least size bytes. Smaller buffers are discarded,
// matching a device that drops buffers queued for a previous size.
func (q *bufferQueue) pop(size int) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.bufs) > 0 {
		buf := q.bufs[0]
		q.bufs = q.bufs[1:]
		if len(buf) >= size {
			return buf[:size], true
		}
	}
	return nil, false
}

// reset drops all queued buffers.
func (q *bufferQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufs = nil
}

// len returns the number of queued buffers.
func (q *bufferQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bufs)
}

// containsSize reports whether sizes contains s.
func containsSize(sizes []Size, s Size) bool {
	for _, c := range sizes {
		if c == s {
			return true
		}
	}
	return false
}
