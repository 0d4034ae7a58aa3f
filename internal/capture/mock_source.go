package capture

import (
	"fmt"
	"sync"
	"time"
)

// MockSource plays back pre-recorded NV21 frames. It honours the buffer
// protocol: a frame is only delivered when a buffer has been added.
type MockSource struct {
	sizes    []Size
	frames   map[Size][][]byte
	generate func(Size) [][]byte
	loop     bool
	period   time.Duration

	mu       sync.Mutex
	size     Size
	index    int
	seq      uint64
	released bool
	stopCh   chan struct{}
	done     chan struct{}
	cb       FrameCallback
	dropped  uint64

	// active counts Deliver calls that picked up cb and have not returned.
	active  sync.WaitGroup
	buffers bufferQueue
}

// NewMockSource creates a MockSource offering the given sizes.
// A zero period makes StartPreview deliver only on Deliver calls.
func NewMockSource(sizes []Size, loop bool, period time.Duration) *MockSource {
	return &MockSource{
		sizes:  append([]Size(nil), sizes...),
		frames: make(map[Size][][]byte),
		loop:   loop,
		period: period,
	}
}

// SetFrames replaces the frame sequence played at the given size.
func (m *MockSource) SetFrames(size Size, frames [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[size] = frames
	m.index = 0
}

// SupportedSizes returns the configured sizes.
func (m *MockSource) SupportedSizes() []Size {
	return append([]Size(nil), m.sizes...)
}

// SetPreviewSize selects the size used for playback.
func (m *MockSource) SetPreviewSize(size Size) (Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return Size{}, ErrSourceReleased
	}
	if m.cb != nil {
		return Size{}, ErrPreviewRunning
	}
	if !containsSize(m.sizes, size) {
		return Size{}, fmt.Errorf("%w: %s", ErrUnsupportedSize, size)
	}
	if _, ok := m.frames[size]; !ok && m.generate != nil {
		m.frames[size] = m.generate(size)
	}
	m.size = size
	m.index = 0
	m.buffers.reset()
	return size, nil
}

// AddBuffer queues a buffer for the next frame.
func (m *MockSource) AddBuffer(buf []byte) {
	m.buffers.push(buf)
}

// FreeBuffers returns the number of buffers waiting to be filled.
func (m *MockSource) FreeBuffers() int {
	return m.buffers.len()
}

// StartPreview registers cb and, with a non-zero period, starts a playback goroutine.
func (m *MockSource) StartPreview(cb FrameCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return ErrSourceReleased
	}
	if m.cb != nil {
		return nil
	}
	m.cb = cb

	if m.period > 0 {
		m.stopCh = make(chan struct{})
		m.done = make(chan struct{})
		go m.run(m.stopCh, m.done)
	}
	return nil
}

// StopPreview stops playback and waits for the running callback, including
// one entered through a manual Deliver.
func (m *MockSource) StopPreview() {
	m.mu.Lock()
	stopCh, done := m.stopCh, m.done
	m.stopCh, m.done, m.cb = nil, nil, nil
	m.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}
	m.active.Wait()
}

// Release marks the source released. Further calls are no-ops.
func (m *MockSource) Release() error {
	m.StopPreview()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

// Released reports whether Release has been called.
func (m *MockSource) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Dropped returns the number of frames skipped for lack of a free buffer.
func (m *MockSource) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Deliver pushes the next frame synchronously. It reports false when the
// preview is stopped, no buffer is free or playback is exhausted.
func (m *MockSource) Deliver() bool {
	m.mu.Lock()
	cb := m.cb
	if cb == nil {
		m.mu.Unlock()
		return false
	}
	m.active.Add(1)
	defer m.active.Done()

	frames := m.frames[m.size]
	if len(frames) == 0 {
		m.mu.Unlock()
		return false
	}
	if m.index >= len(frames) {
		if !m.loop {
			m.mu.Unlock()
			return false
		}
		m.index = 0
	}
	src := frames[m.index]
	size := m.size
	m.mu.Unlock()

	buf, ok := m.buffers.pop(len(src))
	if !ok {
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		return false
	}
	copy(buf, src)

	m.mu.Lock()
	m.index++
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	cb(Frame{
		Data:      buf,
		Width:     size.Width,
		Height:    size.Height,
		Seq:       seq,
		Timestamp: time.Now(),
	})
	return true
}

func (m *MockSource) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.deliverUnlessStopped(stopCh)
		}
	}
}

// deliverUnlessStopped delivers one frame unless stop has been requested.
func (m *MockSource) deliverUnlessStopped(stopCh <-chan struct{}) {
	select {
	case <-stopCh:
		return
	default:
	}
	m.Deliver()
}
