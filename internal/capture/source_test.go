package capture

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBufferQueue(t *testing.T) {
	var q bufferQueue

	q.push(nil)
	if q.len() != 0 {
		t.Fatal("nil buffers should not be queued")
	}

	q.push(make([]byte, 4))
	q.push(make([]byte, 16))

	buf, ok := q.pop(8)
	if !ok {
		t.Fatal("pop() should find a large enough buffer")
	}
	if len(buf) != 8 || cap(buf) != 16 {
		t.Errorf("pop() len=%d cap=%d, want len 8 cap 16", len(buf), cap(buf))
	}
	if q.len() != 0 {
		t.Errorf("len() = %d, the small buffer should have been discarded", q.len())
	}

	if _, ok := q.pop(1); ok {
		t.Error("pop() on an empty queue should fail")
	}

	q.push(make([]byte, 1))
	q.reset()
	if q.len() != 0 {
		t.Error("reset() should drop every buffer")
	}
}

var qvga = Size{Width: 4, Height: 2}

// nv21 returns a 4x2 NV21 frame filled with v.
func nv21(v byte) []byte {
	buf := make([]byte, 4*2+4)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestMockSource_BufferProtocol(t *testing.T) {
	src := NewMockSource([]Size{qvga}, false, 0)
	src.SetFrames(qvga, [][]byte{nv21(1), nv21(2)})

	if _, err := src.SetPreviewSize(qvga); err != nil {
		t.Fatalf("SetPreviewSize() error = %v", err)
	}

	var got []Frame
	if err := src.StartPreview(func(f Frame) { got = append(got, f) }); err != nil {
		t.Fatalf("StartPreview() error = %v", err)
	}

	if src.Deliver() {
		t.Error("Deliver() should not deliver without a free buffer")
	}
	if src.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", src.Dropped())
	}

	buf := make([]byte, 12)
	src.AddBuffer(buf)
	if !src.Deliver() {
		t.Fatal("Deliver() should deliver into the added buffer")
	}
	if src.FreeBuffers() != 0 {
		t.Errorf("FreeBuffers() = %d, want 0 while the frame is lent out", src.FreeBuffers())
	}
	if &got[0].Data[0] != &buf[0] {
		t.Error("frame should be delivered in the added buffer")
	}
	if got[0].Data[0] != 1 || got[0].Seq != 1 || got[0].Width != 4 || got[0].Height != 2 {
		t.Errorf("frame = %+v", got[0])
	}

	src.AddBuffer(got[0].Data)
	if !src.Deliver() {
		t.Fatal("Deliver() should deliver the second frame")
	}
	if got[1].Data[0] != 2 || got[1].Seq != 2 {
		t.Errorf("second frame = %+v", got[1])
	}

	src.AddBuffer(got[1].Data)
	if src.Deliver() {
		t.Error("Deliver() should stop once playback is exhausted")
	}
}

func TestMockSource_Loop(t *testing.T) {
	src := NewMockSource([]Size{qvga}, true, 0)
	src.SetFrames(qvga, [][]byte{nv21(7)})
	if _, err := src.SetPreviewSize(qvga); err != nil {
		t.Fatalf("SetPreviewSize() error = %v", err)
	}

	count := 0
	_ = src.StartPreview(func(f Frame) {
		count++
		src.AddBuffer(f.Data)
	})

	src.AddBuffer(make([]byte, 12))
	for i := 0; i < 3; i++ {
		if !src.Deliver() {
			t.Fatalf("Deliver() #%d failed", i)
		}
	}
	if count != 3 {
		t.Errorf("callback ran %d times, want 3", count)
	}
}

func TestMockSource_Lifecycle(t *testing.T) {
	t.Run("unsupported size", func(t *testing.T) {
		src := NewMockSource([]Size{qvga}, false, 0)
		if _, err := src.SetPreviewSize(Size{Width: 1, Height: 1}); !errors.Is(err, ErrUnsupportedSize) {
			t.Errorf("SetPreviewSize() error = %v, want ErrUnsupportedSize", err)
		}
	})

	t.Run("reconfigure while running", func(t *testing.T) {
		src := NewMockSource([]Size{qvga}, false, 0)
		_ = src.StartPreview(func(Frame) {})
		if _, err := src.SetPreviewSize(qvga); !errors.Is(err, ErrPreviewRunning) {
			t.Errorf("SetPreviewSize() error = %v, want ErrPreviewRunning", err)
		}
	})

	t.Run("stopped source does not deliver", func(t *testing.T) {
		src := NewMockSource([]Size{qvga}, true, 0)
		src.SetFrames(qvga, [][]byte{nv21(1)})
		_, _ = src.SetPreviewSize(qvga)
		_ = src.StartPreview(func(Frame) {})
		src.StopPreview()
		src.AddBuffer(make([]byte, 12))
		if src.Deliver() {
			t.Error("Deliver() after StopPreview() should not deliver")
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		src := NewMockSource([]Size{qvga}, false, 0)
		if err := src.Release(); err != nil {
			t.Errorf("Release() error = %v", err)
		}
		if err := src.Release(); err != nil {
			t.Errorf("second Release() error = %v", err)
		}
		if !src.Released() {
			t.Error("Released() should be true")
		}
		if err := src.StartPreview(func(Frame) {}); !errors.Is(err, ErrSourceReleased) {
			t.Errorf("StartPreview() error = %v, want ErrSourceReleased", err)
		}
	})
}

func TestMockSource_StopPreviewWaitsForDeliver(t *testing.T) {
	src := NewMockSource([]Size{qvga}, true, 0)
	src.SetFrames(qvga, [][]byte{nv21(3)})
	if _, err := src.SetPreviewSize(qvga); err != nil {
		t.Fatalf("SetPreviewSize() error = %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	_ = src.StartPreview(func(Frame) {
		close(entered)
		<-release
	})
	src.AddBuffer(make([]byte, 12))

	go src.Deliver()
	<-entered

	stopped := make(chan struct{})
	go func() {
		src.StopPreview()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("StopPreview() returned while the callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("StopPreview() did not return after the callback finished")
	}

	if src.Deliver() {
		t.Error("Deliver() after StopPreview() should not deliver")
	}
}

func TestMockSource_Periodic(t *testing.T) {
	src := NewMockSource([]Size{qvga}, true, 5*time.Millisecond)
	src.SetFrames(qvga, [][]byte{nv21(3)})
	_, _ = src.SetPreviewSize(qvga)

	var mu sync.Mutex
	count := 0
	delivered := make(chan struct{}, 1)

	err := src.StartPreview(func(f Frame) {
		mu.Lock()
		count++
		mu.Unlock()
		src.AddBuffer(f.Data)
		select {
		case delivered <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("StartPreview() error = %v", err)
	}
	src.AddBuffer(make([]byte, 12))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a periodic frame")
	}

	src.StopPreview()
	mu.Lock()
	after := count
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != after {
		t.Errorf("callback ran %d times after StopPreview() returned", count-after)
	}
}

func TestSyntheticSource(t *testing.T) {
	size := Size{Width: 32, Height: 24}
	src := NewSyntheticSource([]Size{size}, 1000)
	if _, err := src.SetPreviewSize(size); err != nil {
		t.Fatalf("SetPreviewSize() error = %v", err)
	}

	got := make(chan Frame, 1)
	if err := src.StartPreview(func(f Frame) {
		select {
		case got <- f:
		default:
		}
	}); err != nil {
		t.Fatalf("StartPreview() error = %v", err)
	}
	defer src.Release()

	src.AddBuffer(make([]byte, 32*24*3/2))
	select {
	case f := <-got:
		if f.Width != 32 || f.Height != 24 || len(f.Data) != 32*24*3/2 {
			t.Errorf("frame = %dx%d with %d bytes", f.Width, f.Height, len(f.Data))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a synthetic frame")
	}
}

func TestSyntheticFrames(t *testing.T) {
	frames := SyntheticFrames(Size{Width: 16, Height: 8}, 4)
	if len(frames) != 4 {
		t.Fatalf("len(frames) = %d, want 4", len(frames))
	}
	for i, f := range frames {
		if len(f) != 16*8*3/2 {
			t.Errorf("frame %d has %d bytes", i, len(f))
		}
	}
	if string(frames[0]) == string(frames[1]) {
		t.Error("consecutive frames should differ")
	}
	if SyntheticFrames(Size{}, 4) != nil {
		t.Error("empty size should produce no frames")
	}
}
