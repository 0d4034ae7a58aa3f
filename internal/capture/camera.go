package capture

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/ayusman/monkeycam/internal/frame"
	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to use a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// DefaultSizes is the capture size list offered when none is configured.
// OpenCV cannot enumerate device modes, so these are the common UVC sizes.
var DefaultSizes = []Size{
	{Width: 1920, Height: 1080},
	{Width: 1280, Height: 720},
	{Width: 800, Height: 600},
	{Width: 640, Height: 480},
	{Width: 352, Height: 288},
	{Width: 320, Height: 240},
	{Width: 176, Height: 144},
}

// Camera is a FrameSource backed by a GoCV video capture device.
// Frames are converted from BGR to NV21 before delivery.
type Camera struct {
	deviceID int
	fps      int
	sizes    []Size

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	size     Size
	released bool
	stopCh   chan struct{}
	done     chan struct{}
	seq      uint64
	dropped  uint64

	buffers bufferQueue
}

// NewCamera creates a Camera for the given device. A nil or empty sizes
// list selects DefaultSizes and a non-positive fps selects DefaultFPS.
func NewCamera(deviceID, fps int, sizes []Size) *Camera {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	return &Camera{
		deviceID: deviceID,
		fps:      fps,
		sizes:    append([]Size(nil), sizes...),
		size:     Size{Width: DefaultWidth, Height: DefaultHeight},
	}
}

// Open opens the capture device.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrSourceReleased
	}
	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.size.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.size.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	return nil
}

// IsOpen returns true if the capture device is open.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

// SupportedSizes returns the capture sizes offered by the camera.
func (c *Camera) SupportedSizes() []Size {
	return append([]Size(nil), c.sizes...)
}

// SetPreviewSize configures the capture resolution. Frames are always
// delivered at the configured size, resizing when the device ignores the
// request.
func (c *Camera) SetPreviewSize(size Size) (Size, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return Size{}, ErrSourceReleased
	}
	if c.stopCh != nil {
		return Size{}, ErrPreviewRunning
	}
	if !containsSize(c.sizes, size) {
		return Size{}, fmt.Errorf("%w: %s", ErrUnsupportedSize, size)
	}

	c.size = size
	c.buffers.reset()

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFrameWidth, float64(size.Width))
		c.capture.Set(gocv.VideoCaptureFrameHeight, float64(size.Height))
		got := Size{
			Width:  int(c.capture.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(c.capture.Get(gocv.VideoCaptureFrameHeight)),
		}
		if got != size {
			log.Printf("Camera %d delivers %s, resizing to %s", c.deviceID, got, size)
		}
	}

	return size, nil
}

// AddBuffer queues a buffer for the next frame.
func (c *Camera) AddBuffer(buf []byte) {
	c.buffers.push(buf)
}

// StartPreview starts the capture loop. Frames arrive on cb from a single
// goroutine at the configured FPS.
func (c *Camera) StartPreview(cb FrameCallback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrSourceReleased
	}
	if c.capture == nil {
		return ErrCameraNotOpen
	}
	if c.stopCh != nil {
		return nil
	}

	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.capture, c.size, cb, c.stopCh, c.done)

	return nil
}

// StopPreview stops the capture loop and waits for the current callback.
func (c *Camera) StopPreview() {
	c.mu.Lock()
	stopCh, done := c.stopCh, c.done
	c.stopCh, c.done = nil, nil
	c.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

// Release stops the preview and closes the device.
func (c *Camera) Release() error {
	c.StopPreview()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}
	c.released = true
	c.buffers.reset()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// Dropped returns the number of frames dropped for lack of a free buffer.
func (c *Camera) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Camera) run(capture *gocv.VideoCapture, size Size, cb FrameCallback, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if ok := capture.Read(&img); !ok || img.Empty() {
			log.Printf("Camera %d: failed to read frame", c.deviceID)
			continue
		}

		buf, ok := c.buffers.pop(frame.BufferSize(size.Width, size.Height))
		if !ok {
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			continue
		}

		if err := matToNV21(img, size, buf); err != nil {
			log.Printf("Camera %d: convert frame: %v", c.deviceID, err)
			c.buffers.push(buf)
			continue
		}

		c.mu.Lock()
		c.seq++
		seq := c.seq
		c.mu.Unlock()

		cb(Frame{
			Data:      buf,
			Width:     size.Width,
			Height:    size.Height,
			Seq:       seq,
			Timestamp: time.Now(),
		})
	}
}

// matToNV21 writes a BGR frame into dst as NV21 at the given size.
func matToNV21(bgr gocv.Mat, size Size, dst []byte) error {
	src := bgr
	if bgr.Cols() != size.Width || bgr.Rows() != size.Height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(bgr, &resized, image.Pt(size.Width, size.Height), 0, 0, gocv.InterpolationLinear)
		src = resized
	}

	yuv := gocv.NewMat()
	defer yuv.Close()
	gocv.CvtColor(src, &yuv, gocv.ColorBGRToYUVI420)

	return frame.I420ToNV21(yuv.ToBytes(), dst, size.Width, size.Height)
}
