package capture

import (
	"image"
	"image/color"
	"time"

	"github.com/ayusman/monkeycam/internal/frame"
)

// SyntheticFrameCount is the length of the looped synthetic sequence.
const SyntheticFrameCount = 30

// NewSyntheticSource returns a looping MockSource that renders a moving
// test pattern at whichever of sizes is selected, fps times per second.
func NewSyntheticSource(sizes []Size, fps int) *MockSource {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	m := NewMockSource(sizes, true, time.Second/time.Duration(fps))
	m.generate = func(s Size) [][]byte {
		return SyntheticFrames(s, SyntheticFrameCount)
	}
	return m
}

// SyntheticFrames renders n NV21 frames of a diagonal gradient with a bright
// bar sweeping across it.
func SyntheticFrames(size Size, n int) [][]byte {
	if size.Width <= 0 || size.Height <= 0 || n <= 0 {
		return nil
	}

	frames := make([][]byte, n)
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for i := range frames {
		bar := size.Width * i / n
		barWidth := size.Width/16 + 1
		for y := 0; y < size.Height; y++ {
			for x := 0; x < size.Width; x++ {
				c := color.RGBA{
					R: uint8(255 * x / size.Width),
					G: uint8(255 * y / size.Height),
					B: 96,
					A: 255,
				}
				if x >= bar && x < bar+barWidth {
					c = color.RGBA{R: 240, G: 240, B: 240, A: 255}
				}
				img.SetRGBA(x, y, c)
			}
		}
		frames[i] = frame.EncodeNV21(img)
	}
	return frames
}
