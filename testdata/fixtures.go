// Package testdata builds NV21 frame fixtures for tests.
package testdata

import (
	"image/color"
	"time"

	"github.com/ayusman/monkeycam/internal/capture"
	"github.com/ayusman/monkeycam/internal/frame"
	"github.com/disintegration/imaging"
)

// solidFrame returns an NV21 frame of size filled with c.
func solidFrame(size capture.Size, c color.Color) []byte {
	return frame.EncodeNV21(imaging.New(size.Width, size.Height, c))
}

// sequence returns n solid frames whose brightness steps from dark to light.
func sequence(size capture.Size, n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		v := uint8(32 + i*192/max(n, 1))
		frames[i] = solidFrame(size, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	return frames
}

// Source returns a looping MockSource playing sequence frames at every size
// in sizes, one frame per period.
func Source(sizes []capture.Size, n int, period time.Duration) *capture.MockSource {
	src := capture.NewMockSource(sizes, true, period)
	for _, s := range sizes {
		src.SetFrames(s, sequence(s, n))
	}
	return src
}
