// Package frame converts raw NV21 camera frames into RGB565 bitmaps.
package frame

import (
	"fmt"
	"image"
	"image/color"
)

// BufferSize returns the number of bytes of an NV21 frame of the given size:
// a full resolution Y plane followed by an interleaved VU plane at half
// resolution in both directions.
func BufferSize(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	cw, ch := (width+1)/2, (height+1)/2
	return width*height + 2*cw*ch
}

// checkLayout validates the frame geometry and buffer length.
func checkLayout(data []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame rectangle %dx%d", width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("odd frame dimensions %dx%d", width, height)
	}
	if need := BufferSize(width, height); len(data) < need {
		return fmt.Errorf("frame buffer holds %d bytes, need %d", len(data), need)
	}
	return nil
}

// toYCbCr wraps an NV21 buffer as a 4:2:0 YCbCr image. The luma plane is
// shared with data; the chroma planes are de-interleaved copies.
func toYCbCr(data []byte, width, height int) *image.YCbCr {
	img := &image.YCbCr{
		Y:              data[:width*height],
		YStride:        width,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}

	chroma := (width / 2) * (height / 2)
	img.Cb = make([]byte, chroma)
	img.Cr = make([]byte, chroma)

	vu := data[width*height:]
	for i := 0; i < chroma; i++ {
		img.Cr[i] = vu[2*i]
		img.Cb[i] = vu[2*i+1]
	}

	return img
}

// EncodeNV21 converts an image to an NV21 buffer. Chroma is sampled from the
// top-left pixel of each 2x2 block. Odd dimensions are truncated to even.
func EncodeNV21(img image.Image) []byte {
	b := img.Bounds()
	width, height := b.Dx()&^1, b.Dy()&^1
	if width <= 0 || height <= 0 {
		return nil
	}

	out := make([]byte, BufferSize(width, height))
	vu := out[width*height:]

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl := rgb8(img.At(b.Min.X+x, b.Min.Y+y))
			yy, cb, cr := color.RGBToYCbCr(r, g, bl)
			out[y*width+x] = yy
			if x%2 == 0 && y%2 == 0 {
				i := (y/2)*(width/2) + x/2
				vu[2*i] = cr
				vu[2*i+1] = cb
			}
		}
	}

	return out
}

// I420ToNV21 rearranges a planar I420 frame (Y, U, V) into NV21 (Y, VU).
func I420ToNV21(src, dst []byte, width, height int) error {
	need := BufferSize(width, height)
	if need == 0 || width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("invalid frame rectangle %dx%d", width, height)
	}
	if len(src) < need || len(dst) < need {
		return fmt.Errorf("I420 conversion needs %d bytes, have src=%d dst=%d", need, len(src), len(dst))
	}

	luma := width * height
	chroma := luma / 4
	copy(dst[:luma], src[:luma])

	u := src[luma : luma+chroma]
	v := src[luma+chroma : luma+2*chroma]
	vu := dst[luma:]
	for i := 0; i < chroma; i++ {
		vu[2*i] = v[i]
		vu[2*i+1] = u[i]
	}

	return nil
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
