package frame

import (
	"image"
	"image/color"
)

// RGB565 is a 16-bit color with 5 bits of red, 6 of green and 5 of blue.
type RGB565 uint16

// RGBA implements color.Color. Channels are expanded by bit replication.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1f
	g6 := uint32(c>>5) & 0x3f
	b5 := uint32(c) & 0x1f

	r8 := r5<<3 | r5>>2
	g8 := g6<<2 | g6>>4
	b8 := b5<<3 | b5>>2

	return r8 * 0x101, g8 * 0x101, b8 * 0x101, 0xffff
}

// PackRGB565 quantizes 8-bit channels to an RGB565 color.
func PackRGB565(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB565Model converts any color to RGB565.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if c, ok := c.(RGB565); ok {
		return c
	}
	return PackRGB565(rgb8(c))
})

// Bitmap is an RGB565 pixel buffer. It implements image.Image.
type Bitmap struct {
	Pix    []uint16
	Width  int
	Height int
}

// NewBitmap allocates a black bitmap of the given size.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Bitmap{
		Pix:    make([]uint16, width*height),
		Width:  width,
		Height: height,
	}
}

// ColorModel implements image.Image.
func (b *Bitmap) ColorModel() color.Model { return RGB565Model }

// Bounds implements image.Image.
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image.
func (b *Bitmap) At(x, y int) color.Color {
	return b.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y), or black outside the bitmap.
func (b *Bitmap) RGB565At(x, y int) RGB565 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	return RGB565(b.Pix[y*b.Width+x])
}

// Set implements draw.Image.
func (b *Bitmap) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Width+x] = uint16(RGB565Model.Convert(c).(RGB565))
}

// bitmapFromImage quantizes img into a new bitmap. YCbCr and RGBA sources
// take fast paths since they are what the decoders produce.
func bitmapFromImage(img image.Image) *Bitmap {
	r := img.Bounds()
	bmp := NewBitmap(r.Dx(), r.Dy())

	switch src := img.(type) {
	case *image.YCbCr:
		for y := 0; y < bmp.Height; y++ {
			for x := 0; x < bmp.Width; x++ {
				yi := src.YOffset(r.Min.X+x, r.Min.Y+y)
				ci := src.COffset(r.Min.X+x, r.Min.Y+y)
				cr, cg, cb := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				bmp.Pix[y*bmp.Width+x] = uint16(PackRGB565(cr, cg, cb))
			}
		}
	case *image.RGBA:
		for y := 0; y < bmp.Height; y++ {
			for x := 0; x < bmp.Width; x++ {
				i := src.PixOffset(r.Min.X+x, r.Min.Y+y)
				bmp.Pix[y*bmp.Width+x] = uint16(PackRGB565(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
			}
		}
	default:
		for y := 0; y < bmp.Height; y++ {
			for x := 0; x < bmp.Width; x++ {
				bmp.Pix[y*bmp.Width+x] = uint16(PackRGB565(rgb8(img.At(r.Min.X+x, r.Min.Y+y))))
			}
		}
	}

	return bmp
}
