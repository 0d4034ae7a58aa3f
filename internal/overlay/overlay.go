// Package overlay places and draws the overlay asset over detected faces.
package overlay

import (
	"image"
	"image/draw"
	"math"

	"github.com/ayusman/monkeycam/internal/detector"
	xdraw "golang.org/x/image/draw"
)

// SizeFactor is the overlay width in eye distances.
const SizeFactor = 4.0

// Viewport is the display size in pixels. It is independent of the capture
// size and may change at any time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Size is the native size of the overlay asset.
type Size struct {
	Width  int
	Height int
}

// Rect is a destination rectangle in display space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Image rounds r to the pixel grid.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.Left)),
		int(math.Round(r.Top)),
		int(math.Round(r.Right)),
		int(math.Round(r.Bottom)),
	)
}

// Placement is where the overlay goes for the face in slot Index.
type Placement struct {
	Index int  `json:"index"`
	Rect  Rect `json:"rect"`
}

// Place computes one placement per populated slot of faces, in ascending
// slot order. Midpoints are in capture space (frameW x frameH) and the
// rectangles are mapped to the viewport, each axis on its own ratio.
func Place(vp Viewport, frameW, frameH int, asset Size, faces detector.Results) []Placement {
	if !vp.Valid() || frameW <= 0 || frameH <= 0 || asset.Width <= 0 || asset.Height <= 0 {
		return nil
	}

	xRatio := float64(vp.Width) / float64(frameW)
	yRatio := float64(vp.Height) / float64(frameH)

	var placements []Placement
	for i := 0; i < faces.Len(); i++ {
		face, ok := faces.At(i).Get()
		if !ok {
			continue
		}

		scale := face.EyesDistance * SizeFactor / float64(asset.Width)
		halfW := float64(asset.Width) * scale / 2
		halfH := float64(asset.Height) * scale / 2

		placements = append(placements, Placement{
			Index: i,
			Rect: Rect{
				Left:   (face.Midpoint.X - halfW) * xRatio,
				Top:    (face.Midpoint.Y - halfH) * yRatio,
				Right:  (face.Midpoint.X + halfW) * xRatio,
				Bottom: (face.Midpoint.Y + halfH) * yRatio,
			},
		})
	}
	return placements
}

// Render stretches asset into every placement, compositing over dst.
// Later placements end up on top. Rectangles are relative to dst's origin.
func Render(dst draw.Image, asset image.Image, placements []Placement) {
	if asset == nil {
		return
	}
	origin := dst.Bounds().Min
	for _, p := range placements {
		r := p.Rect.Image().Add(origin)
		if r.Empty() || !r.Overlaps(dst.Bounds()) {
			continue
		}
		xdraw.BiLinear.Scale(dst, r, asset, asset.Bounds(), xdraw.Over, nil)
	}
}

// Compositor draws a preview frame and the overlay asset onto a canvas.
type Compositor struct {
	asset image.Image
	size  Size
}

// NewCompositor creates a Compositor for asset.
func NewCompositor(asset image.Image) *Compositor {
	b := asset.Bounds()
	return &Compositor{
		asset: asset,
		size:  Size{Width: b.Dx(), Height: b.Dy()},
	}
}

// AssetSize returns the native size of the overlay asset.
func (c *Compositor) AssetSize() Size {
	return c.size
}

// Place computes the placements of faces detected on a frameW x frameH
// frame for the viewport vp.
func (c *Compositor) Place(vp Viewport, frameW, frameH int, faces detector.Results) []Placement {
	return Place(vp, frameW, frameH, c.size, faces)
}

// Compose fills dst with preview stretched to the canvas and draws the
// overlay over each face. The canvas size is the viewport. A nil preview
// leaves the canvas background untouched.
func (c *Compositor) Compose(dst draw.Image, preview image.Image, faces detector.Results) []Placement {
	b := dst.Bounds()
	if preview == nil {
		return nil
	}

	pb := preview.Bounds()
	xdraw.ApproxBiLinear.Scale(dst, b, preview, pb, xdraw.Src, nil)

	placements := c.Place(Viewport{Width: b.Dx(), Height: b.Dy()}, pb.Dx(), pb.Dy(), faces)
	Render(dst, c.asset, placements)
	return placements
}
