package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// LoadAsset reads the overlay image from path, applying any EXIF orientation.
func LoadAsset(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load overlay asset: %w", err)
	}
	asset := imaging.Clone(img)
	if asset.Bounds().Empty() {
		return nil, fmt.Errorf("load overlay asset: %s is empty", path)
	}
	return asset, nil
}

// Monkey head palette.
var (
	furColor     = color.NRGBA{R: 110, G: 70, B: 40, A: 255}
	faceColor    = color.NRGBA{R: 230, G: 190, B: 150, A: 255}
	featureColor = color.NRGBA{R: 40, G: 25, B: 15, A: 255}
)

// DefaultAsset draws a w x h monkey head on a transparent background.
func DefaultAsset(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{})
	if w <= 0 || h <= 0 {
		return img
	}

	fw, fh := float64(w), float64(h)
	type ellipse struct {
		cx, cy, rx, ry float64
		c              color.NRGBA
	}

	// Painted in order, later shapes on top.
	shapes := []ellipse{
		{0.14, 0.45, 0.14, 0.16, furColor},      // left ear
		{0.86, 0.45, 0.14, 0.16, furColor},      // right ear
		{0.14, 0.45, 0.08, 0.10, faceColor},     // inner left ear
		{0.86, 0.45, 0.08, 0.10, faceColor},     // inner right ear
		{0.50, 0.50, 0.36, 0.46, furColor},      // head
		{0.38, 0.42, 0.13, 0.16, faceColor},     // left eye patch
		{0.62, 0.42, 0.13, 0.16, faceColor},     // right eye patch
		{0.50, 0.68, 0.26, 0.20, faceColor},     // muzzle
		{0.38, 0.43, 0.045, 0.06, featureColor}, // left eye
		{0.62, 0.43, 0.045, 0.06, featureColor}, // right eye
		{0.45, 0.62, 0.02, 0.025, featureColor}, // nostrils
		{0.55, 0.62, 0.02, 0.025, featureColor},
	}

	for _, s := range shapes {
		fillEllipse(img, s.cx*fw, s.cy*fh, s.rx*fw, s.ry*fh, s.c)
	}

	// Mouth.
	for x := int(0.40 * fw); x <= int(0.60*fw); x++ {
		t := (float64(x) - 0.5*fw) / (0.1 * fw)
		y := int(0.74*fh + t*t*0.03*fh)
		for dy := 0; dy <= h/100; dy++ {
			img.SetNRGBA(x, y-dy, featureColor)
		}
	}

	return img
}

func fillEllipse(img *image.NRGBA, cx, cy, rx, ry float64, c color.NRGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	b := img.Bounds()
	for y := int(cy - ry); y <= int(cy+ry); y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := int(cx - rx); x <= int(cx+rx); x++ {
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}
