package detector

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

// HaarDetector finds faces and eyes with OpenCV Haar cascades.
// OpenCV reports no score, so every face has confidence 1.
type HaarDetector struct {
	config Config
	mu     sync.Mutex
	faces  gocv.CascadeClassifier
	eyes   gocv.CascadeClassifier
	closed bool
}

// NewHaarDetector loads the face and eye cascade XML files.
func NewHaarDetector(faceCascadePath, eyeCascadePath string, config Config) (*HaarDetector, error) {
	faces := gocv.NewCascadeClassifier()
	if !faces.Load(faceCascadePath) {
		faces.Close()
		return nil, fmt.Errorf("load face cascade %s", faceCascadePath)
	}

	eyes := gocv.NewCascadeClassifier()
	if !eyes.Load(eyeCascadePath) {
		faces.Close()
		eyes.Close()
		return nil, fmt.Errorf("load eye cascade %s", eyeCascadePath)
	}

	return &HaarDetector{
		config: config,
		faces:  faces,
		eyes:   eyes,
	}, nil
}

// FindFaces implements Detector. Faces are ordered by descending area.
func (d *HaarDetector) FindFaces(img image.Image, maxFaces int) ([]Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("haar detector is closed")
	}

	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	rects := d.faces.DetectMultiScale(gray)
	sort.SliceStable(rects, func(i, j int) bool { return area(rects[i]) > area(rects[j]) })

	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		if len(faces) >= maxFaces {
			break
		}
		if d.config.MinFaceSize > 0 && r.Dx() < d.config.MinFaceSize {
			continue
		}
		if d.config.MaxFaceSize > 0 && r.Dx() > d.config.MaxFaceSize {
			continue
		}
		faces = append(faces, d.locateEyes(gray, r))
	}

	return faces, nil
}

// locateEyes searches the upper part of a face for the two largest eyes.
func (d *HaarDetector) locateEyes(gray gocv.Mat, face image.Rectangle) Face {
	f := eyeFace{confidence: 1}

	upper := image.Rect(face.Min.X, face.Min.Y, face.Max.X, face.Min.Y+face.Dy()*6/10)
	region := gray.Region(upper)
	defer region.Close()

	eyes := d.eyes.DetectMultiScale(region)
	if len(eyes) < 2 {
		return f
	}

	sort.SliceStable(eyes, func(i, j int) bool { return area(eyes[i]) > area(eyes[j]) })
	a, b := center(eyes[0], upper.Min), center(eyes[1], upper.Min)
	if a.X > b.X {
		a, b = b, a
	}

	f.left, f.right, f.located = a, b, true
	return f
}

// Close releases the cascades.
func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.faces.Close()
	d.eyes.Close()
	return nil
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

func center(r image.Rectangle, offset image.Point) Point {
	return Point{
		X: float64(offset.X) + float64(r.Min.X+r.Max.X)/2,
		Y: float64(offset.Y) + float64(r.Min.Y+r.Max.Y)/2,
	}
}
