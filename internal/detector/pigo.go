package detector

import (
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

// Pigo cascade tuning.
const (
	pigoShiftFactor  = 0.1
	pigoScaleFactor  = 1.1
	pigoIoUThreshold = 0.2
	pigoPerturbs     = 63
	// pigoScoreScale maps raw cascade scores onto 0..1 confidences.
	pigoScoreScale = 100.0
	// pigoMinCascade is the smallest packed cascade pigo can read a header from.
	pigoMinCascade = 16
)

// PigoDetector finds faces with a pigo face cascade and localizes both
// pupils with a pigo pupil cascade.
type PigoDetector struct {
	config     Config
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
}

// NewPigoDetector unpacks the face and pupil cascades.
func NewPigoDetector(faceCascade, puplocCascade []byte, config Config) (*PigoDetector, error) {
	if len(faceCascade) < pigoMinCascade {
		return nil, fmt.Errorf("face cascade too short: %d bytes", len(faceCascade))
	}
	if len(puplocCascade) < pigoMinCascade {
		return nil, fmt.Errorf("puploc cascade too short: %d bytes", len(puplocCascade))
	}

	classifier, err := pigo.NewPigo().Unpack(faceCascade)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}

	puploc, err := pigo.NewPuplocCascade().UnpackCascade(puplocCascade)
	if err != nil {
		return nil, fmt.Errorf("unpack puploc cascade: %w", err)
	}

	return &PigoDetector{
		config:     config,
		classifier: classifier,
		puploc:     puploc,
	}, nil
}

// LoadPigoDetector reads the cascade files and creates a PigoDetector.
func LoadPigoDetector(facePath, puplocPath string, config Config) (*PigoDetector, error) {
	face, err := os.ReadFile(facePath)
	if err != nil {
		return nil, fmt.Errorf("read face cascade: %w", err)
	}
	puploc, err := os.ReadFile(puplocPath)
	if err != nil {
		return nil, fmt.Errorf("read puploc cascade: %w", err)
	}
	return NewPigoDetector(face, puploc, config)
}

// FindFaces implements Detector. Faces are ordered by descending score.
func (d *PigoDetector) FindFaces(img image.Image, maxFaces int) ([]Face, error) {
	src := pigo.ImgToNRGBA(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	imgParams := pigo.ImageParams{
		Pixels: pigo.RgbToGrayscale(src),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.config.MinFaceSize,
		MaxSize:     d.config.MaxFaceSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: pigoScaleFactor,
		ImageParams: imgParams,
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, pigoIoUThreshold)

	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Q > dets[j].Q })

	faces := make([]Face, 0, len(dets))
	for _, det := range dets {
		if len(faces) >= maxFaces {
			break
		}

		confidence := float64(det.Q) / pigoScoreScale
		if confidence > 1 {
			confidence = 1
		}
		if confidence < d.config.MinConfidence {
			continue
		}

		faces = append(faces, d.locateEyes(det, imgParams, confidence))
	}

	return faces, nil
}

// locateEyes runs the pupil cascade around the expected eye positions of det.
func (d *PigoDetector) locateEyes(det pigo.Detection, img pigo.ImageParams, confidence float64) Face {
	scale := float32(det.Scale)

	left := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col - int(0.175*scale),
		Scale:    scale * 0.25,
		Perturbs: pigoPerturbs,
	}, img, 0.0, false)

	right := d.puploc.RunDetector(pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col + int(0.185*scale),
		Scale:    scale * 0.25,
		Perturbs: pigoPerturbs,
	}, img, 0.0, false)

	f := eyeFace{confidence: confidence}
	if left == nil || right == nil || left.Row <= 0 || left.Col <= 0 || right.Row <= 0 || right.Col <= 0 {
		return f
	}

	f.left = Point{X: float64(left.Col), Y: float64(left.Row)}
	f.right = Point{X: float64(right.Col), Y: float64(right.Row)}
	f.located = true
	return f
}

// Close is a no-op; the cascades hold no external resources.
func (d *PigoDetector) Close() error {
	return nil
}
