package capture

import (
	"errors"
	"fmt"
	"math"
)

// AspectTolerance is the maximum aspect ratio deviation accepted when
// matching a capture size to a requested display size.
const AspectTolerance = 0.05

var (
	// ErrNoCandidates is returned when there are no capture sizes to choose from.
	ErrNoCandidates = errors.New("no capture size candidates")
	// ErrInvalidRequest is returned when the requested size is not positive.
	ErrInvalidRequest = errors.New("invalid requested size")
)

// Size is a capture resolution offered by a frame source.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// String returns the size formatted as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Ratio returns the width to height ratio, or 0 for a degenerate size.
func (s Size) Ratio() float64 {
	if s.Height == 0 {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

// SelectPreviewSize picks the capture size that best fits a display of the
// given width and height.
//
// Candidates whose aspect ratio is within AspectTolerance of the requested
// ratio are preferred, and among those the one with the closest height wins.
// When no candidate matches the aspect ratio, the closest height over all
// candidates is chosen and the aspect ratio is ignored.
func SelectPreviewSize(candidates []Size, width, height int) (Size, error) {
	if len(candidates) == 0 {
		return Size{}, ErrNoCandidates
	}
	if width <= 0 || height <= 0 {
		return Size{}, fmt.Errorf("%w: %dx%d", ErrInvalidRequest, width, height)
	}

	target := float64(width) / float64(height)

	best, found := closestHeight(candidates, height, func(s Size) bool {
		return math.Abs(s.Ratio()-target) <= AspectTolerance
	})
	if found {
		return best, nil
	}

	best, _ = closestHeight(candidates, height, func(Size) bool { return true })
	return best, nil
}

// closestHeight returns the first candidate accepted by keep whose height is
// nearest to target.
func closestHeight(candidates []Size, target int, keep func(Size) bool) (Size, bool) {
	var best Size
	found := false
	minDiff := math.MaxInt

	for _, s := range candidates {
		if !keep(s) {
			continue
		}
		diff := s.Height - target
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			best = s
			minDiff = diff
			found = true
		}
	}

	return best, found
}
