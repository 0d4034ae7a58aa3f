package frame

import (
	"fmt"

	"gocv.io/x/gocv"
)

// GocvDecoder converts frames with OpenCV: the NV21 planes are turned into
// BGR, compressed with IMEncode and decoded back with IMDecode.
type GocvDecoder struct{}

// NewGocvDecoder creates a GocvDecoder.
func NewGocvDecoder() *GocvDecoder {
	return &GocvDecoder{}
}

// Decode implements Decoder.
func (d *GocvDecoder) Decode(data []byte, width, height int) (*Bitmap, error) {
	if err := checkLayout(data, width, height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	nv21, err := gocv.NewMatFromBytes(height*3/2, width, gocv.MatTypeCV8UC1, data[:BufferSize(width, height)])
	if err != nil {
		return nil, fmt.Errorf("%w: wrap frame: %v", ErrEncodeFailure, err)
	}
	defer nv21.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(nv21, &bgr, gocv.ColorYUVToBGRNV21)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{int(gocv.IMWriteJpegQuality), JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}
	defer buf.Close()

	decoded, err := gocv.IMDecode(buf.GetBytes(), gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer decoded.Close()

	if decoded.Empty() || decoded.Cols() != width || decoded.Rows() != height {
		return nil, fmt.Errorf("%w: decoded %dx%d, want %dx%d", ErrDecodeFailure, decoded.Cols(), decoded.Rows(), width, height)
	}

	img, err := decoded.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	return bitmapFromImage(img), nil
}
