package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
)

// JPEGQuality is the quality of the intermediate JPEG encoding.
const JPEGQuality = 100

var (
	// ErrEncodeFailure is returned when a raw frame cannot be compressed.
	ErrEncodeFailure = errors.New("frame encode failure")
	// ErrDecodeFailure is returned when the compressed intermediate cannot be decoded.
	ErrDecodeFailure = errors.New("frame decode failure")
)

// Decoder converts an NV21 frame to an RGB565 bitmap of the same size.
type Decoder interface {
	Decode(data []byte, width, height int) (*Bitmap, error)
}

// JPEGDecoder converts frames by compressing the NV21 planes to JPEG and
// decoding the result, using the standard library codec as the bridge.
type JPEGDecoder struct {
	buf bytes.Buffer
}

// NewJPEGDecoder creates a JPEGDecoder. The decoder reuses its encode buffer
// and must not be shared between goroutines.
func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{}
}

// Decode implements Decoder.
func (d *JPEGDecoder) Decode(data []byte, width, height int) (*Bitmap, error) {
	if err := checkLayout(data, width, height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	d.buf.Reset()
	if err := jpeg.Encode(&d.buf, toYCbCr(data, width, height), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	return decodeIntermediate(d.buf.Bytes(), width, height)
}

// decodeIntermediate decodes a JPEG intermediate that must be width x height.
func decodeIntermediate(data []byte, width, height int) (*Bitmap, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: decoded %dx%d, want %dx%d", ErrDecodeFailure, b.Dx(), b.Dy(), width, height)
	}

	return bitmapFromImage(img), nil
}
