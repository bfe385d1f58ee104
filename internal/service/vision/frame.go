package vision

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when a frame holds no image data.
var ErrEmptyFrame = errors.New("frame is empty")

// Frame is one captured image at full resolution. The Mat is owned by the frame.
type Frame struct {
	Mat        *gocv.Mat
	Seq        uint64
	CapturedAt time.Time
}

// NewFrame wraps a Mat read from a capture source.
func NewFrame(mat gocv.Mat, seq uint64) *Frame {
	return &Frame{Mat: &mat, Seq: seq, CapturedAt: time.Now()}
}

// Empty reports whether the frame carries no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Mat == nil || f.Mat.Empty()
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() image.Point {
	if f.Empty() {
		return image.Point{}
	}
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Close releases the underlying Mat.
func (f *Frame) Close() {
	if f == nil || f.Mat == nil {
		return
	}
	f.Mat.Close()
	f.Mat = nil
}

// Preprocess downsizes the frame by scale and encodes it as JPEG for the recognizer.
// dlib decodes JPEG into RGB, so encoding also takes care of the BGR to RGB conversion.
func Preprocess(f *Frame, scale float64) ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}

	src := *f.Mat
	if scale > 0 && scale < 1.0 {
		small := gocv.NewMat()
		defer small.Close()
		if err := gocv.Resize(*f.Mat, &small, image.Point{}, scale, scale, gocv.InterpolationLinear); err != nil {
			return nil, fmt.Errorf("failed to resize frame: %w", err)
		}
		if small.Empty() {
			return nil, fmt.Errorf("resize by %.2f produced an empty frame", scale)
		}
		src = small
	}

	return encodeJPEG(src)
}

// EncodeJPEG encodes the full-resolution frame.
func EncodeJPEG(f *Frame) ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	return encodeJPEG(*f.Mat)
}

func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
