package vision

import (
	"fmt"
	"image"
	"image/color"

	"facewatch/internal/dto"

	"gocv.io/x/gocv"
)

const (
	// labelBandHeight is the height of the filled name band at the bottom of a box.
	labelBandHeight = 35
	labelPadding    = 6
)

var (
	boxColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Annotate draws a box and name band for every face directly onto the frame.
// Face coordinates must already be in captured-frame pixels.
func Annotate(f *Frame, faces []dto.FaceResult) error {
	if f.Empty() {
		return ErrEmptyFrame
	}

	for _, face := range faces {
		rect := face.Rect()
		if err := gocv.Rectangle(f.Mat, rect, boxColor, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		if err := gocv.Rectangle(f.Mat, LabelBand(rect), boxColor, -1); err != nil {
			return fmt.Errorf("failed to draw label band: %w", err)
		}

		pt := image.Pt(rect.Min.X+labelPadding, rect.Max.Y-labelPadding)
		if err := gocv.PutText(f.Mat, face.Name, pt, gocv.FontHersheyDuplex, 1.0, textColor, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// AnnotateJPEG draws the faces and returns the annotated frame as JPEG.
func AnnotateJPEG(f *Frame, faces []dto.FaceResult) ([]byte, error) {
	if err := Annotate(f, faces); err != nil {
		return nil, err
	}
	return EncodeJPEG(f)
}

// LabelBand is the filled area under a face box that holds its name.
func LabelBand(rect image.Rectangle) image.Rectangle {
	return image.Rect(rect.Min.X, rect.Max.Y-labelBandHeight, rect.Max.X, rect.Max.Y)
}

// Window shows frames in a desktop window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window titled with the camera name.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show displays a frame and pumps the GUI event loop for one millisecond.
func (w *Window) Show(f *Frame) {
	if f.Empty() {
		return
	}
	w.window.IMShow(*f.Mat)
	w.window.WaitKey(1)
}

// Poll services the GUI event loop for one millisecond without drawing.
func (w *Window) Poll() {
	w.window.WaitKey(1)
}

// Close destroys the window.
func (w *Window) Close() {
	w.window.Close()
}
