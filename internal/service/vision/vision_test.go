package vision

import (
	"image"
	"math"
	"os"
	"testing"

	"facewatch/internal/dto"

	"gocv.io/x/gocv"
)

func TestScaleRect(t *testing.T) {
	tests := []struct {
		name     string
		rect     image.Rectangle
		factor   float64
		expected image.Rectangle
	}{
		{"identity", image.Rect(10, 20, 30, 40), 1, image.Rect(10, 20, 30, 40)},
		{"quarter scale", image.Rect(10, 20, 30, 40), 4, image.Rect(40, 80, 120, 160)},
		{"half scale", image.Rect(11, 21, 31, 41), 2, image.Rect(22, 42, 62, 82)},
		{"non integer factor rounds", image.Rect(10, 10, 20, 20), 1.0 / 0.3, image.Rect(33, 33, 67, 67)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleRect(tt.rect, tt.factor); got != tt.expected {
				t.Errorf("ScaleRect(%v, %v) = %v, expected %v", tt.rect, tt.factor, got, tt.expected)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	var a, b Descriptor
	if d := Distance(a, b); d != 0 {
		t.Errorf("identical descriptors should have distance 0, got %v", d)
	}

	b[0] = 3
	b[1] = 4
	if d := Distance(a, b); math.Abs(d-5) > 1e-9 {
		t.Errorf("expected distance 5, got %v", d)
	}
	if Distance(a, b) != Distance(b, a) {
		t.Error("distance should be symmetric")
	}
}

func TestNewDetector_ScaleOutOfRange(t *testing.T) {
	tests := []struct {
		scale    float64
		expected float64
	}{
		{0.5, 2},
		{1, 1},
		{0, 1},
		{1.5, 1},
		{math.NaN(), 1},
	}

	for _, tt := range tests {
		if got := NewDetector(nil, tt.scale).RescaleFactor(); got != tt.expected {
			t.Errorf("NewDetector(%v).RescaleFactor() = %v, expected %v", tt.scale, got, tt.expected)
		}
	}
}

func TestLabelBand(t *testing.T) {
	band := LabelBand(image.Rect(100, 50, 200, 180))
	expected := image.Rect(100, 145, 200, 180)
	if band != expected {
		t.Errorf("LabelBand = %v, expected %v", band, expected)
	}
}

func TestFrame_EmptyAndClose(t *testing.T) {
	var nilFrame *Frame
	if !nilFrame.Empty() {
		t.Error("nil frame should be empty")
	}
	nilFrame.Close()

	f := &Frame{}
	if !f.Empty() {
		t.Error("frame without Mat should be empty")
	}
	if _, err := Preprocess(f, 0.5); err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestPreprocess_Downscales(t *testing.T) {
	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	f := NewFrame(mat, 1)
	defer f.Close()

	if size := f.Size(); size != image.Pt(640, 480) {
		t.Fatalf("Size() = %v", size)
	}

	data, err := Preprocess(f, 0.25)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("decoding preprocessed frame: %v", err)
	}
	defer decoded.Close()

	if decoded.Cols() != 160 || decoded.Rows() != 120 {
		t.Errorf("expected 160x120, got %dx%d", decoded.Cols(), decoded.Rows())
	}
}

func TestPreprocess_ResizeToNothingFails(t *testing.T) {
	f := NewFrame(gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3), 1)
	defer f.Close()

	if _, err := Preprocess(f, 0.1); err == nil {
		t.Fatal("expected an error when the downscaled frame has no pixels")
	}
}

func TestAnnotateJPEG(t *testing.T) {
	mat := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	f := NewFrame(mat, 1)
	defer f.Close()

	faces := []dto.FaceResult{
		dto.NewFaceResult("alice", true, 0.3, image.Rect(10, 10, 110, 150)),
		dto.NewFaceResult(dto.UnknownName, false, 0.8, image.Rect(150, 20, 260, 170)),
	}
	data, err := AnnotateJPEG(f, faces)
	if err != nil {
		t.Fatalf("AnnotateJPEG failed: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("expected JPEG output")
	}
}

func TestDlibRecognizer_RecognizeFile(t *testing.T) {
	modelsDir := os.Getenv("FACEWATCH_MODELS")
	sample := os.Getenv("FACEWATCH_SAMPLE_FACE")
	if modelsDir == "" || sample == "" {
		t.Skip("FACEWATCH_MODELS and FACEWATCH_SAMPLE_FACE not set")
	}

	rec, err := NewDlibRecognizer(modelsDir)
	if err != nil {
		t.Fatalf("NewDlibRecognizer failed: %v", err)
	}
	defer rec.Close()

	faces, err := rec.RecognizeFile(sample)
	if err != nil {
		t.Fatalf("RecognizeFile failed: %v", err)
	}
	if len(faces) == 0 {
		t.Fatal("expected at least one face in sample image")
	}

	rec.Close()
	if _, err := rec.Recognize(nil); err != ErrRecognizerClosed {
		t.Errorf("expected ErrRecognizerClosed after Close, got %v", err)
	}
}
