package vision

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/Kagami/go-face"
)

// ErrRecognizerClosed is returned when Recognize is called after Close.
var ErrRecognizerClosed = errors.New("recognizer closed")

// Descriptor is the 128-dimensional face embedding produced by dlib.
type Descriptor = face.Descriptor

// Face is a detected face: its box in the coordinates of the analysed image and its embedding.
type Face struct {
	Rect       image.Rectangle
	Descriptor Descriptor
}

// Recognizer finds faces and computes their descriptors.
type Recognizer interface {
	Recognize(jpeg []byte) ([]Face, error)
	RecognizeFile(path string) ([]Face, error)
	Close()
}

// DlibRecognizer implements Recognizer with dlib through go-face.
// The models directory must contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat.
type DlibRecognizer struct {
	rec *face.Recognizer
	mu  sync.Mutex
}

// NewDlibRecognizer loads the dlib models from modelsDir.
func NewDlibRecognizer(modelsDir string) (*DlibRecognizer, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load face models from %s: %w", modelsDir, err)
	}
	return &DlibRecognizer{rec: rec}, nil
}

// Recognize detects every face in a JPEG image.
func (r *DlibRecognizer) Recognize(jpeg []byte) ([]Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return nil, ErrRecognizerClosed
	}
	faces, err := r.rec.Recognize(jpeg)
	if err != nil {
		return nil, fmt.Errorf("face recognition failed: %w", err)
	}
	return convertFaces(faces), nil
}

// RecognizeFile detects every face in a JPEG file.
func (r *DlibRecognizer) RecognizeFile(path string) ([]Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		return nil, ErrRecognizerClosed
	}
	faces, err := r.rec.RecognizeFile(path)
	if err != nil {
		return nil, fmt.Errorf("face recognition failed for %s: %w", path, err)
	}
	return convertFaces(faces), nil
}

// Close frees the dlib models.
func (r *DlibRecognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
}

func convertFaces(faces []face.Face) []Face {
	result := make([]Face, len(faces))
	for i, f := range faces {
		result[i] = Face{Rect: f.Rectangle, Descriptor: f.Descriptor}
	}
	return result
}

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b Descriptor) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ScaleRect maps a rectangle found on a downscaled frame back onto the captured frame.
func ScaleRect(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1 {
		return r
	}
	scale := func(v int) int { return int(math.Round(float64(v) * factor)) }
	return image.Rect(scale(r.Min.X), scale(r.Min.Y), scale(r.Max.X), scale(r.Max.Y))
}
