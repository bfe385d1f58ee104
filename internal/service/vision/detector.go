package vision

// Detector runs the recognizer on a downscaled copy of each frame.
type Detector struct {
	recognizer Recognizer
	scale      float64
}

// NewDetector scales frames by scale (0 < scale <= 1) before recognition.
func NewDetector(recognizer Recognizer, scale float64) *Detector {
	if !(scale > 0 && scale <= 1) {
		scale = 1
	}
	return &Detector{recognizer: recognizer, scale: scale}
}

// Detect returns the faces in f. Rectangles are in downscaled-frame coordinates.
func (d *Detector) Detect(f *Frame) ([]Face, error) {
	data, err := Preprocess(f, d.scale)
	if err != nil {
		return nil, err
	}
	return d.recognizer.Recognize(data)
}

// RescaleFactor maps Detect rectangles back to captured-frame coordinates.
func (d *Detector) RescaleFactor() float64 {
	return 1 / d.scale
}
