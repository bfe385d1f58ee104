package dto

import "image"

// UnknownName labels faces that match nobody in the gallery.
const UnknownName = "Unknown"

// FaceResult is one classified face in captured-frame pixel coordinates.
type FaceResult struct {
	Name     string  `json:"name"`
	Known    bool    `json:"known"`
	Distance float64 `json:"distance"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// NewFaceResult builds a FaceResult from a bounding box.
func NewFaceResult(name string, known bool, distance float64, box image.Rectangle) FaceResult {
	return FaceResult{
		Name:     name,
		Known:    known,
		Distance: distance,
		X:        box.Min.X,
		Y:        box.Min.Y,
		Width:    box.Dx(),
		Height:   box.Dy(),
	}
}

// Rect returns the bounding box.
func (f FaceResult) Rect() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}
