package dto

import (
	"image"
	"strings"
	"testing"
	"time"
)

func TestFaceResult_RectRoundTrip(t *testing.T) {
	box := image.Rect(40, 20, 140, 150)
	r := NewFaceResult("alice", true, 0.31, box)

	if r.Width != 100 || r.Height != 130 {
		t.Errorf("unexpected size %dx%d", r.Width, r.Height)
	}
	if r.Rect() != box {
		t.Errorf("Rect() = %v, expected %v", r.Rect(), box)
	}
}

func TestSnapshotInfo_MarshalJSON(t *testing.T) {
	info := SnapshotInfo{
		Name:      "test.jpg",
		Date:      time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
		TimeOfDay: time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
		Camera:    "porch",
		People:    []string{"Unknown", "alice"},
	}

	data, err := info.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	jsonStr := string(data)
	if !strings.Contains(jsonStr, `"date":"15-06-2025"`) {
		t.Errorf("expected DD-MM-YYYY date, got: %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"timeOfDay":"14:30"`) {
		t.Errorf("expected HH:MM time, got: %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"people":["Unknown","alice"]`) {
		t.Errorf("expected people list, got: %s", jsonStr)
	}
}
