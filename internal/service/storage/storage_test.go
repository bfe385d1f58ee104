package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/repository/sqlite"
)

func TestSnapshotFilename(t *testing.T) {
	tests := []struct {
		name     string
		snapshot dto.BufferedSnapshot
		expected string
	}{
		{
			"unknown and known",
			dto.BufferedSnapshot{
				Timestamp: "2025-06-15_14-30_05.123",
				Camera:    "Front Door",
				Faces:     []dto.FaceResult{{Name: "Unknown"}, {Name: "Alice"}, {Name: "Unknown"}},
			},
			"2025-06-15_14-30_05.123_Front-Door_Unknown_Alice_.jpg",
		},
		{
			"underscores in names",
			dto.BufferedSnapshot{
				Timestamp: "2025-06-15_14-30_05.123",
				Camera:    "cam_1",
				Faces:     []dto.FaceResult{{Name: "mary_jane"}},
			},
			"2025-06-15_14-30_05.123_cam-1_mary-jane_.jpg",
		},
		{
			"no faces",
			dto.BufferedSnapshot{Timestamp: "2025-06-15_14-30_05.123", Camera: ""},
			"2025-06-15_14-30_05.123_-_.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SnapshotFilename(tt.snapshot); got != tt.expected {
				t.Errorf("SnapshotFilename = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestParseSnapshotFilename(t *testing.T) {
	parsed, err := ParseSnapshotFilename("2025-06-15_14-30_05.123_Front-Door_Unknown_Alice_.jpg")
	if err != nil {
		t.Fatalf("ParseSnapshotFilename failed: %v", err)
	}

	expected := time.Date(2025, 6, 15, 14, 30, 5, 123e6, time.Local)
	if !parsed.Timestamp.Equal(expected) {
		t.Errorf("timestamp %v, expected %v", parsed.Timestamp, expected)
	}
	if parsed.Camera != "Front-Door" {
		t.Errorf("camera %q", parsed.Camera)
	}
	if len(parsed.Names) != 2 || parsed.Names[0] != "Unknown" || parsed.Names[1] != "Alice" {
		t.Errorf("names %v", parsed.Names)
	}
}

func TestParseSnapshotFilename_Invalid(t *testing.T) {
	invalid := []string{
		"photo.png",
		"2025-06-15_cam.jpg",
		"yesterday_14-30_05.123_cam_.jpg",
	}
	for _, name := range invalid {
		if _, err := ParseSnapshotFilename(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func newTestBuffer(t *testing.T, limit int) (*BufferService, *sqlite.SnapshotRepository, *sqlite.FaceRepository) {
	t.Helper()
	log, err := logger.New(io.Discard, "", false)
	if err != nil {
		t.Fatal(err)
	}
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	snapshots := sqlite.NewSnapshotRepository(db)
	faces := sqlite.NewFaceRepository(db)
	cfg := &config.Config{
		SnapshotDirectory:        filepath.Join(t.TempDir(), "snapshots"),
		ImageBufferLimit:         limit,
		ImageBufferFlushInterval: 1,
	}
	return NewBufferService(cfg, log, snapshots, faces), snapshots, faces
}

func snapshot(camera string, faces ...dto.FaceResult) dto.BufferedSnapshot {
	return dto.BufferedSnapshot{
		Timestamp: time.Now().Format(dto.SnapshotTimeLayout),
		Camera:    camera,
		EventID:   "evt-1",
		Faces:     faces,
		Data:      []byte{0xFF, 0xD8, 0xFF},
	}
}

func TestBufferService_PerCameraLimit(t *testing.T) {
	buf, _, _ := newTestBuffer(t, 2)

	if !buf.AddSnapshot(snapshot("a")) || !buf.AddSnapshot(snapshot("a")) {
		t.Fatal("first two snapshots should be buffered")
	}
	if buf.AddSnapshot(snapshot("a")) {
		t.Error("third snapshot for the same camera should be dropped")
	}
	if !buf.AddSnapshot(snapshot("b")) {
		t.Error("other cameras have their own limit")
	}
	if buf.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", buf.Pending())
	}
}

func TestBufferService_FlushWritesFilesAndRows(t *testing.T) {
	buf, snapshots, faces := newTestBuffer(t, 10)

	s := snapshot("porch",
		dto.FaceResult{Name: "Unknown", X: 1, Y: 2, Width: 30, Height: 40},
		dto.FaceResult{Name: "Alice", Known: true, Distance: 0.4},
	)
	buf.AddSnapshot(s)

	if n := buf.Flush(); n != 1 {
		t.Fatalf("expected 1 flushed snapshot, got %d", n)
	}
	if buf.Pending() != 0 {
		t.Error("buffer should be empty after flush")
	}

	filename := SnapshotFilename(s)
	data, err := os.ReadFile(filepath.Join(buf.Directory(), filename))
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("unexpected file size %d", len(data))
	}

	row, err := snapshots.GetByFilename(filename)
	if err != nil || row == nil {
		t.Fatalf("snapshot row missing: %v", err)
	}
	if row.EventID != "evt-1" || row.UnknownCount != 1 || row.FileSize != 3 {
		t.Errorf("unexpected row %+v", row)
	}

	stored, err := faces.GetBySnapshotID(row.ID)
	if err != nil || len(stored) != 2 {
		t.Fatalf("expected 2 faces, got %v, %v", stored, err)
	}
	if stored[0].Width != 30 || stored[1].Name != "Alice" || !stored[1].Known {
		t.Errorf("unexpected faces %+v", stored)
	}

	if !buf.AddSnapshot(snapshot("porch")) {
		t.Error("limit should reset after flush")
	}
}

func TestBufferService_FlushEmpty(t *testing.T) {
	buf, _, _ := newTestBuffer(t, 10)
	if n := buf.Flush(); n != 0 {
		t.Errorf("expected nothing flushed, got %d", n)
	}
}

func TestBufferService_RunFlushesOnCancel(t *testing.T) {
	buf, _, _ := newTestBuffer(t, 10)
	buf.interval = time.Hour
	buf.AddSnapshot(snapshot("porch"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buf.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if buf.Pending() != 0 {
		t.Error("Run should flush pending snapshots on exit")
	}
}
