package capture

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"facewatch/internal/config"

	"github.com/gofrs/flock"
)

func TestLockPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		source   string
		expected string
	}{
		{"webcam:0", "facewatch-webcam_0.lock"},
		{"rtsp://user:pw@10.0.0.5:554/stream1", "facewatch-rtsp_user_pw_10.0.0.5_554_stream1.lock"},
		{"::", "facewatch-camera.lock"},
	}

	for _, tt := range tests {
		got := LockPath(dir, tt.source)
		if got != filepath.Join(dir, tt.expected) {
			t.Errorf("LockPath(%q) = %q, expected %q", tt.source, got, tt.expected)
		}
	}
}

func TestLockPath_DefaultsToTempDir(t *testing.T) {
	if got := LockPath("", "webcam:1"); !strings.HasSuffix(got, "facewatch-webcam_1.lock") {
		t.Errorf("unexpected lock path %q", got)
	}
}

func TestOpen_SourceBusy(t *testing.T) {
	cfg := &config.Config{WebcamIndex: 7, LockDirectory: t.TempDir()}

	held := flock.New(LockPath(cfg.LockDirectory, cfg.Source()))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer held.Unlock()

	if _, err := Open(cfg); !errors.Is(err, ErrSourceBusy) {
		t.Errorf("expected ErrSourceBusy, got %v", err)
	}
}
