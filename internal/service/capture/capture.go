package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/service/vision"

	"github.com/gofrs/flock"
	"gocv.io/x/gocv"
)

// MaxReadFailures is the number of consecutive empty reads after which the stream counts as ended.
const MaxReadFailures = 25

const readRetryDelay = 40 * time.Millisecond

var (
	// ErrSourceBusy means another process holds the lock for this camera.
	ErrSourceBusy = errors.New("capture source is in use by another process")
	// ErrStreamEnded means the source stopped producing frames.
	ErrStreamEnded = errors.New("capture stream ended")
)

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Camera is an open capture device or stream.
type Camera struct {
	source  string
	capture *gocv.VideoCapture
	lock    *flock.Flock
	fps     float64
	seq     atomic.Uint64
}

// Open opens the webcam or stream URL named by cfg and takes the per-source lock.
func Open(cfg *config.Config) (*Camera, error) {
	source := cfg.Source()

	lock := flock.New(LockPath(cfg.LockDirectory, source))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", source, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceBusy)
	}

	var device interface{} = cfg.WebcamIndex
	if cfg.CameraURL != "" {
		device = cfg.CameraURL
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("could not open video capture device %s: %w", source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("could not open video capture device %s", source)
	}

	return &Camera{
		source:  source,
		capture: vc,
		lock:    lock,
		fps:     vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

// LockPath is the lock file used for a capture source inside dir.
func LockPath(dir, source string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.Trim(unsafeLockChars.ReplaceAllString(source, "_"), "_")
	if name == "" {
		name = "camera"
	}
	return filepath.Join(dir, "facewatch-"+name+".lock")
}

// Source describes the device for log messages.
func (c *Camera) Source() string {
	return c.source
}

// FPS is the native frame rate reported by the device; 0 when unknown.
func (c *Camera) FPS() float64 {
	return c.fps
}

// Next reads the next frame. Empty reads are retried until MaxReadFailures is reached.
func (c *Camera) Next(ctx context.Context) (*vision.Frame, error) {
	for failures := 0; ; failures++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if failures >= MaxReadFailures {
			return nil, ErrStreamEnded
		}

		mat := gocv.NewMat()
		if c.capture.Read(&mat) && !mat.Empty() {
			return vision.NewFrame(mat, c.seq.Add(1)), nil
		}
		mat.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readRetryDelay):
		}
	}
}

// Close releases the device and the lock.
func (c *Camera) Close() error {
	err := c.capture.Close()
	if unlockErr := c.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
