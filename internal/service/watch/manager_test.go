package watch

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"testing"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/service/alert"
	"facewatch/internal/service/gallery"
	"facewatch/internal/service/vision"
)

var errSourceDone = errors.New("source done")

// fakeSource serves frames without pixel data; each frame's Seq selects its faces.
type fakeSource struct {
	frames int
	fps    float64
	served int
	cancel context.CancelFunc
}

func (s *fakeSource) Next(ctx context.Context) (*vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.served == s.frames {
		if s.cancel != nil {
			s.cancel()
			return nil, ctx.Err()
		}
		return nil, errSourceDone
	}
	s.served++
	return &vision.Frame{Seq: uint64(s.served)}, nil
}

func (s *fakeSource) FPS() float64 { return s.fps }

type fakeDetector struct {
	faces    map[uint64][]vision.Face
	err      map[uint64]error
	detected []uint64
}

func (d *fakeDetector) Detect(f *vision.Frame) ([]vision.Face, error) {
	d.detected = append(d.detected, f.Seq)
	if err := d.err[f.Seq]; err != nil {
		return nil, err
	}
	return d.faces[f.Seq], nil
}

func (d *fakeDetector) RescaleFactor() float64 { return 2 }

// fakeMatcher knows a face as Alice when the first descriptor value is 1.
type fakeMatcher struct{}

func (fakeMatcher) Match(d vision.Descriptor) gallery.Match {
	if d[0] == 1 {
		return gallery.Match{Index: 0, Name: "Alice", Distance: 0.1, Known: true}
	}
	return gallery.Match{Index: 0, Name: dto.UnknownName, Distance: 0.9}
}

type recordingSinks struct {
	events    []alert.Event
	snapshots []dto.BufferedSnapshot
	messages  [][]byte
	clients   int
}

func (r *recordingSinks) Enqueue(e alert.Event) bool { r.events = append(r.events, e); return true }
func (r *recordingSinks) AddSnapshot(s dto.BufferedSnapshot) bool {
	r.snapshots = append(r.snapshots, s)
	return true
}
func (r *recordingSinks) ClientCount() int         { return r.clients }
func (r *recordingSinks) Broadcast(message []byte) { r.messages = append(r.messages, message) }

type fakeDisplay struct {
	shown  []uint64
	polls  int
	closed bool
}

func (d *fakeDisplay) Show(f *vision.Frame) { d.shown = append(d.shown, f.Seq) }
func (d *fakeDisplay) Poll()                { d.polls++ }
func (d *fakeDisplay) Close()               { d.closed = true }

func known() vision.Face {
	var d vision.Descriptor
	d[0] = 1
	return vision.Face{Rect: image.Rect(10, 10, 20, 20), Descriptor: d}
}

func stranger() vision.Face {
	return vision.Face{Rect: image.Rect(30, 30, 50, 50)}
}

func newTestManager(t *testing.T, src *fakeSource, det *fakeDetector, trigger, fps int) *Manager {
	t.Helper()
	log, err := logger.New(io.Discard, "", false)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{CameraName: "porch", UnknownTrigger: trigger, ProcessFPS: fps}
	m := NewManager(src, det, fakeMatcher{}, cfg, log)
	m.annotate = func(f *vision.Frame, faces []dto.FaceResult) ([]byte, error) {
		return []byte{0xFF, 0xD8}, nil
	}
	return m
}

func TestManager_AlertsAfterSustainedUnknown(t *testing.T) {
	det := &fakeDetector{faces: map[uint64][]vision.Face{
		1: {stranger()},
		2: {known()},
		3: {stranger(), known()},
		4: {stranger()},
		5: {stranger()},
		6: {},
		7: {stranger()},
	}}
	src := &fakeSource{frames: 7, fps: 30}
	sinks := &recordingSinks{}
	m := newTestManager(t, src, det, 3, 0).WithAlerts(sinks).WithSnapshots(sinks)

	if err := m.Run(context.Background()); !errors.Is(err, errSourceDone) {
		t.Fatalf("expected source error, got %v", err)
	}

	// Frames 3, 4 and 5 form the run; it reaches 3 on frame 5 only.
	if len(sinks.events) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sinks.events))
	}
	event := sinks.events[0]
	if event.UnknownRun != 3 || event.Camera != "porch" || event.ID == "" {
		t.Errorf("unexpected event %+v", event)
	}
	if len(sinks.snapshots) != 1 || sinks.snapshots[0].EventID != event.ID {
		t.Errorf("snapshot should carry the alert ID, got %+v", sinks.snapshots)
	}

	// Boxes are mapped back to captured-frame pixels.
	if got := event.Faces[0].Rect(); got != image.Rect(60, 60, 100, 100) {
		t.Errorf("expected rescaled box, got %v", got)
	}

	stats := m.Stats()
	if stats.FramesRead != 7 || stats.FramesProcessed != 7 || stats.Alerts != 1 || stats.UnknownRun != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LastKnown != "Alice" {
		t.Errorf("expected last known Alice, got %q", stats.LastKnown)
	}
}

func TestManager_RunKeepsOneIDWhileAlerting(t *testing.T) {
	det := &fakeDetector{faces: map[uint64][]vision.Face{
		1: {stranger()},
		2: {stranger()},
		3: {stranger()},
		4: {},
		5: {stranger()},
		6: {stranger()},
	}}
	sinks := &recordingSinks{}
	m := newTestManager(t, &fakeSource{frames: 6, fps: 30}, det, 2, 0).WithAlerts(sinks)

	_ = m.Run(context.Background())

	if len(sinks.events) != 3 {
		t.Fatalf("expected alerts on frames 2, 3 and 6, got %d", len(sinks.events))
	}
	if sinks.events[0].ID != sinks.events[1].ID {
		t.Error("frames of one unknown run should share an alert ID")
	}
	if sinks.events[2].ID == sinks.events[0].ID {
		t.Error("a new run should get a new alert ID")
	}
}

func TestManager_Throttles(t *testing.T) {
	det := &fakeDetector{}
	m := newTestManager(t, &fakeSource{frames: 10, fps: 30}, det, 4, 15)

	_ = m.Run(context.Background())

	expected := []uint64{1, 3, 5, 7, 9}
	if len(det.detected) != len(expected) {
		t.Fatalf("expected frames %v processed, got %v", expected, det.detected)
	}
	for i := range expected {
		if det.detected[i] != expected[i] {
			t.Fatalf("expected frames %v processed, got %v", expected, det.detected)
		}
	}
	if stats := m.Stats(); stats.ProcessEvery != 2 || stats.FramesRead != 10 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestManager_DisplayServicedEveryFrame(t *testing.T) {
	det := &fakeDetector{err: map[uint64]error{5: errors.New("decode failed")}}
	display := &fakeDisplay{}
	m := newTestManager(t, &fakeSource{frames: 10, fps: 30}, det, 4, 10).WithDisplay(display)

	_ = m.Run(context.Background())

	// Frames 2, 5 and 8 are processed; detection fails on 5, so only 2 and 8 are drawn.
	expected := []uint64{2, 8}
	if len(display.shown) != len(expected) {
		t.Fatalf("expected frames %v shown, got %v", expected, display.shown)
	}
	for i := range expected {
		if display.shown[i] != expected[i] {
			t.Fatalf("expected frames %v shown, got %v", expected, display.shown)
		}
	}
	if display.polls+len(display.shown) != 10 {
		t.Errorf("expected the window serviced on all 10 frames, got %d polls and %d shows", display.polls, len(display.shown))
	}
	if !display.closed {
		t.Error("display should be closed when Run returns")
	}
}

func TestManager_DetectionErrorLeavesCounter(t *testing.T) {
	det := &fakeDetector{
		faces: map[uint64][]vision.Face{1: {stranger()}, 3: {stranger()}},
		err:   map[uint64]error{2: errors.New("decode failed")},
	}
	sinks := &recordingSinks{}
	m := newTestManager(t, &fakeSource{frames: 3, fps: 30}, det, 2, 0).WithAlerts(sinks)

	_ = m.Run(context.Background())

	if len(sinks.events) != 1 || sinks.events[0].UnknownRun != 2 {
		t.Errorf("a failed frame should not break the run, got %+v", sinks.events)
	}
}

func TestManager_BroadcastsToViewers(t *testing.T) {
	det := &fakeDetector{faces: map[uint64][]vision.Face{1: {known()}}}
	sinks := &recordingSinks{clients: 1}
	m := newTestManager(t, &fakeSource{frames: 2, fps: 30}, det, 4, 0).WithViewers(sinks)

	_ = m.Run(context.Background())

	if len(sinks.messages) != 2 {
		t.Fatalf("expected 2 viewer messages, got %d", len(sinks.messages))
	}
	var msg viewerMessage
	if err := json.Unmarshal(sinks.messages[0], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Camera != "porch" || msg.Image == "" || len(msg.Faces) != 1 || msg.Faces[0].Name != "Alice" {
		t.Errorf("unexpected viewer message %+v", msg)
	}
}

func TestManager_NoViewersNoBroadcast(t *testing.T) {
	det := &fakeDetector{faces: map[uint64][]vision.Face{1: {known()}}}
	sinks := &recordingSinks{}
	m := newTestManager(t, &fakeSource{frames: 1, fps: 30}, det, 4, 0).WithViewers(sinks)

	_ = m.Run(context.Background())

	if len(sinks.messages) != 0 {
		t.Errorf("expected no broadcast without clients, got %d", len(sinks.messages))
	}
}

func TestManager_CancelIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{frames: 3, fps: 30, cancel: cancel}
	m := newTestManager(t, src, &fakeDetector{}, 4, 0)

	if err := m.Run(ctx); err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
	if m.Stats().FramesRead != 3 {
		t.Errorf("expected 3 frames read, got %d", m.Stats().FramesRead)
	}
}
