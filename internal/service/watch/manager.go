package watch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/service/alert"
	"facewatch/internal/service/gallery"
	"facewatch/internal/service/vision"

	"github.com/google/uuid"
)

// Source yields captured frames.
type Source interface {
	Next(ctx context.Context) (*vision.Frame, error)
	FPS() float64
}

// FaceDetector finds faces on a frame, in downscaled coordinates.
type FaceDetector interface {
	Detect(f *vision.Frame) ([]vision.Face, error)
	RescaleFactor() float64
}

// Matcher classifies a face descriptor.
type Matcher interface {
	Match(d vision.Descriptor) gallery.Match
}

// Display shows annotated frames to a local user. Show and Poll both
// service the window's event loop; one of them runs for every captured frame.
type Display interface {
	Show(f *vision.Frame)
	Poll()
	Close()
}

// AlertSink accepts alert events without blocking.
type AlertSink interface {
	Enqueue(event alert.Event) bool
}

// SnapshotSink accepts annotated alert frames without blocking.
type SnapshotSink interface {
	AddSnapshot(snapshot dto.BufferedSnapshot) bool
}

// Viewers receives live frames for connected clients.
type Viewers interface {
	ClientCount() int
	Broadcast(message []byte)
}

// Stats is a snapshot of the watch loop counters.
type Stats struct {
	Camera          string    `json:"camera"`
	ProcessEvery    int       `json:"process_every"`
	FramesRead      uint64    `json:"frames_read"`
	FramesProcessed uint64    `json:"frames_processed"`
	FacesSeen       uint64    `json:"faces_seen"`
	UnknownRun      int       `json:"unknown_run"`
	Alerts          uint64    `json:"alerts"`
	LastAlert       time.Time `json:"last_alert,omitempty"`
	LastKnown       string    `json:"last_known,omitempty"`
}

type viewerMessage struct {
	Camera string           `json:"camera"`
	Image  string           `json:"image"`
	Faces  []dto.FaceResult `json:"faces"`
	Alert  bool             `json:"alert"`
}

// Manager runs the capture and recognition loop for one camera.
// Frames are handled strictly in order on the Run goroutine; everything
// downstream of a decision leaves through non-blocking sinks.
type Manager struct {
	source   Source
	detector FaceDetector
	matcher  Matcher
	logger   *logger.Logger

	display   Display
	alerts    AlertSink
	snapshots SnapshotSink
	viewers   Viewers

	camera     string
	processFPS int
	throttle   *Throttle
	unknown    *UnknownCounter
	runID      string

	annotate func(f *vision.Frame, faces []dto.FaceResult) ([]byte, error)

	statsMu sync.Mutex
	stats   Stats
}

// NewManager wires the loop. Optional sinks are attached with the With* methods.
func NewManager(source Source, detector FaceDetector, matcher Matcher, cfg *config.Config, logger *logger.Logger) *Manager {
	return &Manager{
		source:     source,
		detector:   detector,
		matcher:    matcher,
		logger:     logger,
		camera:     cfg.CameraName,
		processFPS: cfg.ProcessFPS,
		throttle:   NewThrottle(1),
		unknown:    NewUnknownCounter(cfg.UnknownTrigger),
		annotate:   vision.AnnotateJPEG,
		stats:      Stats{Camera: cfg.CameraName, ProcessEvery: 1},
	}
}

// WithDisplay shows every processed frame in a local window.
func (m *Manager) WithDisplay(d Display) *Manager {
	m.display = d
	return m
}

// WithAlerts sends alert events to a dispatcher.
func (m *Manager) WithAlerts(a AlertSink) *Manager {
	m.alerts = a
	return m
}

// WithSnapshots stores annotated alert frames.
func (m *Manager) WithSnapshots(s SnapshotSink) *Manager {
	m.snapshots = s
	return m
}

// WithViewers streams processed frames to live viewers.
func (m *Manager) WithViewers(v Viewers) *Manager {
	m.viewers = v
	return m
}

// Run reads frames until the source fails or ctx is cancelled. Cancellation is not an error.
func (m *Manager) Run(ctx context.Context) error {
	every := ProcessEvery(m.source.FPS(), m.processFPS)
	m.throttle = NewThrottle(every)

	m.statsMu.Lock()
	m.stats.ProcessEvery = every
	m.statsMu.Unlock()

	m.logger.Info("Watching %s at %.1f fps - processing every %d frame(s), alert after %d unknown frame(s)",
		m.camera, m.source.FPS(), every, m.unknown.Threshold())

	if m.display != nil {
		defer m.display.Close()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := m.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if shown := m.handleFrame(frame); !shown && m.display != nil {
			m.display.Poll()
		}
		frame.Close()
	}
}

// handleFrame runs one captured frame through the pipeline and reports whether it was displayed.
func (m *Manager) handleFrame(frame *vision.Frame) bool {
	m.statsMu.Lock()
	m.stats.FramesRead++
	m.statsMu.Unlock()

	if !m.throttle.Next() {
		return false
	}

	faces, err := m.detector.Detect(frame)
	if err != nil {
		m.logger.Error("Failed to detect faces on frame %d: %v", frame.Seq, err)
		return false
	}

	results, hasUnknown := m.classify(faces)
	run, alerting := m.unknown.Observe(hasUnknown)
	if !hasUnknown {
		m.runID = ""
	}
	if alerting {
		m.logger.Warning("Warning: unknown person detected!")
		if m.runID == "" {
			m.runID = uuid.NewString()
		}
	}

	m.statsMu.Lock()
	m.stats.FramesProcessed++
	m.stats.FacesSeen += uint64(len(results))
	m.stats.UnknownRun = run
	if alerting {
		m.stats.Alerts++
		m.stats.LastAlert = frame.CapturedAt
	}
	m.statsMu.Unlock()

	watching := m.viewers != nil && m.viewers.ClientCount() > 0
	if m.display == nil && !alerting && !watching {
		return false
	}

	image, err := m.annotate(frame, results)
	if err != nil {
		m.logger.Error("Failed to annotate frame %d: %v", frame.Seq, err)
		return false
	}

	shown := false
	if m.display != nil {
		m.display.Show(frame)
		shown = true
	}
	if alerting {
		m.raise(frame, run, results, image)
	}
	if watching {
		m.broadcast(results, image, alerting)
	}
	return shown
}

// classify matches every face and maps its box back to captured-frame pixels.
func (m *Manager) classify(faces []vision.Face) ([]dto.FaceResult, bool) {
	factor := m.detector.RescaleFactor()
	results := make([]dto.FaceResult, 0, len(faces))
	hasUnknown := false

	for _, face := range faces {
		match := m.matcher.Match(face.Descriptor)
		if match.Known {
			m.logger.Info("Face detected: %s", match.Name)
			m.statsMu.Lock()
			m.stats.LastKnown = match.Name
			m.statsMu.Unlock()
		} else {
			hasUnknown = true
		}
		results = append(results, dto.NewFaceResult(match.Name, match.Known, match.Distance, vision.ScaleRect(face.Rect, factor)))
	}
	return results, hasUnknown
}

func (m *Manager) raise(frame *vision.Frame, run int, results []dto.FaceResult, image []byte) {
	event := alert.Event{
		ID:         m.runID,
		Camera:     m.camera,
		At:         frame.CapturedAt,
		UnknownRun: run,
		Faces:      results,
		Image:      image,
	}
	if m.alerts != nil {
		m.alerts.Enqueue(event)
	}
	if m.snapshots != nil {
		m.snapshots.AddSnapshot(dto.BufferedSnapshot{
			Timestamp: frame.CapturedAt.Format(dto.SnapshotTimeLayout),
			Camera:    m.camera,
			EventID:   m.runID,
			Faces:     results,
			Data:      image,
		})
	}
}

func (m *Manager) broadcast(results []dto.FaceResult, image []byte, alerting bool) {
	if results == nil {
		results = []dto.FaceResult{}
	}
	msg, err := json.Marshal(viewerMessage{
		Camera: m.camera,
		Image:  base64.StdEncoding.EncodeToString(image),
		Faces:  results,
		Alert:  alerting,
	})
	if err != nil {
		m.logger.Error("Failed to encode viewer message: %v", err)
		return
	}
	m.viewers.Broadcast(msg)
}

// Stats returns a copy of the loop counters.
func (m *Manager) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Camera is the display name of the watched camera.
func (m *Manager) Camera() string {
	return m.camera
}
