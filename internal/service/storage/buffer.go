package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/model"
	"facewatch/internal/repository"
)

const (
	// DefaultImageBufferLimit limits how many snapshots per camera are kept between flushes.
	DefaultImageBufferLimit = 10
	// DefaultImageBufferFlushInterval is how often (seconds) buffered snapshots are flushed to disk.
	DefaultImageBufferFlushInterval = 30
)

// BufferService buffers alert snapshots in memory and periodically flushes them to disk.
type BufferService struct {
	directory    string
	limit        int
	interval     time.Duration
	snapshots    []dto.BufferedSnapshot
	bufferCount  map[string]int
	dropped      int
	mu           sync.Mutex
	logger       *logger.Logger
	snapshotRepo repository.SnapshotRepository
	faceRepo     repository.FaceRepository
}

// NewBufferService creates a BufferService. Repositories may be nil to store files only.
func NewBufferService(cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) *BufferService {
	limit := cfg.ImageBufferLimit
	if limit <= 0 {
		limit = DefaultImageBufferLimit
	}
	interval := cfg.ImageBufferFlushInterval
	if interval <= 0 {
		interval = DefaultImageBufferFlushInterval
	}

	return &BufferService{
		directory:    cfg.SnapshotDirectory,
		limit:        limit,
		interval:     time.Duration(interval) * time.Second,
		snapshots:    make([]dto.BufferedSnapshot, 0),
		bufferCount:  make(map[string]int),
		logger:       logger,
		snapshotRepo: snapshotRepo,
		faceRepo:     faceRepo,
	}
}

// Run flushes on a ticker until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// AddSnapshot buffers an annotated frame. It returns false when the camera's buffer is full.
func (s *BufferService) AddSnapshot(snapshot dto.BufferedSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[snapshot.Camera] >= s.limit {
		s.dropped++
		return false
	}

	s.snapshots = append(s.snapshots, snapshot)
	s.bufferCount[snapshot.Camera]++
	s.logger.Debug("Buffer size for camera %s: %d/%d", snapshot.Camera, s.bufferCount[snapshot.Camera], s.limit)
	return true
}

// Flush writes buffered snapshots to disk and the database, then resets the buffer.
// It returns the number of files written.
func (s *BufferService) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.directory, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, snapshot := range s.snapshots {
		filename := SnapshotFilename(snapshot)
		fullpath := filepath.Join(s.directory, filename)

		if err := os.WriteFile(fullpath, snapshot.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}
		savedCount++

		if s.snapshotRepo != nil {
			s.index(snapshot, filename, fullpath)
		}
	}

	if s.dropped > 0 {
		s.logger.Warning("Dropped %d snapshot(s) over the per-camera buffer limit", s.dropped)
	}
	s.logger.Info("Flushed %d snapshot(s) to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	s.bufferCount = make(map[string]int)
	s.dropped = 0
	return savedCount
}

// index records a flushed snapshot and its faces in the database.
func (s *BufferService) index(snapshot dto.BufferedSnapshot, filename, fullpath string) {
	ts, err := time.ParseInLocation(dto.SnapshotTimeLayout, snapshot.Timestamp, time.Local)
	if err != nil {
		ts = time.Now()
	}

	unknown := 0
	for _, face := range snapshot.Faces {
		if !face.Known {
			unknown++
		}
	}

	snapshotID, err := s.snapshotRepo.Insert(&model.Snapshot{
		Filename:     filename,
		Camera:       snapshot.Camera,
		EventID:      snapshot.EventID,
		Timestamp:    ts,
		FilePath:     fullpath,
		FileSize:     int64(len(snapshot.Data)),
		UnknownCount: unknown,
	})
	if err != nil {
		s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
		return
	}

	if s.faceRepo == nil || len(snapshot.Faces) == 0 {
		return
	}
	faces := make([]model.Face, 0, len(snapshot.Faces))
	for _, face := range snapshot.Faces {
		faces = append(faces, model.Face{
			SnapshotID: snapshotID,
			Name:       face.Name,
			Known:      face.Known,
			Distance:   face.Distance,
			X:          face.X,
			Y:          face.Y,
			Width:      face.Width,
			Height:     face.Height,
		})
	}
	if err := s.faceRepo.InsertBatch(faces); err != nil {
		s.logger.Error("Error saving faces to database: %v", err)
	}
}

// Directory is where snapshots are written.
func (s *BufferService) Directory() string {
	return s.directory
}

// Pending is the number of snapshots waiting for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
