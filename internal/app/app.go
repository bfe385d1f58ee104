package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/middleware"
	"facewatch/internal/repository/sqlite"
	"facewatch/internal/route"
	"facewatch/internal/service/alert"
	"facewatch/internal/service/capture"
	"facewatch/internal/service/gallery"
	"facewatch/internal/service/storage"
	"facewatch/internal/service/vision"
	"facewatch/internal/service/watch"
	"facewatch/internal/service/websocket"

	"github.com/mattn/go-isatty"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of a watch session.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	recognizer *vision.DlibRecognizer
	gallery    *gallery.Gallery
	camera     *capture.Camera
	db         *sqlite.DB
	buffer     *storage.BufferService
	dispatcher *alert.Dispatcher
	hub        *websocket.HubService
	manager    *watch.Manager
}

// LoadGallery builds the recognizer and encodes the enrolled faces in cfg.FacesDirectory.
func LoadGallery(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*vision.DlibRecognizer, *gallery.Gallery, error) {
	recognizer, err := vision.NewDlibRecognizer(cfg.ModelsDirectory)
	if err != nil {
		return nil, nil, err
	}

	g, skipped, err := gallery.Load(ctx, cfg.FacesDirectory, recognizer, gallery.Options{
		Tolerance:      cfg.MatchTolerance,
		HNSWMinGallery: cfg.HNSWMinGallery,
		Progress:       progressWriter(),
	})
	if err != nil {
		recognizer.Close()
		return nil, nil, err
	}
	for _, s := range skipped {
		logger.Warning("Skipping %s: %v", s.File, s.Err)
	}
	if g.Len() == 0 {
		logger.Warning("No known faces loaded from %s - every face will be reported as unknown", cfg.FacesDirectory)
	} else {
		logger.Info("Loaded %d known face(s) of %d people", g.Len(), len(g.People()))
	}
	return recognizer, g, nil
}

// progressWriter returns stderr when it is a terminal, nil otherwise.
func progressWriter() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return os.Stderr
	}
	return nil
}

// New loads the gallery, opens the camera and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: logger}

	recognizer, g, err := LoadGallery(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.recognizer = recognizer
	a.gallery = g

	camera, err := capture.Open(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.camera = camera

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db

	snapshotRepo := sqlite.NewSnapshotRepository(db)
	faceRepo := sqlite.NewFaceRepository(db)
	a.buffer = storage.NewBufferService(cfg, logger, snapshotRepo, faceRepo)
	a.dispatcher = alert.NewDispatcher(alert.NewService(cfg), cfg.AlertCooldown, logger)

	detector := vision.NewDetector(recognizer, cfg.FrameScale)
	a.manager = watch.NewManager(camera, detector, g, cfg, logger).
		WithAlerts(a.dispatcher).
		WithSnapshots(a.buffer)

	if cfg.ShowVideo {
		a.manager.WithDisplay(vision.NewWindow(cfg.CameraName))
	}
	if cfg.Port > 0 {
		a.hub = websocket.NewHubService(logger)
		a.manager.WithViewers(a.hub)
	}
	return a, nil
}

// Run watches the camera until ctx is cancelled or the stream fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.buffer.Run(ctx)
	}()
	a.dispatcher.Start(ctx)

	var server *http.Server
	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.hub.Run(ctx)
		}()

		server = &http.Server{
			Addr: fmt.Sprintf(":%d", a.config.Port),
			Handler: route.SetupRoutes(a.config, a.logger, route.Dependencies{
				Watch:     a.manager,
				Alerts:    a.dispatcher,
				Hub:       a.hub,
				People:    a.gallery.People(),
				Snapshots: sqlite.NewSnapshotRepository(a.db),
				Faces:     sqlite.NewFaceRepository(a.db),
				Sessions:  middleware.NewSessions(middleware.DefaultSessionTTL),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server failed: %v", err)
			}
		}()
		a.logger.Info("Web viewer listening on http://localhost:%d", a.config.Port)
	}

	a.logger.Info("Camera: %s (%s)", a.config.CameraName, a.camera.Source())
	err := a.manager.Run(ctx)
	if err != nil {
		a.logger.Error("Watch loop stopped: %v", err)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			a.logger.Error("HTTP server shutdown: %v", serr)
		}
		shutdownCancel()
	}

	cancel()
	wg.Wait()
	a.dispatcher.Wait()

	stats := a.manager.Stats()
	a.logger.Info("Stopped after %d frames (%d processed, %d alert frames)", stats.FramesRead, stats.FramesProcessed, stats.Alerts)
	return err
}

// Close releases the camera, recognizer and database.
func (a *App) Close() {
	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.logger.Error("Failed to close camera: %v", err)
		}
	}
	if a.recognizer != nil {
		a.recognizer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
}
