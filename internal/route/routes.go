package route

import (
	"embed"
	"io/fs"
	"net/http"

	"facewatch/internal/config"
	"facewatch/internal/handler"
	"facewatch/internal/logger"
	"facewatch/internal/middleware"
	"facewatch/internal/repository"
	"facewatch/internal/service/gallery"
	"facewatch/internal/service/websocket"
)

//go:embed static
var staticFiles embed.FS

// Dependencies are the services exposed over HTTP.
type Dependencies struct {
	Watch     handler.WatchStats
	Alerts    handler.AlertStats
	Hub       *websocket.HubService
	People    []gallery.Person
	Snapshots repository.SnapshotRepository
	Faces     repository.FaceRepository
	Sessions  *middleware.Sessions
}

// pageHandler serves /path as static/path.html if the page exists; otherwise 404.
func pageHandler(pages fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}

		name := path[1:] + ".html"
		if _, err := fs.Stat(pages, name); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, pages, name)
	}
}

// SetupRoutes registers pages and API endpoints and wraps the mux with the authentication middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	pages, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(deps.Watch, deps.Alerts, deps.Hub, deps.People, logger))
	mux.HandleFunc("/api/snapshots", handler.GetSnapshotsHandler(cfg, logger, deps.Snapshots, deps.Faces))
	mux.HandleFunc("/api/snapshots/faces", handler.SnapshotFacesHandler(logger, deps.Snapshots, deps.Faces))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/snapshots/delete", handler.DeleteSnapshotHandler(cfg, logger, deps.Snapshots))
	mux.HandleFunc("/api/snapshots/clear", handler.ClearSnapshotsHandler(cfg, logger, deps.Snapshots))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, deps.Sessions, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(deps.Sessions))

	mux.HandleFunc("/", pageHandler(pages))

	return middleware.AuthMiddleware(deps.Sessions)(mux)
}
