package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"facewatch/internal/logger"
	"facewatch/internal/service/alert"
	"facewatch/internal/service/gallery"
	"facewatch/internal/service/watch"
)

// WatchStats exposes the capture loop counters.
type WatchStats interface {
	Stats() watch.Stats
}

// AlertStats exposes the alert dispatcher counters.
type AlertStats interface {
	Stats() alert.Stats
}

type statusResponse struct {
	Uptime  string           `json:"uptime"`
	Watch   watch.Stats      `json:"watch"`
	Alerts  alert.Stats      `json:"alerts"`
	Viewers int              `json:"viewers"`
	People  []gallery.Person `json:"people"`
}

// StatusHandler reports loop, alert and gallery state as JSON.
func StatusHandler(watcher WatchStats, alerts AlertStats, viewers interface{ ClientCount() int }, people []gallery.Person, logger *logger.Logger) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Uptime: time.Since(started).Round(time.Second).String(),
			Watch:  watcher.Stats(),
			People: people,
		}
		if alerts != nil {
			resp.Alerts = alerts.Stats()
		}
		if viewers != nil {
			resp.Viewers = viewers.ClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Error encoding status response: %v", err)
		}
	}
}
