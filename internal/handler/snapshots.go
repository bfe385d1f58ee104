package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/repository"
)

const defaultPageSize = 24

// GetSnapshotsHandler returns a filtered, paginated list of alert snapshots.
func GetSnapshotsHandler(cfg *config.Config, logger *logger.Logger,
	snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)

		filter := &dto.SnapshotFilters{
			Camera:      q.Get("camera"),
			Name:        q.Get("name"),
			UnknownOnly: q.Get("unknown") == "true" || q.Get("unknown") == "1",
			DateAfter:   parseDate(q.Get("dateAfter")),
			DateBefore:  parseDate(q.Get("dateBefore")),
			TimeAfter:   parseTimeOfDay(q.Get("timeAfter")),
			TimeBefore:  parseTimeOfDay(q.Get("timeBefore")),
			Limit:       limit,
			Offset:      (page - 1) * limit,
		}

		snapshots, err := snapshotRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := snapshotRepo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting snapshot directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := snapshotRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting snapshots: %v", err)
			totalCount = len(snapshots)
		}

		infos := make([]dto.SnapshotInfo, 0, len(snapshots))
		for _, s := range snapshots {
			people := []string{}
			if faceRepo != nil {
				names, err := faceRepo.GetNamesBySnapshotID(s.ID)
				if err != nil {
					logger.Error("Error getting faces for snapshot %d: %v", s.ID, err)
				} else if names != nil {
					people = names
				}
			}

			infos = append(infos, dto.SnapshotInfo{
				ID:        s.ID,
				Name:      s.Filename,
				EventID:   s.EventID,
				Date:      s.Timestamp,
				TimeOfDay: s.Timestamp,
				Camera:    s.Camera,
				People:    people,
			})
		}

		cameras, err := snapshotRepo.GetCameras()
		if err != nil || cameras == nil {
			if err != nil {
				logger.Error("Error getting cameras: %v", err)
			}
			cameras = []string{}
		}

		names := []string{}
		if faceRepo != nil {
			all, err := faceRepo.GetAllNames()
			if err != nil {
				logger.Error("Error getting face names: %v", err)
			} else if all != nil {
				names = all
			}
		}

		data := dto.SnapshotsData{
			Snapshots:   infos,
			Directory:   cfg.SnapshotDirectory,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
			Cameras:     cameras,
			Names:       names,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

type snapshotFaces struct {
	Snapshot dto.SnapshotInfo `json:"snapshot"`
	Faces    []dto.FaceResult `json:"faces"`
}

// SnapshotFacesHandler returns one snapshot, selected by the "id" query parameter, with its face boxes.
func SnapshotFacesHandler(logger *logger.Logger, snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Snapshot id is required", http.StatusBadRequest)
			return
		}

		s, err := snapshotRepo.GetByID(id)
		if err != nil {
			logger.Error("Error getting snapshot %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if s == nil {
			http.NotFound(w, r)
			return
		}

		faces, err := faceRepo.GetBySnapshotID(id)
		if err != nil {
			logger.Error("Error getting faces for snapshot %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		resp := snapshotFaces{
			Snapshot: dto.SnapshotInfo{
				ID:        s.ID,
				Name:      s.Filename,
				EventID:   s.EventID,
				Date:      s.Timestamp,
				TimeOfDay: s.Timestamp,
				Camera:    s.Camera,
				People:    []string{},
			},
			Faces: make([]dto.FaceResult, 0, len(faces)),
		}
		seen := make(map[string]bool)
		for _, f := range faces {
			resp.Faces = append(resp.Faces, dto.FaceResult{
				Name:     f.Name,
				Known:    f.Known,
				Distance: f.Distance,
				X:        f.X,
				Y:        f.Y,
				Width:    f.Width,
				Height:   f.Height,
			})
			if !seen[f.Name] {
				seen[f.Name] = true
				resp.Snapshot.People = append(resp.Snapshot.People, f.Name)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewSnapshotHandler serves a single snapshot named by the "snapshot" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := snapshotName(r.URL.Query().Get("snapshot"))
		if !ok {
			http.Error(w, "Snapshot parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.SnapshotDirectory, name))
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and database.
// The snapshot is selected by "id", or by "filename" when no id is given.
func DeleteSnapshotHandler(cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if v := r.URL.Query().Get("id"); v != "" {
			deleteSnapshotByID(w, r, cfg, logger, snapshotRepo, v)
			return
		}

		name, ok := snapshotName(r.URL.Query().Get("filename"))
		if !ok {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.SnapshotDirectory, name)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}
		if err := snapshotRepo.DeleteByFilename(name); err != nil {
			logger.Error("Failed to delete from database: %v", err)
		}

		logger.Info("Deleted snapshot: %s", name)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "filename": name})
	}
}

func deleteSnapshotByID(w http.ResponseWriter, r *http.Request, cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository, v string) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		http.Error(w, "Invalid snapshot id", http.StatusBadRequest)
		return
	}

	s, err := snapshotRepo.GetByID(id)
	if err != nil {
		logger.Error("Error getting snapshot %d: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if s == nil {
		http.NotFound(w, r)
		return
	}

	filePath := filepath.Join(cfg.SnapshotDirectory, filepath.Base(s.Filename))
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logger.Error("Failed to delete file %s: %v", filePath, err)
	}
	if err := snapshotRepo.Delete(id); err != nil {
		logger.Error("Failed to delete from database: %v", err)
	}

	logger.Info("Deleted snapshot: %s", s.Filename)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "filename": s.Filename})
}

// ClearSnapshotsHandler deletes every snapshot file and clears the database.
func ClearSnapshotsHandler(cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := os.ReadDir(cfg.SnapshotDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading snapshot directory: %v", err)
			http.Error(w, "Unable to read snapshot directory", http.StatusInternalServerError)
			return
		}
		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.SnapshotDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if err := snapshotRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
		}

		logger.Info("All snapshots cleared from directory: %s", cfg.SnapshotDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// snapshotName keeps only the base name so requests cannot leave the snapshot directory.
func snapshotName(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	name := filepath.Base(filepath.Clean("/" + v))
	if name == "/" || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeOfDay parses a time-of-day string in the format "15:04" from the request (HTML input format).
func parseTimeOfDay(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
