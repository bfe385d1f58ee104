package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultUnknownTrigger is the number of consecutive frames with an unknown face before alerting.
	DefaultUnknownTrigger = 4
	// DefaultProcessFPS caps how many frames per second are sent through recognition.
	DefaultProcessFPS = 15
	// DefaultMatchTolerance is the max Euclidean distance for a descriptor to count as a match.
	DefaultMatchTolerance = 0.6
	// DefaultCameraName is used when no camera name is given.
	DefaultCameraName = "Unnamed Camera"
)

type Config struct {
	FacesDirectory  string
	ModelsDirectory string
	MatchTolerance  float64
	HNSWMinGallery  int // Galleries at least this large are searched through an HNSW graph

	CameraURL   string // Stream URL (rtsp/http); webcam is used when empty
	WebcamIndex int
	CameraName  string
	ShowVideo   bool
	ShowFPS     bool

	UnknownTrigger int
	FrameScale     float64 // Downscale factor applied before recognition (0 < s <= 1)
	ProcessFPS     int     // 0 = every frame at native rate

	SnapshotDirectory        string
	DatabasePath             string
	ImageBufferLimit         int
	ImageBufferFlushInterval int // seconds

	NtfyTopic          string
	NtfyRequestTimeout int // seconds
	AlertCooldown      time.Duration

	Port          int // 0 disables the HTTP server
	Password      string
	LogDirectory  string
	LockDirectory string
	Debug         bool
}

// Load builds a Config from the environment. Call godotenv.Load beforehand to pick up a .env file.
func Load() *Config {
	return &Config{
		FacesDirectory:  getEnv("FACES_DIR", ""),
		ModelsDirectory: getEnv("MODELS_DIR", filepath.Join(".", "models")),
		MatchTolerance:  getEnvAsFloat("MATCH_TOLERANCE", DefaultMatchTolerance),
		HNSWMinGallery:  getEnvAsInt("HNSW_MIN_GALLERY", 256),

		CameraURL:   getEnv("CAMERA_URL", ""),
		WebcamIndex: getEnvAsInt("WEBCAM_INDEX", 0),
		CameraName:  getEnv("CAMERA_NAME", DefaultCameraName),
		ShowVideo:   getEnvAsBool("SHOW_VIDEO", false),

		UnknownTrigger: getEnvAsInt("UNKNOWN_TRIGGER", DefaultUnknownTrigger),
		FrameScale:     getEnvAsFloat("FRAME_SCALE", 1.0),
		ProcessFPS:     getEnvAsInt("PROCESS_FPS", DefaultProcessFPS),

		SnapshotDirectory:        getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		DatabasePath:             getEnv("DB_PATH", filepath.Join(".", "data", "facewatch.db")),
		ImageBufferLimit:         getEnvAsInt("BUFFER_LIMIT", 10),
		ImageBufferFlushInterval: getEnvAsInt("FLUSH_INTERVAL", 30),

		NtfyTopic:          getEnv("NTFY_TOPIC", ""),
		NtfyRequestTimeout: getEnvAsInt("NTFY_TIMEOUT", 10),
		AlertCooldown:      time.Duration(getEnvAsInt("ALERT_COOLDOWN", 60)) * time.Second,

		Port:          getEnvAsInt("PORT", 0),
		Password:      getEnv("PASSWORD", ""),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LockDirectory: getEnv("LOCK_DIR", os.TempDir()),
		Debug:         getEnvAsBool("DEBUG", false),
	}
}

// Validate reports the first setting that would make the watcher misbehave.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FacesDirectory) == "" {
		return errors.New("faces directory is required")
	}
	if !(c.FrameScale > 0 && c.FrameScale <= 1.0) {
		return fmt.Errorf("frame scale must be in (0, 1.0], got %v", c.FrameScale)
	}
	if c.UnknownTrigger < 1 {
		return fmt.Errorf("unknown trigger must be at least 1, got %d", c.UnknownTrigger)
	}
	if c.ProcessFPS < 0 {
		return fmt.Errorf("process fps must not be negative, got %d", c.ProcessFPS)
	}
	if !(c.MatchTolerance > 0) || math.IsInf(c.MatchTolerance, 1) {
		return fmt.Errorf("match tolerance must be a positive number, got %v", c.MatchTolerance)
	}
	if c.Port > 0 && c.Password == "" {
		return errors.New("PASSWORD must be set when the HTTP server is enabled")
	}
	return nil
}

// RescaleFactor maps recognition-frame coordinates back to the captured frame.
func (c *Config) RescaleFactor() float64 {
	if !(c.FrameScale > 0 && c.FrameScale <= 1.0) {
		return 1
	}
	return 1.0 / c.FrameScale
}

// Source describes the capture source for logs and lock names.
func (c *Config) Source() string {
	if c.CameraURL != "" {
		return c.CameraURL
	}
	return fmt.Sprintf("webcam:%d", c.WebcamIndex)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
