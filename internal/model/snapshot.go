package model

import "time"

// Snapshot is a stored alert frame.
type Snapshot struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	Camera       string    `json:"camera"`
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	FilePath     string    `json:"filepath"`
	FileSize     int64     `json:"filesize"`
	UnknownCount int       `json:"unknown_count"`
}
