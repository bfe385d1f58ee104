package dto

import (
	"encoding/json"
	"time"
)

// SnapshotInfo is the gallery view of a stored alert snapshot.
type SnapshotInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	EventID   string    `json:"eventId"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Camera    string    `json:"camera"`
	People    []string  `json:"people"`
}

// MarshalJSON formats date as DD-MM-YYYY and time of day as HH:MM.
func (p SnapshotInfo) MarshalJSON() ([]byte, error) {
	type Alias SnapshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(p),
	})
}
