package model

// Face is one classified face on a stored snapshot.
type Face struct {
	ID         int64   `json:"id"`
	SnapshotID int64   `json:"snapshot_id"`
	Name       string  `json:"name"`
	Known      bool    `json:"known"`
	Distance   float64 `json:"distance"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}
