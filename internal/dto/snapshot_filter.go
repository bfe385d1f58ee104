// SnapshotFilters describe user-provided filters to narrow the snapshot list.
package dto

import "time"

type SnapshotFilters struct {
	Camera      string
	Name        string
	UnknownOnly bool
	DateAfter   time.Time
	DateBefore  time.Time
	TimeAfter   time.Time
	TimeBefore  time.Time
	Limit       int
	Offset      int
}
