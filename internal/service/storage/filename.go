package storage

import (
	"fmt"
	"strings"
	"time"

	"facewatch/internal/dto"
)

var nameReplacer = strings.NewReplacer("_", "-", " ", "-", "/", "-", "\\", "-", "\t", "-")

// SnapshotFilename builds "<timestamp>_<camera>_<name>_..._.jpg". Underscores
// separate fields, so camera and person names have theirs replaced by dashes.
func SnapshotFilename(s dto.BufferedSnapshot) string {
	var b strings.Builder
	b.WriteString(s.Timestamp)
	b.WriteString("_")
	b.WriteString(sanitize(s.Camera))
	b.WriteString("_")

	seen := make(map[string]bool)
	for _, face := range s.Faces {
		name := sanitize(face.Name)
		if seen[name] {
			continue
		}
		seen[name] = true
		b.WriteString(name)
		b.WriteString("_")
	}
	b.WriteString(".jpg")
	return b.String()
}

func sanitize(s string) string {
	s = nameReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return "-"
	}
	return s
}

// ParsedFilename is the information encoded in a snapshot file name.
type ParsedFilename struct {
	Timestamp time.Time
	Camera    string
	Names     []string
}

// ParseSnapshotFilename reverses SnapshotFilename. The timestamp is read in local time.
func ParseSnapshotFilename(filename string) (*ParsedFilename, error) {
	base := strings.TrimSuffix(filename, ".jpg")
	if base == filename {
		return nil, fmt.Errorf("%s: not a jpg snapshot", filename)
	}

	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return nil, fmt.Errorf("%s: expected timestamp and camera fields", filename)
	}

	ts, err := time.ParseInLocation(dto.SnapshotTimeLayout, strings.Join(parts[:3], "_"), time.Local)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid timestamp: %w", filename, err)
	}

	parsed := &ParsedFilename{Timestamp: ts, Camera: parts[3]}
	for _, name := range parts[4:] {
		if name != "" {
			parsed.Names = append(parsed.Names, name)
		}
	}
	return parsed, nil
}
