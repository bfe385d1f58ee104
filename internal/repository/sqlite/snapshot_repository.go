package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"facewatch/internal/dto"
	"facewatch/internal/model"
)

const snapshotColumns = "s.id, s.filename, s.camera, s.event_id, s.timestamp, s.filepath, s.filesize, s.unknown_count"

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var s model.Snapshot
	if err := row.Scan(&s.ID, &s.Filename, &s.Camera, &s.EventID, &s.Timestamp, &s.FilePath, &s.FileSize, &s.UnknownCount); err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert adds a new snapshot record to the database.
func (r *SnapshotRepository) Insert(s *model.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (filename, camera, event_id, timestamp, filepath, filesize, unknown_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.Filename, s.Camera, s.EventID, s.Timestamp.UTC().Format(timestampLayout), s.FilePath, s.FileSize, s.UnknownCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a snapshot by its ID. A missing snapshot is (nil, nil).
func (r *SnapshotRepository) GetByID(id int64) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSnapshot(r.db.Conn().QueryRow(`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// GetByFilename retrieves a snapshot by its filename. A missing snapshot is (nil, nil).
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSnapshot(r.db.Conn().QueryRow(`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.filename = ?`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// filterClause builds the WHERE conditions shared by GetAll and GetTotalCount.
func filterClause(filter *dto.SnapshotFilters) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter == nil {
		return "", nil
	}

	if filter.Camera != "" {
		conditions = append(conditions, "s.camera = ?")
		args = append(args, filter.Camera)
	}
	if filter.Name != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM faces f WHERE f.snapshot_id = s.id AND f.name = ?)")
		args = append(args, filter.Name)
	}
	if filter.UnknownOnly {
		conditions = append(conditions, "s.unknown_count > 0")
	}
	if !filter.DateAfter.IsZero() {
		conditions = append(conditions, "DATE(s.timestamp, 'localtime') >= DATE(?)")
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}
	if !filter.DateBefore.IsZero() {
		conditions = append(conditions, "DATE(s.timestamp, 'localtime') <= DATE(?)")
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}
	if !filter.TimeAfter.IsZero() {
		conditions = append(conditions, "TIME(s.timestamp, 'localtime') >= TIME(?)")
		args = append(args, filter.TimeAfter.Format("15:04:05"))
	}
	if !filter.TimeBefore.IsZero() {
		conditions = append(conditions, "TIME(s.timestamp, 'localtime') <= TIME(?)")
		args = append(args, filter.TimeBefore.Format("15:04:05"))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetAll retrieves snapshots matching the filter, newest first.
func (r *SnapshotRepository) GetAll(filter *dto.SnapshotFilters) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + snapshotColumns + ` FROM snapshots s` + where + ` ORDER BY s.timestamp DESC, s.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

// GetTotalCount returns the number of snapshots matching the filter, ignoring pagination.
func (r *SnapshotRepository) GetTotalCount(filter *dto.SnapshotFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM snapshots s`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// GetDirectorySize returns the total size of all stored snapshots in bytes.
func (r *SnapshotRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM snapshots`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to get directory size: %w", err)
	}
	return size, nil
}

// GetCameras returns the distinct camera names with snapshots.
func (r *SnapshotRepository) GetCameras() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT camera FROM snapshots ORDER BY camera`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []string
	for rows.Next() {
		var camera string
		if err := rows.Scan(&camera); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}

// Delete removes a snapshot and its faces.
func (r *SnapshotRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// DeleteByFilename removes a snapshot by its filename. Unknown names are not an error.
func (r *SnapshotRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// DeleteAll removes all snapshots and their faces.
func (r *SnapshotRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM faces`); err != nil {
		return fmt.Errorf("failed to delete faces: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}
