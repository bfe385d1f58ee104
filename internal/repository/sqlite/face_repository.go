package sqlite

import (
	"fmt"

	"facewatch/internal/model"
)

// FaceRepository implements repository.FaceRepository for SQLite.
type FaceRepository struct {
	db *DB
}

// NewFaceRepository creates a new SQLite face repository.
func NewFaceRepository(db *DB) *FaceRepository {
	return &FaceRepository{db: db}
}

const insertFace = `
	INSERT INTO faces (snapshot_id, name, known, distance, x, y, width, height)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new face record to the database.
func (r *FaceRepository) Insert(f *model.Face) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertFace, f.SnapshotID, f.Name, f.Known, f.Distance, f.X, f.Y, f.Width, f.Height)
	if err != nil {
		return 0, fmt.Errorf("failed to insert face: %w", err)
	}
	return result.LastInsertId()
}

// InsertBatch adds multiple faces in a single transaction.
func (r *FaceRepository) InsertBatch(faces []model.Face) error {
	if len(faces) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertFace)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range faces {
		if _, err := stmt.Exec(f.SnapshotID, f.Name, f.Known, f.Distance, f.X, f.Y, f.Width, f.Height); err != nil {
			return fmt.Errorf("failed to insert face: %w", err)
		}
	}

	return tx.Commit()
}

// GetBySnapshotID retrieves all faces on a snapshot.
func (r *FaceRepository) GetBySnapshotID(snapshotID int64) ([]model.Face, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, snapshot_id, name, known, distance, x, y, width, height
		FROM faces WHERE snapshot_id = ? ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query faces: %w", err)
	}
	defer rows.Close()

	var faces []model.Face
	for rows.Next() {
		var f model.Face
		if err := rows.Scan(&f.ID, &f.SnapshotID, &f.Name, &f.Known, &f.Distance, &f.X, &f.Y, &f.Width, &f.Height); err != nil {
			return nil, fmt.Errorf("failed to scan face: %w", err)
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// GetNamesBySnapshotID returns the distinct names on a snapshot.
func (r *FaceRepository) GetNamesBySnapshotID(snapshotID int64) ([]string, error) {
	return r.names(`SELECT DISTINCT name FROM faces WHERE snapshot_id = ? ORDER BY name`, snapshotID)
}

// GetAllNames returns every distinct name ever recorded.
func (r *FaceRepository) GetAllNames() ([]string, error) {
	return r.names(`SELECT DISTINCT name FROM faces ORDER BY name`)
}

func (r *FaceRepository) names(query string, args ...interface{}) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
