package repository

import (
	"facewatch/internal/dto"
	"facewatch/internal/model"
)

// SnapshotRepository defines the interface for snapshot data operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *model.Snapshot) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Snapshot, error)
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *dto.SnapshotFilters) ([]model.Snapshot, error)
	GetTotalCount(filter *dto.SnapshotFilters) (int, error)
	GetDirectorySize() (int64, error)
	GetCameras() ([]string, error)

	// Delete operations
	Delete(id int64) error
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// FaceRepository defines the interface for face data operations.
type FaceRepository interface {
	// Create operations
	Insert(f *model.Face) (int64, error)
	InsertBatch(faces []model.Face) error

	// Read operations
	GetBySnapshotID(snapshotID int64) ([]model.Face, error)
	GetNamesBySnapshotID(snapshotID int64) ([]string, error)
	GetAllNames() ([]string, error)
}
