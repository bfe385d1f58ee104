package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/model"
	"facewatch/internal/repository"
	"facewatch/internal/repository/sqlite"
	"facewatch/internal/service/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newMigrateCommand(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Index snapshot files already on disk into the database",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			return migrate(cmd.OutOrStdout(), cfg.SnapshotDirectory, sqlite.NewSnapshotRepository(db), sqlite.NewFaceRepository(db))
		},
	}
	cmd.Flags().StringVar(&cfg.SnapshotDirectory, "snapshots", cfg.SnapshotDirectory, "directory containing snapshots")
	cmd.Flags().StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "database path")
	return cmd
}

type migrateResult struct {
	inserted int
	existing int
	skipped  int
}

func migrate(out io.Writer, dir string, snapshots repository.SnapshotRepository, faces repository.FaceRepository) error {
	fmt.Fprintf(out, "Indexing snapshots from %s\n", dir)

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var res migrateResult
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}
		if err := indexFile(dir, file, snapshots, faces); err != nil {
			if errors.Is(err, errAlreadyIndexed) {
				res.existing++
				continue
			}
			fmt.Fprintf(out, "Skipping %s: %v\n", file.Name(), err)
			res.skipped++
			continue
		}
		res.inserted++
	}

	fmt.Fprintf(out, "Indexed %d snapshot(s), %d already present, %d skipped\n", res.inserted, res.existing, res.skipped)

	cameras, err := snapshots.GetCameras()
	if err == nil && len(cameras) > 0 {
		fmt.Fprintln(out, "Cameras:")
		for _, camera := range cameras {
			count, _ := snapshots.GetTotalCount(&dto.SnapshotFilters{Camera: camera})
			fmt.Fprintf(out, "   - %s: %d snapshot(s)\n", camera, count)
		}
	}
	return nil
}

var errAlreadyIndexed = errors.New("already indexed")

func indexFile(dir string, file os.DirEntry, snapshots repository.SnapshotRepository, faces repository.FaceRepository) error {
	existing, err := snapshots.GetByFilename(file.Name())
	if err != nil {
		return err
	}
	if existing != nil {
		return errAlreadyIndexed
	}

	parsed, err := storage.ParseSnapshotFilename(file.Name())
	if err != nil {
		return err
	}
	info, err := file.Info()
	if err != nil {
		return err
	}

	unknown := 0
	for _, name := range parsed.Names {
		if name == dto.UnknownName {
			unknown++
		}
	}

	id, err := snapshots.Insert(&model.Snapshot{
		Filename:     file.Name(),
		Camera:       parsed.Camera,
		Timestamp:    parsed.Timestamp,
		FilePath:     filepath.Join(dir, file.Name()),
		FileSize:     info.Size(),
		UnknownCount: unknown,
	})
	if err != nil {
		return err
	}

	// File names carry names only; boxes and distances are not recoverable.
	batch := make([]model.Face, 0, len(parsed.Names))
	for _, name := range parsed.Names {
		batch = append(batch, model.Face{SnapshotID: id, Name: name, Known: name != dto.UnknownName})
	}
	return faces.InsertBatch(batch)
}
