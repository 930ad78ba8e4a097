package orchestrator

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"
)

// snapshotTimeLayout yields names like snapshot_20250102_150405.jpg.
const snapshotTimeLayout = "20060102_150405"

// SnapshotWriter saves composited frames as JPEG files in Dir.
type SnapshotWriter struct {
	Dir     string
	Quality int
}

// NewSnapshotWriter returns a writer for dir with JPEG quality 90.
func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{Dir: dir, Quality: 90}
}

// SnapshotName returns the file name for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return "snapshot_" + t.Format(snapshotTimeLayout) + ".jpg"
}

// Save writes frame to Dir and returns the file path. The directory is
// created if needed.
func (w *SnapshotWriter) Save(frame image.Image, at time.Time) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(w.Dir, SnapshotName(at))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	quality := w.Quality
	if quality <= 0 {
		quality = 90
	}
	if err := jpeg.Encode(f, frame, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return path, nil
}
