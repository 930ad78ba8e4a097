package orchestrator

import (
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotName(t *testing.T) {
	at := time.Date(2025, 3, 9, 7, 5, 2, 0, time.UTC)
	assert.Equal(t, "snapshot_20250309_070502.jpg", SnapshotName(at))
}

func TestSnapshotWriter_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	w := NewSnapshotWriter(dir)
	at := time.Date(2025, 3, 9, 7, 5, 2, 0, time.UTC)

	path, err := w.Save(testFrame(), at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snapshot_20250309_070502.jpg"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()
	for _, l := range []string{"car", "car", "truck"} {
		require.NoError(t, s.Append(ctx, LogRecord{Label: l}))
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "truck", recent[0].Label)
	assert.Equal(t, int64(3), recent[0].ID)

	counts, err := s.CountByLabel(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"car": 2, "truck": 1}, counts)
	assert.NoError(t, s.Close())
}
